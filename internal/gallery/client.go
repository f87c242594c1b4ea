// Package gallery is the read/delete client used by gallery views. It lists
// and deletes collection entries over the HTTP contract and can poll the
// collection on a fixed interval.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cherthat/internal/capture"
)

// DefaultPollInterval is how often a mounted gallery refreshes.
const DefaultPollInterval = 5 * time.Second

const maxResponseBytes = 8 << 20

// Client talks to the collection service's /api/images endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient targets endpoint, the full /api/images URL.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{endpoint: strings.TrimSpace(endpoint), http: httpClient}
}

type envelope struct {
	Success bool                    `json:"success"`
	Data    []capture.CapturedImage `json:"data"`
	Message string                  `json:"message"`
	Error   string                  `json:"error"`
}

// List returns every image, newest first as ordered by the service.
func (c *Client) List(ctx context.Context) ([]capture.CapturedImage, error) {
	env, err := c.do(ctx, http.MethodGet, c.endpoint, "list images")
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []capture.CapturedImage{}, nil
	}
	return env.Data, nil
}

// Delete removes the image with id. A missing image is reported as
// *capture.NotFoundError.
func (c *Client) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &capture.ValidationError{Field: "id", Message: "id parameter is required"}
	}
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	query := target.Query()
	query.Set("id", id)
	target.RawQuery = query.Encode()

	_, err = c.do(ctx, http.MethodDelete, target.String(), "delete image")
	var netErr *capture.NetworkError
	if errors.As(err, &netErr) && netErr.StatusCode == http.StatusNotFound {
		return &capture.NotFoundError{ID: id}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, target, op string) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return envelope{}, &capture.NetworkError{Op: op, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, &capture.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && env.Error != "" {
			return envelope{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(env.Error)}
		}
		return envelope{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return envelope{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", decodeErr)}
	}
	if !env.Success {
		return envelope{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("service reported failure")}
	}
	return env, nil
}

// Poll lists immediately and then every interval until ctx is done, handing
// each result to fn. A non-positive interval uses DefaultPollInterval.
func (c *Client) Poll(ctx context.Context, interval time.Duration, fn func([]capture.CapturedImage, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		images, err := c.List(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(images, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
