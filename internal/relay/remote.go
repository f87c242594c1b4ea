package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cherthat/internal/capture"
)

const maxResponseBytes = 1 << 20

// RemoteClient writes captures to the collection service over HTTP.
type RemoteClient struct {
	endpoint string
	client   *http.Client
}

// NewRemoteClient targets endpoint (the full /api/images URL). A zero timeout
// leaves requests bounded only by ctx and the transport.
func NewRemoteClient(endpoint string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

type createResponse struct {
	Success bool                   `json:"success"`
	Data    *capture.CapturedImage `json:"data"`
	Error   string                 `json:"error"`
}

// Create posts req and returns the stored image. All failures are reported
// as *capture.NetworkError.
func (c *RemoteClient) Create(ctx context.Context, req capture.CaptureRequest) (capture.CapturedImage, error) {
	const op = "post /api/images"
	if c == nil || c.endpoint == "" {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, Err: errors.New("backend endpoint not configured")}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	var decoded createResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	if !decoded.Success || decoded.Data == nil || decoded.Data.ID == "" {
		reason := decoded.Error
		if reason == "" {
			reason = "response missing image data"
		}
		return capture.CapturedImage{}, &capture.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(reason)}
	}
	return *decoded.Data, nil
}
