package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"cherthat/internal/capture"
	"cherthat/internal/relay"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to the relay daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the relay daemon at the given socket path. Failures are
// reported as *capture.BridgeUnavailableError.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, &capture.BridgeUnavailableError{Err: err}
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call issues one RPC, abandoning the wait when ctx is done. Transport
// failures become BridgeUnavailableError; errors returned by the remote
// method are passed through as rpc.ServerError.
func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pending := c.client.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		if done.Error == nil {
			return nil
		}
		var serverErr rpc.ServerError
		if errors.As(done.Error, &serverErr) {
			return done.Error
		}
		return &capture.BridgeUnavailableError{Err: done.Error}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveImage submits req through the relay.
func (c *Client) SaveImage(ctx context.Context, req capture.CaptureRequest) (capture.Result, error) {
	var resp capture.Result
	if err := c.call(ctx, "SaveImage", req, &resp); err != nil {
		return capture.Result{}, err
	}
	return resp, nil
}

// GetLocalImages lists the daemon's fallback store.
func (c *Client) GetLocalImages(ctx context.Context) ([]capture.CapturedImage, error) {
	var resp LocalImagesResponse
	if err := c.call(ctx, "GetLocalImages", Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// ClearLocalImages empties the daemon's fallback store.
func (c *Client) ClearLocalImages(ctx context.Context) error {
	var resp ClearResponse
	if err := c.call(ctx, "ClearLocalImages", Empty{}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.New("relay did not confirm clear")
	}
	return nil
}

// Dispatch sends a typed relay message and returns the raw JSON reply.
func (c *Client) Dispatch(ctx context.Context, msg relay.Message) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.call(ctx, "Dispatch", msg, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Status reports daemon details.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sender dials the daemon for every SaveImage call, so a daemon restarted
// between captures is picked up without reconnect logic.
type Sender struct {
	Path string
}

// SaveImage dials, submits req, and closes the connection.
func (s Sender) SaveImage(ctx context.Context, req capture.CaptureRequest) (capture.Result, error) {
	client, err := Dial(s.Path)
	if err != nil {
		return capture.Result{}, err
	}
	defer client.Close()
	return client.SaveImage(ctx, req)
}
