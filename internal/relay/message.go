package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cherthat/internal/capture"
)

// Message types accepted by Handle.
const (
	MessageSaveImage        = "SAVE_IMAGE"
	MessageGetLocalImages   = "GET_LOCAL_IMAGES"
	MessageClearLocalImages = "CLEAR_LOCAL_IMAGES"
)

var (
	errNoStore  = errors.New("fallback store not configured")
	errNoRemote = errors.New("collection service not configured")
)

// Message is one request sent across the bridge. Data carries a
// CaptureRequest for SAVE_IMAGE and is ignored otherwise.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the reply to a Message. Its JSON form depends on Type:
// SAVE_IMAGE renders the capture.Result, GET_LOCAL_IMAGES renders
// {"images": [...]}, and CLEAR_LOCAL_IMAGES renders {"success": true}.
// Any failure renders {"success": false, "error": ...}.
type Response struct {
	Type   string
	Result capture.Result
	Images []capture.CapturedImage
	Err    string
}

// OK reports whether the message was handled without error.
func (r Response) OK() bool {
	if r.Err != "" {
		return false
	}
	if r.Type == MessageSaveImage {
		return r.Result.Success
	}
	return true
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.Type == MessageSaveImage:
		return json.Marshal(r.Result)
	case r.Err != "" && r.Type == MessageGetLocalImages:
		return json.Marshal(struct {
			Images []capture.CapturedImage `json:"images"`
			Error  string                  `json:"error"`
		}{Images: []capture.CapturedImage{}, Error: r.Err})
	case r.Err != "":
		return json.Marshal(capture.Result{Success: false, Error: r.Err})
	case r.Type == MessageGetLocalImages:
		images := r.Images
		if images == nil {
			images = []capture.CapturedImage{}
		}
		return json.Marshal(struct {
			Images []capture.CapturedImage `json:"images"`
		}{Images: images})
	default:
		return json.Marshal(struct {
			Success bool `json:"success"`
		}{Success: true})
	}
}

// Handle dispatches msg and never returns an error; failures are carried in
// the Response.
func (r *Relay) Handle(ctx context.Context, msg Message) Response {
	switch msg.Type {
	case MessageSaveImage:
		var req capture.CaptureRequest
		if len(msg.Data) == 0 {
			return Response{Type: msg.Type, Result: capture.Failed(&capture.ValidationError{Field: "image_url", Message: "image_url is required"})}
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return Response{Type: msg.Type, Result: capture.Failed(fmt.Errorf("decode capture request: %w", err))}
		}
		return Response{Type: msg.Type, Result: r.Submit(ctx, req)}
	case MessageGetLocalImages:
		images, err := r.LocalImages(ctx)
		if err != nil {
			return Response{Type: msg.Type, Err: err.Error()}
		}
		return Response{Type: msg.Type, Images: images}
	case MessageClearLocalImages:
		if err := r.ClearLocalImages(ctx); err != nil {
			return Response{Type: msg.Type, Err: err.Error()}
		}
		return Response{Type: msg.Type}
	default:
		return Response{Type: msg.Type, Err: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

// NewSaveMessage wraps req as a SAVE_IMAGE message.
func NewSaveMessage(req capture.CaptureRequest) (Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("encode capture request: %w", err)
	}
	return Message{Type: MessageSaveImage, Data: data}, nil
}
