package capture

import (
	"encoding/json"
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 layout used for created_at on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// CaptureRequest describes one image to be saved.
type CaptureRequest struct {
	ImageURL  string `json:"image_url"`
	SourceURL string `json:"source_url"`
	CreatedAt string `json:"created_at"`
}

// NewCaptureRequest builds a request stamped with now. An empty image URL is
// rejected.
func NewCaptureRequest(imageURL, sourceURL string, now time.Time) (CaptureRequest, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return CaptureRequest{}, &ValidationError{Field: "image_url", Message: "image_url is required"}
	}
	return CaptureRequest{
		ImageURL:  imageURL,
		SourceURL: sourceURL,
		CreatedAt: FormatTime(now),
	}, nil
}

// Validate reports whether the request carries an image URL.
func (r CaptureRequest) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" {
		return &ValidationError{Field: "image_url", Message: "image_url is required"}
	}
	return nil
}

// CapturedImage is a persisted capture in either the collection or the
// fallback store.
type CapturedImage struct {
	ID        string  `json:"id"`
	ImageURL  string  `json:"image_url"`
	SourceURL *string `json:"source_url"`
	CreatedAt string  `json:"created_at"`
}

// Source returns the source URL or an empty string when absent.
func (i CapturedImage) Source() string {
	if i.SourceURL == nil {
		return ""
	}
	return *i.SourceURL
}

// CreatedTime parses CreatedAt, returning the zero time when it is not a
// recognised timestamp.
func (i CapturedImage) CreatedTime() time.Time {
	return ParseTime(i.CreatedAt)
}

// ImageFromRequest converts a request into an image record with the given id.
// An empty source URL becomes null.
func ImageFromRequest(id string, req CaptureRequest) CapturedImage {
	image := CapturedImage{
		ID:        id,
		ImageURL:  req.ImageURL,
		CreatedAt: req.CreatedAt,
	}
	if req.SourceURL != "" {
		source := req.SourceURL
		image.SourceURL = &source
	}
	return image
}

// StringPtr returns a pointer to value, or nil when value is empty.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Result is the outcome of a capture submission. Exactly one of Data or Error
// is meaningful depending on Success.
type Result struct {
	Success bool           `json:"success"`
	Data    *CapturedImage `json:"data,omitempty"`
	Local   bool           `json:"local"`
	Error   string         `json:"error,omitempty"`
}

// MarshalJSON always carries local on success and reduces a failure to
// {success:false, error}.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error,omitempty"`
		}{Error: r.Error})
	}
	type wire Result
	return json.Marshal(wire(r))
}

// Saved builds a successful result.
func Saved(image CapturedImage, local bool) Result {
	return Result{Success: true, Data: &image, Local: local}
}

// Failed builds a failed result carrying err's message.
func Failed(err error) Result {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return Result{Success: false, Error: message}
}

// FormatTime renders t in the wire layout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

var (
	zonedLayouts   = []string{TimeLayout, time.RFC3339Nano, time.RFC3339}
	unzonedLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02 15:04:05"}
)

// ParseTime accepts ISO-8601 timestamps with or without a zone, and plain
// dates. A date-time without a zone is read in local time; a plain date is
// midnight UTC.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	for _, layout := range unzonedLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t
	}
	return time.Time{}
}
