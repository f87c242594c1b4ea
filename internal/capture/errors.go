package capture

import (
	"errors"
	"fmt"
)

// ErrorClassifier allows errors to declare their classification.
type ErrorClassifier interface {
	// ErrorKind returns one of the Kind* constants.
	ErrorKind() string
}

const (
	KindValidation        = "validation"
	KindNotFound          = "not_found"
	KindNetwork           = "network"
	KindStorage           = "storage"
	KindBridgeUnavailable = "bridge_unavailable"
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) ErrorKind() string { return KindValidation }

// NotFoundError reports a delete addressed to an absent image.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image %q not found", e.ID)
}

func (e *NotFoundError) ErrorKind() string { return KindNotFound }

// NetworkError reports an unreachable collection service or an unusable
// response from it.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": network failure"
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) ErrorKind() string { return KindNetwork }

// StorageError reports a failure of the local fallback persistence layer. Its
// message is the layer's own message.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": storage failure"
	}
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) ErrorKind() string { return KindStorage }

// BridgeUnavailableError reports that the relay cannot be reached from the
// page side.
type BridgeUnavailableError struct {
	Err error
}

func (e *BridgeUnavailableError) Error() string {
	if e.Err == nil {
		return "relay bridge unavailable"
	}
	return fmt.Sprintf("relay bridge unavailable: %v", e.Err)
}

func (e *BridgeUnavailableError) Unwrap() error { return e.Err }

func (e *BridgeUnavailableError) ErrorKind() string { return KindBridgeUnavailable }

// Kind returns the classification of err, or an empty string when err does not
// carry one.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind string) bool {
	return err != nil && Kind(err) == kind
}
