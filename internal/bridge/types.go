package bridge

import (
	"time"

	"cherthat/internal/capture"
)

// ServiceName is the JSON-RPC service name registered by the daemon.
const ServiceName = "Relay"

// Empty is the argument for methods that take no input.
type Empty struct{}

// LocalImagesResponse carries the fallback store contents.
type LocalImagesResponse struct {
	Images []capture.CapturedImage `json:"images"`
}

// ClearResponse acknowledges a cleared fallback store.
type ClearResponse struct {
	Success bool `json:"success"`
}

// StatusResponse describes the running relay daemon.
type StatusResponse struct {
	PID        int       `json:"pid"`
	Socket     string    `json:"socket"`
	StartedAt  time.Time `json:"started_at"`
	LocalCount int       `json:"local_count"`
	LocalError string    `json:"local_error,omitempty"`
}
