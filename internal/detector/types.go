package detector

import (
	"context"
	"errors"
	"time"
)

// ErrNoAPIKey is returned by hosted services configured without credentials.
var ErrNoAPIKey = errors.New("API key required")

type DetectRequest struct {
	Text     string `json:"text"`
	Selected string `json:"selected"`
}

type ServiceResult struct {
	ServiceName string            `json:"service_name"`
	Language    string            `json:"language"`
	Confidence  float64           `json:"confidence"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Latency     time.Duration     `json:"latency"`
	Error       string            `json:"error,omitempty"`
}

// DetectionService identifies the language of a chat message. Failed calls
// return a non-nil result carrying Error alongside the error value.
type DetectionService interface {
	Name() string
	Detect(ctx context.Context, req DetectRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
