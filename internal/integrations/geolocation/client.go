package geolocation

import (
	"context"
	"errors"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
)

var (
	ErrPermissionDenied    = errors.New("geolocation: permission denied")
	ErrPositionUnavailable = errors.New("geolocation: position unavailable")
	ErrTimeout             = errors.New("geolocation: timeout")
	ErrUnsupported         = errors.New("geolocation: unsupported")
)

type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is the oldest platform-cached fix the caller accepts.
	MaximumAge time.Duration
}

// Fix is one item of a watch stream: either a position or an error.
type Fix struct {
	Position Position
	Err      error
}

type Client interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
	// WatchPosition streams fixes until ctx is done; the channel is closed
	// after the subscription has been released.
	WatchPosition(ctx context.Context, opts Options) (<-chan Fix, error)
	QueryPermission(ctx context.Context) (models.Permission, error)
}

// Classify returns a short label of a platform error for logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrPositionUnavailable):
		return "position_unavailable"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "unknown"
	}
}

// FromCode maps wire error codes used by device gateways onto sentinels.
func FromCode(code string) error {
	switch code {
	case "permission_denied":
		return ErrPermissionDenied
	case "position_unavailable":
		return ErrPositionUnavailable
	case "timeout":
		return ErrTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrPositionUnavailable
	}
}
