package geolocation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, "ok", Classify(nil))
	require.Equal(t, "permission_denied", Classify(fmt.Errorf("wrap: %w", ErrPermissionDenied)))
	require.Equal(t, "timeout", Classify(context.DeadlineExceeded))
	require.Equal(t, "timeout", Classify(ErrTimeout))
	require.Equal(t, "position_unavailable", Classify(ErrPositionUnavailable))
	require.Equal(t, "unsupported", Classify(ErrUnsupported))
	require.Equal(t, "unknown", Classify(fmt.Errorf("boom")))
}

func TestFromCode(t *testing.T) {
	require.ErrorIs(t, FromCode("permission_denied"), ErrPermissionDenied)
	require.ErrorIs(t, FromCode("timeout"), ErrTimeout)
	require.ErrorIs(t, FromCode("whatever"), ErrPositionUnavailable)
}
