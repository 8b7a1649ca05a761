package fake

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_DefaultPosition(t *testing.T) {
	c := New()
	pos, err := c.CurrentPosition(context.Background(), geolocation.Options{})
	require.NoError(t, err)
	require.NotZero(t, pos.Latitude)
	require.False(t, pos.Timestamp.IsZero())
	require.Len(t, c.Calls(), 1)

	p, err := c.QueryPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.PermissionGranted, p)
}

func TestFakeClient_ScriptRepeatsLast(t *testing.T) {
	c := New().WithCurrent(
		Result{Err: geolocation.ErrPositionUnavailable},
		Result{Position: geolocation.Position{Latitude: 1, Longitude: 2, Accuracy: 3}},
	)
	_, err := c.CurrentPosition(context.Background(), geolocation.Options{})
	require.ErrorIs(t, err, geolocation.ErrPositionUnavailable)

	for i := 0; i < 2; i++ {
		pos, err := c.CurrentPosition(context.Background(), geolocation.Options{})
		require.NoError(t, err)
		require.Equal(t, 1.0, pos.Latitude)
	}
}

func TestFakeClient_DelayHonorsDeadline(t *testing.T) {
	c := New().WithCurrent(Result{Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.CurrentPosition(ctx, geolocation.Options{})
	require.ErrorIs(t, err, geolocation.ErrTimeout)
}

func TestFakeClient_WatchReleasesOnCancel(t *testing.T) {
	c := New().WithWatch(time.Millisecond, geolocation.Fix{Position: geolocation.Position{Latitude: 5}})
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.WatchPosition(ctx, geolocation.Options{})
	require.NoError(t, err)

	fx := <-ch
	require.Equal(t, 5.0, fx.Position.Latitude)
	require.Equal(t, int64(1), c.ActiveWatches())

	cancel()
	for range ch {
	}
	require.Equal(t, int64(0), c.ActiveWatches())
	require.Equal(t, 1, c.WatchCalls())
}
