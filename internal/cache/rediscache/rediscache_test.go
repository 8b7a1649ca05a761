package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
	require.True(t, mr.TTL("rl:test") > 0)
	require.NoError(t, rl.Close())
}

func TestMinuteKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 7, 59, 0, time.UTC)
	require.Equal(t, "rl:activity:u-1:202503010907", MinuteKey("activity", "u-1", at))
}

func TestLocationCache_SampleRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := NewLocationCache(New(mr.Addr()), "rep-1")
	ctx := context.Background()

	_, ok, err := lc.LoadSample(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ts := time.UnixMilli(1735732800123).UTC()
	in := models.LocationSample{
		Latitude: 30.1, Longitude: 31.2, Accuracy: models.Float64(50),
		Timestamp: ts, Source: models.SourceGPS, City: "not cached",
	}
	require.NoError(t, lc.SaveSample(ctx, in))

	raw, err := mr.Get("location:rep-1:last")
	require.NoError(t, err)
	require.JSONEq(t, `{"latitude":30.1,"longitude":31.2,"accuracy":50,"timestamp":1735732800123}`, raw)

	out, ok, err := lc.LoadSample(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 30.1, out.Latitude)
	require.Equal(t, ts, out.Timestamp)
	require.Equal(t, models.SourceGPS, out.Source)
	require.Empty(t, out.City)
}

func TestLocationCache_DefaultIsManual(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := NewLocationCache(New(mr.Addr()), "rep-1")
	ctx := context.Background()

	require.NoError(t, lc.SaveSample(ctx, models.DefaultLocation(time.Now())))
	out, ok, err := lc.LoadSample(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.SourceManual, out.Source)
}

func TestLocationCache_Permission(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := NewLocationCache(New(mr.Addr()), "rep-1")
	ctx := context.Background()

	_, ok, err := lc.LoadPermission(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, lc.SavePermission(ctx, models.PermissionDenied))
	p, ok, err := lc.LoadPermission(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.PermissionDenied, p)
}
