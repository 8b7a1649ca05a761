package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/pkg/errors"
)

// LocationCache persists the last known sample and permission decision of
// one device. Keys never expire: freshness is judged by the reader.
type LocationCache struct {
	c        *RedisCache
	deviceID string
}

func NewLocationCache(c *RedisCache, deviceID string) *LocationCache {
	return &LocationCache{c: c, deviceID: deviceID}
}

// cachedSample is the stored shape: {latitude, longitude, accuracy, timestamp(ms)}.
type cachedSample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

func (l *LocationCache) sampleKey() string {
	return fmt.Sprintf("location:%s:last", l.deviceID)
}

func (l *LocationCache) permissionKey() string {
	return fmt.Sprintf("location:%s:permission", l.deviceID)
}

func (l *LocationCache) LoadSample(ctx context.Context) (models.LocationSample, bool, error) {
	b, ok, err := l.c.Get(ctx, l.sampleKey())
	if err != nil || !ok {
		return models.LocationSample{}, false, err
	}
	var cs cachedSample
	if err := json.Unmarshal(b, &cs); err != nil {
		return models.LocationSample{}, false, errors.Wrap(err, "decode cached sample")
	}
	s := models.LocationSample{
		Latitude:  cs.Latitude,
		Longitude: cs.Longitude,
		Accuracy:  cs.Accuracy,
		Timestamp: time.UnixMilli(cs.Timestamp).UTC(),
		Source:    models.ClassifySource(cs.Accuracy),
	}
	if cs.Latitude == models.DefaultLatitude && cs.Longitude == models.DefaultLongitude {
		s.Source = models.SourceManual
	}
	return s, true, nil
}

func (l *LocationCache) SaveSample(ctx context.Context, s models.LocationSample) error {
	b, err := json.Marshal(cachedSample{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Timestamp: s.Timestamp.UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(err, "encode sample")
	}
	return l.c.Set(ctx, l.sampleKey(), b, 0)
}

func (l *LocationCache) LoadPermission(ctx context.Context) (models.Permission, bool, error) {
	b, ok, err := l.c.Get(ctx, l.permissionKey())
	if err != nil || !ok {
		return "", false, err
	}
	p, ok := models.ParsePermission(string(b))
	return p, ok, nil
}

func (l *LocationCache) SavePermission(ctx context.Context, p models.Permission) error {
	return l.c.Set(ctx, l.permissionKey(), []byte(p), 0)
}
