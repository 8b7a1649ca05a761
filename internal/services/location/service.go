package location

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geocoder"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
	"golang.org/x/sync/singleflight"
)

type Cache interface {
	LoadSample(ctx context.Context) (models.LocationSample, bool, error)
	SaveSample(ctx context.Context, s models.LocationSample) error
	LoadPermission(ctx context.Context) (models.Permission, bool, error)
	SavePermission(ctx context.Context, p models.Permission) error
}

const flightKey = "current"

// Service resolves the device location. One Service per device; it owns the
// in-memory last known sample and the in-flight acquisition.
type Service struct {
	client   geolocation.Client
	cache    Cache
	geo      geocoder.Geocoder
	settings Settings
	now      func() time.Time

	flight singleflight.Group

	mu         sync.Mutex
	last       *models.LocationSample
	permission models.PermissionState

	enrichWG sync.WaitGroup
}

// New builds a Service. client may be nil when the platform has no
// geolocation capability; every acquisition then resolves to the default.
func New(client geolocation.Client, cache Cache, settings Settings) *Service {
	return &Service{
		client:     client,
		cache:      cache,
		settings:   settings.withDefaults(),
		now:        func() time.Time { return time.Now().UTC() },
		permission: models.PermissionState{Status: models.PermissionPrompt},
	}
}

func (s *Service) WithGeocoder(g geocoder.Geocoder) *Service {
	s.geo = g
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Restore loads the last permission decision and sample from the cache.
func (s *Service) Restore(ctx context.Context) {
	if p, ok, err := s.cache.LoadPermission(ctx); err != nil {
		slog.Warn("load cached permission", "error", err.Error())
	} else if ok {
		s.mu.Lock()
		s.permission = models.PermissionState{Status: p}
		s.mu.Unlock()
	}

	if sample, ok, err := s.cache.LoadSample(ctx); err != nil {
		slog.Warn("load cached location", "error", err.Error())
	} else if ok {
		s.setLast(sample)
	}
}

// GetCurrentLocation returns the best available location. It never fails:
// platform errors walk the fallback ladder and end in a stale or default
// sample. Concurrent callers share one acquisition.
func (s *Service) GetCurrentLocation(ctx context.Context) models.LocationSample {
	// The flight outlives any single caller: one caller giving up must not
	// abort the acquisition the others wait on.
	flightCtx := context.WithoutCancel(ctx)
	v, _, shared := s.flight.Do(flightKey, func() (any, error) {
		return s.acquire(flightCtx), nil
	})
	if shared {
		slog.Debug("joined in-flight location request")
	}
	return v.(models.LocationSample)
}

// LastKnown returns the in-memory sample, else the cached one. It never
// touches the platform.
func (s *Service) LastKnown(ctx context.Context) (models.LocationSample, bool) {
	if last, ok := s.lastSample(); ok {
		return last, true
	}
	sample, ok, err := s.cache.LoadSample(ctx)
	if err != nil {
		slog.Warn("load cached location", "error", err.Error())
		return models.LocationSample{}, false
	}
	if ok {
		s.setLast(sample)
	}
	return sample, ok
}

func (s *Service) Permission() models.PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// WaitEnrichment blocks until pending reverse geocoding finishes.
func (s *Service) WaitEnrichment() {
	s.enrichWG.Wait()
}

func (s *Service) lastSample() (models.LocationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return models.LocationSample{}, false
	}
	return *s.last, true
}

func (s *Service) setLast(sample models.LocationSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &sample
}

// remember makes sample the last known one and persists it.
func (s *Service) remember(ctx context.Context, sample models.LocationSample) {
	s.setLast(sample)
	if err := s.cache.SaveSample(ctx, sample); err != nil {
		slog.Warn("save location to cache", "error", err.Error())
	}
}

func (s *Service) recordPermission(ctx context.Context, p models.Permission, msg string) models.PermissionState {
	st := models.PermissionState{Status: p, Error: msg}
	s.mu.Lock()
	s.permission = st
	s.mu.Unlock()
	if err := s.cache.SavePermission(ctx, p); err != nil {
		slog.Warn("save permission to cache", "error", err.Error())
	}
	return st
}

func (s *Service) defaultSample() models.LocationSample {
	d := models.DefaultLocation(s.now())
	if !d.SameCoordinates(s.settings.DefaultLatitude, s.settings.DefaultLongitude) {
		d.Latitude = s.settings.DefaultLatitude
		d.Longitude = s.settings.DefaultLongitude
		d.City, d.Country = "", ""
	}
	return d
}
