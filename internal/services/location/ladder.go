package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
)

func (s *Service) acquire(ctx context.Context) models.LocationSample {
	if s.client == nil {
		slog.Warn("geolocation is not supported, using default location")
		d := s.defaultSample()
		s.remember(ctx, d)
		return d
	}

	now := s.now()

	cached, hasCached, err := s.cache.LoadSample(ctx)
	if err != nil {
		slog.Warn("load cached location", "error", err.Error())
	}
	last, hasLast := s.lastSample()

	if hasCached && cached.Age(now) < s.settings.MaxAge {
		// the in-memory copy of the same fix may already carry an address
		if hasLast && last.SameFix(cached) {
			return last
		}
		s.setLast(cached)
		return cached
	}
	if hasLast && last.Age(now) < s.settings.MaxAge {
		return last
	}

	var previous *models.LocationSample
	switch {
	case hasLast && hasCached:
		previous = &last
		if !last.SameFix(cached) && cached.Timestamp.After(last.Timestamp) {
			previous = &cached
		}
	case hasLast:
		previous = &last
	case hasCached:
		previous = &cached
	}

	pos, err := s.runLadder(ctx, previous != nil)
	if err == nil {
		sample := s.sampleFrom(pos)
		s.remember(ctx, sample)
		s.recordPermission(ctx, models.PermissionGranted, "")
		s.startEnrichment(sample)
		return sample
	}

	if errors.Is(err, geolocation.ErrPermissionDenied) {
		s.recordPermission(ctx, models.PermissionDenied, err.Error())
	}
	if previous != nil {
		slog.Warn("all location attempts failed, using stale location",
			"age", previous.Age(now).String(), "reason", geolocation.Classify(err))
		return *previous
	}

	slog.Warn("all location attempts failed, using default location", "reason", geolocation.Classify(err))
	d := s.defaultSample()
	s.remember(ctx, d)
	return d
}

// runLadder walks the attempts strictly in order. Permission denied ends the
// ladder: retrying cannot succeed until the user changes the decision.
func (s *Service) runLadder(ctx context.Context, hasPrevious bool) (geolocation.Position, error) {
	pos, err := s.attempt(ctx, "low_accuracy", s.settings.LowAccuracy)
	if err == nil || isDenied(err) {
		return pos, err
	}

	if hasPrevious {
		// a stale sample is good enough; one more try, then give up
		return s.attempt(ctx, "stale_refresh", s.settings.StaleRefresh)
	}

	pos, err = s.raceFirstFix(ctx)
	if err == nil || isDenied(err) {
		return pos, err
	}
	return s.attempt(ctx, "high_accuracy", s.settings.HighAccuracy)
}

func (s *Service) attempt(ctx context.Context, name string, opts geolocation.Options) (geolocation.Position, error) {
	actx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	pos, err := s.client.CurrentPosition(actx, opts)
	if err != nil {
		if actx.Err() != nil && !isDenied(err) && !errors.Is(err, geolocation.ErrTimeout) {
			err = fmt.Errorf("%s: %w", err.Error(), geolocation.ErrTimeout)
		}
		slog.Warn("location attempt failed",
			"attempt", name, "reason", geolocation.Classify(err), "error", err.Error())
		return geolocation.Position{}, err
	}
	slog.Debug("location attempt succeeded", "attempt", name, "accuracy", pos.Accuracy)
	return pos, nil
}

// raceFirstFix subscribes to position updates and takes the first good fix.
// The guard deadline covers platforms that ignore their own timeout; leaving
// the function always releases the subscription.
func (s *Service) raceFirstFix(ctx context.Context) (geolocation.Position, error) {
	wctx, cancel := context.WithTimeout(ctx, s.settings.Watch.Timeout+s.settings.WatchGuard)
	defer cancel()

	fixes, err := s.client.WatchPosition(wctx, s.settings.Watch)
	if err != nil {
		slog.Warn("location watch failed", "reason", geolocation.Classify(err), "error", err.Error())
		return geolocation.Position{}, err
	}

	for {
		select {
		case <-wctx.Done():
			slog.Warn("location watch timed out", "after", (s.settings.Watch.Timeout + s.settings.WatchGuard).String())
			return geolocation.Position{}, geolocation.ErrTimeout
		case fx, ok := <-fixes:
			if !ok {
				return geolocation.Position{}, geolocation.ErrPositionUnavailable
			}
			if fx.Err == nil {
				return fx.Position, nil
			}
			if isDenied(fx.Err) {
				slog.Warn("location watch denied", "error", fx.Err.Error())
				return geolocation.Position{}, fx.Err
			}
			slog.Debug("location watch error, waiting for next fix", "reason", geolocation.Classify(fx.Err))
		}
	}
}

func (s *Service) sampleFrom(pos geolocation.Position) models.LocationSample {
	acc := pos.Accuracy
	sample := models.LocationSample{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Accuracy:  &acc,
		Timestamp: pos.Timestamp,
		Source:    models.ClassifySource(&acc),
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	return sample
}

func isDenied(err error) bool {
	return errors.Is(err, geolocation.ErrPermissionDenied)
}
