package location

import (
	"context"
	"log/slog"

	"github.com/BearBump/FieldTrack/internal/integrations/geocoder"
	"github.com/BearBump/FieldTrack/internal/models"
)

// startEnrichment resolves an address for sample in the background.
func (s *Service) startEnrichment(sample models.LocationSample) {
	if s.geo == nil {
		return
	}
	s.enrichWG.Add(1)
	go func() {
		defer s.enrichWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.GeocodeTimeout)
		defer cancel()

		addr, err := s.geo.Reverse(ctx, sample.Latitude, sample.Longitude)
		if err != nil {
			slog.Warn("reverse geocoding failed", "error", err.Error())
			return
		}
		s.applyAddress(sample.Latitude, sample.Longitude, addr)
	}()
}

// applyAddress attaches addr to the in-memory sample only if it still holds
// the geocoded coordinates.
func (s *Service) applyAddress(lat, lng float64, addr geocoder.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || !s.last.SameCoordinates(lat, lng) {
		slog.Debug("discarding geocoding result for a replaced location")
		return false
	}
	updated := *s.last
	updated.Address = addr.FormattedAddress
	updated.City = addr.City
	updated.Country = addr.Country
	s.last = &updated
	return true
}
