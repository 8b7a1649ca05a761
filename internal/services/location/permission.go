package location

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
)

// RequestPermission resolves the location permission. A decided state from
// the platform is returned as is; an undecided one is forced by asking for a
// position, which makes the platform prompt the user.
func (s *Service) RequestPermission(ctx context.Context) models.PermissionState {
	if s.client == nil {
		st := models.PermissionState{Status: models.PermissionDenied, Error: geolocation.ErrUnsupported.Error()}
		s.mu.Lock()
		s.permission = st
		s.mu.Unlock()
		return st
	}

	p, err := s.client.QueryPermission(ctx)
	switch {
	case err == nil && p != models.PermissionPrompt:
		return s.recordPermission(ctx, p, "")
	case err != nil && !errors.Is(err, geolocation.ErrUnsupported):
		slog.Warn("query location permission", "error", err.Error())
	}

	pos, err := s.attempt(ctx, "permission_probe", s.settings.PermissionProbe)
	switch {
	case err == nil:
		s.remember(ctx, s.sampleFrom(pos))
		return s.recordPermission(ctx, models.PermissionGranted, "")
	case isDenied(err):
		return s.recordPermission(ctx, models.PermissionDenied, err.Error())
	default:
		return s.recordPermission(ctx, models.PermissionPrompt, err.Error())
	}
}
