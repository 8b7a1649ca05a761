package location

import (
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
)

type Settings struct {
	// MaxAge is how long a cached or in-memory sample is served without
	// touching the platform. Default: 600000 ms.
	MaxAge time.Duration

	LowAccuracy  geolocation.Options // 3s, accepts fixes up to 30s old
	StaleRefresh geolocation.Options // 5s high accuracy, up to 60s old
	Watch        geolocation.Options // 5s high accuracy
	WatchGuard   time.Duration       // added on top of Watch.Timeout: 1s
	HighAccuracy geolocation.Options // 8s high accuracy, fresh fix only

	PermissionProbe geolocation.Options
	GeocodeTimeout  time.Duration

	DefaultLatitude  float64
	DefaultLongitude float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxAge: 600_000 * time.Millisecond,

		LowAccuracy: geolocation.Options{
			HighAccuracy: false,
			Timeout:      3000 * time.Millisecond,
			MaximumAge:   30_000 * time.Millisecond,
		},
		StaleRefresh: geolocation.Options{
			HighAccuracy: true,
			Timeout:      5000 * time.Millisecond,
			MaximumAge:   60_000 * time.Millisecond,
		},
		Watch: geolocation.Options{
			HighAccuracy: true,
			Timeout:      5000 * time.Millisecond,
		},
		WatchGuard: 1000 * time.Millisecond,
		HighAccuracy: geolocation.Options{
			HighAccuracy: true,
			Timeout:      8000 * time.Millisecond,
		},

		PermissionProbe: geolocation.Options{
			HighAccuracy: false,
			Timeout:      10 * time.Second,
			MaximumAge:   5 * time.Minute,
		},
		GeocodeTimeout: 10 * time.Second,

		DefaultLatitude:  models.DefaultLatitude,
		DefaultLongitude: models.DefaultLongitude,
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxAge <= 0 {
		s.MaxAge = def.MaxAge
	}
	s.LowAccuracy = optsOr(s.LowAccuracy, def.LowAccuracy)
	s.StaleRefresh = optsOr(s.StaleRefresh, def.StaleRefresh)
	s.Watch = optsOr(s.Watch, def.Watch)
	s.HighAccuracy = optsOr(s.HighAccuracy, def.HighAccuracy)
	s.PermissionProbe = optsOr(s.PermissionProbe, def.PermissionProbe)
	if s.WatchGuard <= 0 {
		s.WatchGuard = def.WatchGuard
	}
	if s.GeocodeTimeout <= 0 {
		s.GeocodeTimeout = def.GeocodeTimeout
	}
	if s.DefaultLatitude == 0 && s.DefaultLongitude == 0 {
		s.DefaultLatitude = def.DefaultLatitude
		s.DefaultLongitude = def.DefaultLongitude
	}
	return s
}

func optsOr(o, def geolocation.Options) geolocation.Options {
	if o.Timeout <= 0 {
		return def
	}
	return o
}
