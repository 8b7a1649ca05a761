package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/FieldTrack/config"
	"github.com/BearBump/FieldTrack/internal/cache/rediscache"
	"github.com/BearBump/FieldTrack/internal/integrations/geocoder"
	"github.com/BearBump/FieldTrack/internal/integrations/geocoder/googlemaps"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/devicehttp"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/fake"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/mqttgeo"
	"github.com/BearBump/FieldTrack/internal/integrations/httpsink"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/BearBump/FieldTrack/internal/services/activity"
	"github.com/BearBump/FieldTrack/internal/services/location"
	"github.com/BearBump/FieldTrack/internal/storage/sqlitequeue"
)

type agentFactories struct {
	newGeolocation func(cfg *config.Config) (client geolocation.Client, closeFn func())
	newGeocoder    func(cfg *config.Config) geocoder.Geocoder
	newCache       func(cfg *config.Config) (cache location.Cache, closeFn func())
	newFallback    func(cfg *config.Config) (store activity.FallbackStore, closeFn func(), err error)
	newSink        func(cfg *config.Config) activity.Sink
}

func defaultAgentFactories() agentFactories {
	return agentFactories{
		newGeolocation: func(cfg *config.Config) (geolocation.Client, func()) {
			switch cfg.Agent.Provider {
			case "http":
				if cfg.Agent.ProviderBaseURL != "" {
					return devicehttp.New(cfg.Agent.ProviderBaseURL, deviceID(cfg)), func() {}
				}
			case "mqtt":
				if cfg.MQTT.BrokerURL != "" {
					clientID := cfg.MQTT.ClientID
					if clientID == "" {
						clientID = "location-agent-" + deviceID(cfg)
					}
					c, err := mqttgeo.New(cfg.MQTT.BrokerURL, clientID, cfg.MQTT.TopicPrefix, deviceID(cfg))
					if err == nil {
						return c, c.Close
					}
					slog.Warn("mqtt geolocation unavailable, using fake", "error", err.Error())
				}
			}
			// Без настроенного провайдера работаем на fake.
			return fake.New(), func() {}
		},
		newGeocoder: func(cfg *config.Config) geocoder.Geocoder {
			if cfg.Geocoding.APIKey == "" {
				return nil
			}
			return googlemaps.New(cfg.Geocoding.BaseURL, cfg.Geocoding.APIKey, cfg.Geocoding.Language)
		},
		newCache: func(cfg *config.Config) (location.Cache, func()) {
			rc := rediscache.New(cfg.Redis.Addr())
			return rediscache.NewLocationCache(rc, deviceID(cfg)), func() { _ = rc.Close() }
		},
		newFallback: func(cfg *config.Config) (activity.FallbackStore, func(), error) {
			path := cfg.Agent.FallbackDBPath
			if path == "" {
				path = "data/fallback.db"
			}
			q, err := sqlitequeue.Open(path, cfg.Agent.FallbackCapacity)
			if err != nil {
				return nil, nil, err
			}
			return q, func() { _ = q.Close() }, nil
		},
		newSink: func(cfg *config.Config) activity.Sink {
			return httpsink.New(cfg.Agent.ActivityEndpoint)
		},
	}
}

func deviceID(cfg *config.Config) string {
	if cfg.Agent.DeviceID == "" {
		return "local"
	}
	return cfg.Agent.DeviceID
}

// agent is everything one device needs: location resolution, activity
// logging with its local fallback and the replay loop.
type agent struct {
	location *location.Service
	logger   *activity.Logger
	fallback activity.FallbackStore
	replayer *activity.Replayer

	closers []func()
}

func buildAgent(ctx context.Context, cfg *config.Config, f agentFactories) (*agent, error) {
	a := &agent{}

	client, closeGeo := f.newGeolocation(cfg)
	a.closers = append(a.closers, closeGeo)

	cache, closeCache := f.newCache(cfg)
	a.closers = append(a.closers, closeCache)

	fallback, closeFallback, err := f.newFallback(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeFallback)
	a.fallback = fallback

	a.location = location.New(client, cache, settingsFromConfig(cfg.Agent))
	if g := f.newGeocoder(cfg); g != nil {
		a.location.WithGeocoder(g)
	}
	a.location.Restore(ctx)

	sink := f.newSink(cfg)
	dev := deviceInfo(cfg.Agent)
	a.logger = activity.NewLogger(a.location, sink, fallback, dev)

	interval := time.Duration(cfg.Agent.ReplayIntervalSeconds) * time.Second
	a.replayer = activity.NewReplayer(fallback, sink, dev).
		WithSettings(interval, cfg.Agent.ReplayBatchSize)

	return a, nil
}

func (a *agent) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] != nil {
			a.closers[i]()
		}
	}
	a.closers = nil
}

func settingsFromConfig(c config.AgentConfig) location.Settings {
	s := location.DefaultSettings()
	if c.MaxAgeMs > 0 {
		s.MaxAge = ms(c.MaxAgeMs)
	}
	if c.LowAccuracyTimeoutMs > 0 {
		s.LowAccuracy.Timeout = ms(c.LowAccuracyTimeoutMs)
	}
	if c.StaleRefreshTimeoutMs > 0 {
		s.StaleRefresh.Timeout = ms(c.StaleRefreshTimeoutMs)
	}
	if c.WatchTimeoutMs > 0 {
		s.Watch.Timeout = ms(c.WatchTimeoutMs)
	}
	if c.HighAccuracyTimeoutMs > 0 {
		s.HighAccuracy.Timeout = ms(c.HighAccuracyTimeoutMs)
	}
	if c.PermissionProbeTimeoutMs > 0 {
		s.PermissionProbe.Timeout = ms(c.PermissionProbeTimeoutMs)
	}
	if c.DefaultLatitude != 0 || c.DefaultLongitude != 0 {
		s.DefaultLatitude = c.DefaultLatitude
		s.DefaultLongitude = c.DefaultLongitude
	}
	return s
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func deviceInfo(c config.AgentConfig) models.DeviceInfo {
	dev := models.DeviceInfo{
		Device:         c.Device,
		Browser:        c.Browser,
		BrowserVersion: c.BrowserVersion,
		OS:             c.OS,
	}
	if dev.Device == "" {
		dev.Device = "Desktop"
	}
	if dev.Browser == "" {
		dev.Browser = "location-agent"
	}
	return dev
}
