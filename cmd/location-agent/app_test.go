package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/config"
	"github.com/BearBump/FieldTrack/internal/cache/rediscache"
	"github.com/BearBump/FieldTrack/internal/integrations/geocoder/googlemaps"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/devicehttp"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/fake"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/BearBump/FieldTrack/internal/services/activity"
	"github.com/BearBump/FieldTrack/internal/services/location"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// sinkServer stands in for the activity API.
type sinkServer struct {
	mu     sync.Mutex
	status int
	got    []models.ActivityPayload
	srv    *httptest.Server
}

func newSinkServer(t *testing.T, status int) *sinkServer {
	t.Helper()
	s := &sinkServer{status: status}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p models.ActivityPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.status < 300 {
			s.got = append(s.got, p)
		}
		w.WriteHeader(s.status)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *sinkServer) setStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *sinkServer) received() []models.ActivityPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityPayload(nil), s.got...)
}

func testConfig(t *testing.T, sinkURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Agent.DeviceID = "rep-1"
	cfg.Agent.ActivityEndpoint = sinkURL
	cfg.Agent.FallbackDBPath = filepath.Join(t.TempDir(), "fallback.db")
	cfg.Agent.ReplayIntervalSeconds = 3600
	return cfg
}

func testFactories(t *testing.T, client geolocation.Client) agentFactories {
	t.Helper()
	mr := miniredis.RunT(t)
	f := defaultAgentFactories()
	f.newGeolocation = func(*config.Config) (geolocation.Client, func()) { return client, func() {} }
	f.newCache = func(cfg *config.Config) (location.Cache, func()) {
		rc := rediscache.New(mr.Addr())
		return rediscache.NewLocationCache(rc, deviceID(cfg)), func() { _ = rc.Close() }
	}
	return f
}

func TestDefaultAgentFactories_SelectGeolocationClient(t *testing.T) {
	f := defaultAgentFactories()

	cfgHTTP := &config.Config{Agent: config.AgentConfig{Provider: "http", ProviderBaseURL: "http://localhost:9100"}}
	c1, closeFn := f.newGeolocation(cfgHTTP)
	closeFn()
	_, ok := c1.(*devicehttp.Client)
	require.True(t, ok)

	// mqtt без брокера падает обратно на fake
	cfgMQTT := &config.Config{Agent: config.AgentConfig{Provider: "mqtt"}}
	c2, _ := f.newGeolocation(cfgMQTT)
	_, ok = c2.(*fake.FakeClient)
	require.True(t, ok)

	c3, _ := f.newGeolocation(&config.Config{Agent: config.AgentConfig{Provider: "http"}})
	_, ok = c3.(*fake.FakeClient)
	require.True(t, ok)
}

func TestDefaultAgentFactories_Geocoder(t *testing.T) {
	f := defaultAgentFactories()
	require.Nil(t, f.newGeocoder(&config.Config{}))

	g := f.newGeocoder(&config.Config{Geocoding: config.GeocodingConfig{APIKey: "k"}})
	_, ok := g.(*googlemaps.Client)
	require.True(t, ok)
}

func TestSettingsFromConfig(t *testing.T) {
	def := location.DefaultSettings()
	require.Equal(t, def, settingsFromConfig(config.AgentConfig{}))

	s := settingsFromConfig(config.AgentConfig{
		MaxAgeMs:              300000,
		LowAccuracyTimeoutMs:  1500,
		WatchTimeoutMs:        2000,
		HighAccuracyTimeoutMs: 4000,
		DefaultLatitude:       31.2,
		DefaultLongitude:      29.9,
	})
	require.Equal(t, 5*time.Minute, s.MaxAge)
	require.Equal(t, 1500*time.Millisecond, s.LowAccuracy.Timeout)
	require.Equal(t, def.LowAccuracy.MaximumAge, s.LowAccuracy.MaximumAge)
	require.Equal(t, 2*time.Second, s.Watch.Timeout)
	require.Equal(t, 4*time.Second, s.HighAccuracy.Timeout)
	require.Equal(t, def.StaleRefresh, s.StaleRefresh)
	require.Equal(t, 31.2, s.DefaultLatitude)
}

func TestDeviceInfo_Defaults(t *testing.T) {
	require.Equal(t, models.DeviceInfo{Device: "Desktop", Browser: "location-agent"}, deviceInfo(config.AgentConfig{}))
	require.Equal(t, "Android", deviceInfo(config.AgentConfig{OS: "Android"}).OS)
}

func TestBuildAgent_FallbackErrorClosesOpened(t *testing.T) {
	f := testFactories(t, fake.New())
	closed := false
	f.newGeolocation = func(*config.Config) (geolocation.Client, func()) {
		return fake.New(), func() { closed = true }
	}
	f.newFallback = func(*config.Config) (activity.FallbackStore, func(), error) {
		return nil, nil, errors.New("disk full")
	}

	_, err := buildAgent(context.Background(), testConfig(t, "http://127.0.0.1:1"), f)
	require.Error(t, err)
	require.True(t, closed)
}
