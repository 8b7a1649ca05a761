package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/integrations/geolocation/fake"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/BearBump/FieldTrack/internal/services/activity"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, dst any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func TestAgentHTTP_LocateLogFallbackReplay(t *testing.T) {
	sink := newSinkServer(t, http.StatusInternalServerError)
	client := fake.New().WithCurrent(fake.Result{Position: geolocation.Position{Latitude: 30.05, Longitude: 31.24, Accuracy: 12}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildAgent(ctx, testConfig(t, sink.srv.URL), testFactories(t, client))
	require.NoError(t, err)
	defer a.Close()
	go func() { _ = a.replayer.Run(ctx) }()

	srv := httptest.NewServer(newAgentRouter(a))
	defer srv.Close()

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", nil))

	status := getJSON(t, srv.URL+"/location?cached=true", nil)
	require.Equal(t, http.StatusNotFound, status)

	var sample models.LocationSample
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/location", &sample))
	require.Equal(t, models.SourceGPS, sample.Source)
	require.Equal(t, 30.05, sample.Latitude)

	var perm models.PermissionState
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/permission", &perm))
	require.Equal(t, models.PermissionGranted, perm.Status)

	var logged map[string]string
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/activity",
		`{"type":"visit","userId":"u-1","details":{"entityType":"clinic","entityId":"c-3"}}`, &logged))
	require.NotEmpty(t, logged["id"])

	var queued struct {
		Records []models.ActivityRecord `json:"records"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/fallback", &queued))
	require.Len(t, queued.Records, 1)
	require.Equal(t, logged["id"], queued.Records[0].ID)
	require.NotNil(t, queued.Records[0].Location)
	require.Equal(t, models.SourceGPS, queued.Records[0].Location.Source)

	sink.setStatus(http.StatusAccepted)
	require.Equal(t, http.StatusAccepted, postJSON(t, srv.URL+"/replay", "", nil))

	require.Eventually(t, func() bool {
		var st activity.Stats
		getJSON(t, srv.URL+"/stats", &st)
		return st.TotalSent == 1
	}, 2*time.Second, 20*time.Millisecond)

	got := sink.received()
	require.Len(t, got, 1)
	require.Equal(t, logged["id"], got[0].ID)
	require.Equal(t, "c-3", got[0].EntityID)
	require.Equal(t, "u-1", got[0].UserID)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/fallback", &queued))
	require.Empty(t, queued.Records)
}

func TestAgentHTTP_RejectsBadActivity(t *testing.T) {
	sink := newSinkServer(t, http.StatusAccepted)
	a, err := buildAgent(context.Background(), testConfig(t, sink.srv.URL), testFactories(t, fake.New()))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(newAgentRouter(a))
	defer srv.Close()

	require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/activity", `{"type":"dance","userId":"u-1"}`, nil))
	require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/activity", `{"type":"order"}`, nil))
	require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/activity", `{`, nil))
	require.Empty(t, sink.received())
}

func TestAgentHTTP_RequestPermissionDenied(t *testing.T) {
	sink := newSinkServer(t, http.StatusAccepted)
	client := fake.New().WithPermission(models.PermissionDenied, nil)
	a, err := buildAgent(context.Background(), testConfig(t, sink.srv.URL), testFactories(t, client))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(newAgentRouter(a))
	defer srv.Close()

	var perm models.PermissionState
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/permission", "", &perm))
	require.Equal(t, models.PermissionDenied, perm.Status)

	// без разрешения активность пишется без координат
	var logged map[string]string
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/activity", `{"type":"login","userId":"u-2"}`, &logged))
	got := sink.received()
	require.Len(t, got, 1)
	require.Nil(t, got[0].Latitude)
	require.Equal(t, 40, got[0].RiskScore)
	require.Empty(t, client.Calls())
}

func TestServeAgent_StopsOnCancel(t *testing.T) {
	sink := newSinkServer(t, http.StatusAccepted)
	a, err := buildAgent(context.Background(), testConfig(t, sink.srv.URL), testFactories(t, fake.New()))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- serveAgent(ctx, a, agentHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		})
	}()

	addr := <-addrCh
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("agent did not stop")
	}
}
