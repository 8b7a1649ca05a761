package httpsink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClient_Send_OK(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/activity-log", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	lat, lng := 30.1, 31.2
	err := New(srv.URL).Send(context.Background(), models.ActivityPayload{
		ID: "a-1", UserID: "u-1", Type: models.ActivityVisit, Title: "Visit",
		Details: `{"clinic":"x"}`, Latitude: &lat, Longitude: &lng, RiskScore: 25,
	})
	require.NoError(t, err)
	require.Equal(t, "visit", got["type"])
	require.Equal(t, `{"clinic":"x"}`, got["details"])
	require.Equal(t, 30.1, got["lat"])
	require.Nil(t, got["accuracy"])
	require.EqualValues(t, 25, got["riskScore"])
}

func TestClient_Send_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL).Send(context.Background(), models.ActivityPayload{ID: "a-1"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestClient_Send_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	require.Error(t, New(url).Send(context.Background(), models.ActivityPayload{ID: "a-1"}))
}
