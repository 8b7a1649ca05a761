package activity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/httpsink"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/BearBump/FieldTrack/internal/storage/sqlitequeue"
	"github.com/stretchr/testify/require"
)

func TestLogActivity_FailingRemoteAddsOneFrontEntry(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	q, err := sqlitequeue.Open(filepath.Join(t.TempDir(), "queue.db"), sqlitequeue.DefaultCapacity)
	require.NoError(t, err)
	defer q.Close()

	for i := 0; i < sqlitequeue.DefaultCapacity; i++ {
		require.NoError(t, q.Push(ctx, models.ActivityRecord{
			ID: fmt.Sprintf("old-%d", i), Type: models.ActivityOrder, UserID: "u-1", Timestamp: time.Now().UTC(),
		}))
	}

	logger := NewLogger(nil, httpsink.New(srv.URL), q, models.DeviceInfo{})
	id := logger.LogActivity(ctx, models.ActivityVisit, "u-1", map[string]any{"note": "x"}, false)
	require.NotEmpty(t, id)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, sqlitequeue.DefaultCapacity, n)

	front, err := q.List(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, id, front[0].ID)
	require.Equal(t, fmt.Sprintf("old-%d", sqlitequeue.DefaultCapacity-1), front[1].ID)
	require.Nil(t, front[0].Location)
}

func TestLogActivity_AcceptedRemoteLeavesQueueEmpty(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	q, err := sqlitequeue.Open(filepath.Join(t.TempDir(), "queue.db"), 0)
	require.NoError(t, err)
	defer q.Close()

	NewLogger(nil, httpsink.New(srv.URL), q, models.DeviceInfo{}).
		LogActivity(ctx, models.ActivityLogin, "u-1", nil, false)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
