package pgactivity

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPGActivity_RepoFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "fieldtrack_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/fieldtrack_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	lat, lng := 30.1, 31.2

	located := models.StoredActivity{
		ID: "a-1", UserID: "u-1", Type: models.ActivityVisit, Title: "Visit",
		Details:  `{"clinicId":"c-9"}`,
		Latitude: &lat, Longitude: &lng, Accuracy: models.Float64(50),
		City: "Cairo", Source: "gps", RiskScore: 0,
		OccurredAt: base, CreatedAt: base,
	}
	unlocated := models.StoredActivity{
		ID: "a-2", UserID: "u-1", Type: models.ActivityOrder, Title: "Order",
		RiskScore: 40, OccurredAt: base.Add(time.Minute), CreatedAt: base,
	}

	ok, err := st.InsertActivity(ctx, located)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.InsertActivity(ctx, unlocated)
	require.NoError(t, err)
	require.True(t, ok)

	// повторная доставка из kafka
	ok, err = st.InsertActivity(ctx, located)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := st.ListActivities(ctx, "u-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a-2", list[0].ID)
	require.Equal(t, "{}", list[0].Details)
	require.Nil(t, list[0].Latitude)
	require.Equal(t, models.ActivityVisit, list[1].Type)
	require.JSONEq(t, `{"clinicId":"c-9"}`, list[1].Details)
	require.Equal(t, 50.0, *list[1].Accuracy)
	require.True(t, list[1].OccurredAt.Equal(base))

	ll, ok, err := st.LastLocation(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a-1", ll.ActivityID)
	require.Equal(t, 30.1, ll.Latitude)

	_, ok, err = st.LastLocation(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, ok)

	empty, err := st.ListActivities(ctx, "nobody", 0, -1)
	require.NoError(t, err)
	require.Empty(t, empty)
}
