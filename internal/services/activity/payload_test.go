package activity

import (
	"testing"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := models.ActivityRecord{
		ID:        "a-1",
		Type:      models.ActivityClinicRegistration,
		UserID:    "u-1",
		Timestamp: at,
		Details:   map[string]any{"entityType": "clinic", "entityId": 42, "name": "Nile"},
		Location: &models.LocationSample{
			Latitude: 30.1, Longitude: 31.2, Accuracy: models.Float64(50),
			Address: "Tahrir Sq", City: "Cairo", Country: "Egypt", Source: models.SourceGPS,
		},
	}
	dev := models.DeviceInfo{Device: "Pixel 8", Browser: "Chrome", BrowserVersion: "126", OS: "Android 15"}

	p := BuildPayload(rec, dev, at.Add(time.Minute))
	require.Equal(t, "a-1", p.ID)
	require.Equal(t, at.UnixMilli(), p.Timestamp)
	require.Equal(t, "Clinic registration", p.Title)
	require.JSONEq(t, `{"entityType":"clinic","entityId":42,"name":"Nile"}`, p.Details)
	require.Equal(t, "clinic", p.EntityType)
	require.Equal(t, "42", p.EntityID)
	require.Equal(t, 30.1, *p.Latitude)
	require.Equal(t, 31.2, *p.Longitude)
	require.Equal(t, 50.0, *p.Accuracy)
	require.Equal(t, "Tahrir Sq", p.LocationName)
	require.Equal(t, "gps", p.Source)
	require.Equal(t, "Chrome", p.Browser)
	require.Equal(t, 0, p.RiskScore)
}

func TestBuildPayload_EmptyDetails(t *testing.T) {
	p := BuildPayload(models.ActivityRecord{Type: models.ActivityLogin}, models.DeviceInfo{}, time.Time{})
	require.Equal(t, "{}", p.Details)
	require.Empty(t, p.EntityType)
	require.Nil(t, p.Latitude)
}

func TestRiskScore(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	def := models.DefaultLocation(at)

	cases := []struct {
		name string
		loc  *models.LocationSample
		now  time.Time
		want int
	}{
		{"gps on time", &models.LocationSample{Accuracy: models.Float64(20), Source: models.SourceGPS}, at, 0},
		{"no location", nil, at, 40},
		{"no location late", nil, at.Add(6 * time.Minute), 50},
		{"default location", &def, at, 25},
		{"coarse network fix", &models.LocationSample{Accuracy: models.Float64(2500), Source: models.SourceNetwork}, at, 15},
		{"coarse manual late", &models.LocationSample{Accuracy: models.Float64(5000), Source: models.SourceManual}, at.Add(time.Hour), 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := models.ActivityRecord{Timestamp: at, Location: tc.loc}
			require.Equal(t, tc.want, RiskScore(rec, tc.now))
		})
	}
}
