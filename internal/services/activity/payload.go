package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
)

const (
	riskNoLocation   = 40
	riskManualSource = 25
	riskLowAccuracy  = 15
	riskLateDelivery = 10

	lowAccuracyMeters = 1000
	lateDeliveryAge   = 5 * time.Minute
)

// BuildPayload renders rec as the activity endpoint body, as of now.
func BuildPayload(rec models.ActivityRecord, dev models.DeviceInfo, now time.Time) models.ActivityPayload {
	p := models.ActivityPayload{
		ID:             rec.ID,
		UserID:         rec.UserID,
		Timestamp:      rec.Timestamp.UnixMilli(),
		Type:           rec.Type,
		Title:          rec.Type.Title(),
		Details:        encodeDetails(rec.Details),
		EntityType:     detailString(rec.Details, "entityType"),
		EntityID:       detailString(rec.Details, "entityId"),
		Device:         dev.Device,
		Browser:        dev.Browser,
		BrowserVersion: dev.BrowserVersion,
		OS:             dev.OS,
		RiskScore:      RiskScore(rec, now),
	}
	if loc := rec.Location; loc != nil {
		lat, lng := loc.Latitude, loc.Longitude
		p.Latitude = &lat
		p.Longitude = &lng
		p.Accuracy = loc.Accuracy
		p.LocationName = loc.Address
		p.City = loc.City
		p.Country = loc.Country
		p.Source = string(loc.Source)
	}
	return p
}

// RiskScore rates how much the location evidence of rec can be trusted,
// 0 (fully located, on time) to 100.
func RiskScore(rec models.ActivityRecord, now time.Time) int {
	score := 0
	if rec.Location == nil {
		score += riskNoLocation
	} else {
		if rec.Location.Source == models.SourceManual {
			score += riskManualSource
		}
		if acc, ok := rec.Location.AccuracyValue(); ok && acc > lowAccuracyMeters {
			score += riskLowAccuracy
		}
	}
	if now.Sub(rec.Timestamp) > lateDeliveryAge {
		score += riskLateDelivery
	}
	if score > 100 {
		score = 100
	}
	return score
}

func encodeDetails(d map[string]any) string {
	if len(d) == 0 {
		return "{}"
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func detailString(d map[string]any, key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
