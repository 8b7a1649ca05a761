package activitylog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BearBump/FieldTrack/internal/broker/messages"
	"github.com/BearBump/FieldTrack/internal/models"
)

func validatePayload(p models.ActivityPayload) error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, p.Type)
	}
	if p.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("%w: lat and lng go together", ErrInvalidInput)
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90 || *p.Longitude < -180 || *p.Longitude > 180) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	if p.Details != "" && !json.Valid([]byte(p.Details)) {
		return fmt.Errorf("%w: details must be a JSON string", ErrInvalidInput)
	}
	return nil
}

func toMessage(p models.ActivityPayload, now time.Time) messages.ActivityLogged {
	occurred := now
	if p.Timestamp > 0 {
		occurred = time.UnixMilli(p.Timestamp).UTC()
	}
	title := p.Title
	if title == "" {
		title = p.Type.Title()
	}
	details := p.Details
	if details == "" {
		details = "{}"
	}

	m := messages.ActivityLogged{
		ID:         p.ID,
		UserID:     p.UserID,
		Type:       string(p.Type),
		Title:      title,
		Details:    details,
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		OccurredAt: occurred,
		AcceptedAt: now,
		Device: messages.ActivityDevice{
			Device:         p.Device,
			Browser:        p.Browser,
			BrowserVersion: p.BrowserVersion,
			OS:             p.OS,
		},
		RiskScore: clampRisk(p.RiskScore),
	}
	if p.Latitude != nil {
		m.Location = &messages.ActivityLocation{
			Latitude:  *p.Latitude,
			Longitude: *p.Longitude,
			Accuracy:  p.Accuracy,
			Name:      p.LocationName,
			City:      p.City,
			Country:   p.Country,
			Source:    p.Source,
		}
	}
	return m
}

func fromMessage(m messages.ActivityLogged, now time.Time) models.StoredActivity {
	occurred := m.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	a := models.StoredActivity{
		ID:             m.ID,
		Type:           models.ActivityType(m.Type),
		Title:          m.Title,
		UserID:         m.UserID,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Details:        m.Details,
		Device:         m.Device.Device,
		Browser:        m.Device.Browser,
		BrowserVersion: m.Device.BrowserVersion,
		OS:             m.Device.OS,
		RiskScore:      clampRisk(m.RiskScore),
		OccurredAt:     occurred,
		CreatedAt:      now,
	}
	if loc := m.Location; loc != nil {
		lat, lng := loc.Latitude, loc.Longitude
		a.Latitude = &lat
		a.Longitude = &lng
		a.Accuracy = loc.Accuracy
		a.LocationName = loc.Name
		a.City = loc.City
		a.Country = loc.Country
		a.Source = loc.Source
	}
	return a
}

func lastLocationOf(a models.StoredActivity) models.LastLocation {
	ll := models.LastLocation{
		UserID:       a.UserID,
		Accuracy:     a.Accuracy,
		LocationName: a.LocationName,
		City:         a.City,
		Country:      a.Country,
		Source:       a.Source,
		ActivityID:   a.ID,
		OccurredAt:   a.OccurredAt,
	}
	if a.Latitude != nil && a.Longitude != nil {
		ll.Latitude = *a.Latitude
		ll.Longitude = *a.Longitude
	}
	return ll
}

func clampRisk(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
