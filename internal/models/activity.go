package models

import "time"

type ActivityType string

const (
	ActivityLogin              ActivityType = "login"
	ActivityClinicRegistration ActivityType = "clinic_registration"
	ActivityOrder              ActivityType = "order"
	ActivityVisit              ActivityType = "visit"
	ActivityPayment            ActivityType = "payment"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLogin, ActivityClinicRegistration, ActivityOrder, ActivityVisit, ActivityPayment:
		return true
	default:
		return false
	}
}

func (t ActivityType) Title() string {
	switch t {
	case ActivityLogin:
		return "Login"
	case ActivityClinicRegistration:
		return "Clinic registration"
	case ActivityOrder:
		return "Order"
	case ActivityVisit:
		return "Visit"
	case ActivityPayment:
		return "Payment"
	default:
		return string(t)
	}
}

// ActivityRecord is one business event with an optional location snapshot.
type ActivityRecord struct {
	ID        string          `json:"id"`
	Type      ActivityType    `json:"type"`
	UserID    string          `json:"userId"`
	Location  *LocationSample `json:"location,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Details   map[string]any  `json:"details,omitempty"`
}

// StoredActivity is an activity as persisted by the activity API.
type StoredActivity struct {
	ID         string       `json:"id"`
	Type       ActivityType `json:"type"`
	Title      string       `json:"title"`
	UserID     string       `json:"userId"`
	EntityType string       `json:"entityType,omitempty"`
	EntityID   string       `json:"entityId,omitempty"`
	Details    string       `json:"details"`

	Latitude     *float64 `json:"lat,omitempty"`
	Longitude    *float64 `json:"lng,omitempty"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	LocationName string   `json:"locationName,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	Source       string   `json:"source,omitempty"`

	Device         string `json:"device,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os,omitempty"`
	RiskScore      int    `json:"riskScore"`

	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LastLocation is the most recent located activity of a user.
type LastLocation struct {
	UserID       string    `json:"userId"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lng"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	LocationName string    `json:"locationName,omitempty"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	Source       string    `json:"source,omitempty"`
	ActivityID   string    `json:"activityId"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// ActivityPayload is the body of POST /api/activity-log.
type ActivityPayload struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Timestamp int64        `json:"timestamp"`
	Type      ActivityType `json:"type"`
	Title     string       `json:"title"`
	// Details is a JSON-encoded object.
	Details    string `json:"details"`
	EntityType string `json:"entityType,omitempty"`
	EntityID   string `json:"entityId,omitempty"`

	Latitude     *float64 `json:"lat"`
	Longitude    *float64 `json:"lng"`
	LocationName string   `json:"locationName,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	Accuracy     *float64 `json:"accuracy"`
	Source       string   `json:"source,omitempty"`

	Device         string `json:"device,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os,omitempty"`
	RiskScore      int    `json:"riskScore"`
}

// DeviceInfo describes the client the activity was logged from.
type DeviceInfo struct {
	Device         string
	Browser        string
	BrowserVersion string
	OS             string
}
