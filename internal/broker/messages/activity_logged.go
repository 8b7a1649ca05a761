package messages

import "time"

// ActivityLogged is published for every activity accepted by the API.
// The key of the Kafka message is the user id.
type ActivityLogged struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Details    string    `json:"details"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	AcceptedAt time.Time `json:"accepted_at"`

	Location *ActivityLocation `json:"location,omitempty"`
	Device   ActivityDevice    `json:"device"`

	RiskScore int `json:"risk_score"`
}

type ActivityLocation struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Name      string   `json:"name,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Source    string   `json:"source,omitempty"`
}

type ActivityDevice struct {
	Device         string `json:"device,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
}
