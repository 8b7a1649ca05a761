package models

import "time"

type LocationSource string

const (
	SourceGPS     LocationSource = "gps"
	SourceNetwork LocationSource = "network"
	SourceManual  LocationSource = "manual"
)

// Fixes with accuracy below this radius (meters) are treated as GPS fixes.
const GPSAccuracyThreshold = 100.0

const (
	DefaultLatitude  = 30.0444
	DefaultLongitude = 31.2357
	DefaultAccuracy  = 1000.0
)

// LocationSample is a single resolved position. Samples are passed by value;
// the only post-creation change is address enrichment of the in-memory copy.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`

	Source LocationSource `json:"source"`
}

// ClassifySource maps a platform fix accuracy onto a sample source.
func ClassifySource(accuracy *float64) LocationSource {
	if accuracy != nil && *accuracy < GPSAccuracyThreshold {
		return SourceGPS
	}
	return SourceNetwork
}

// DefaultLocation is the last-resort sample (Cairo) used when no real or
// cached fix exists.
func DefaultLocation(now time.Time) LocationSample {
	acc := DefaultAccuracy
	return LocationSample{
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
		Accuracy:  &acc,
		Timestamp: now,
		City:      "Cairo",
		Country:   "Egypt",
		Source:    SourceManual,
	}
}

func (s LocationSample) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// SameCoordinates reports whether two samples point at the same fix.
func (s LocationSample) SameCoordinates(lat, lng float64) bool {
	return s.Latitude == lat && s.Longitude == lng
}

// SameFix reports whether o is the same fix as s. Timestamps are compared at
// millisecond precision, the resolution the cache keeps.
func (s LocationSample) SameFix(o LocationSample) bool {
	return s.SameCoordinates(o.Latitude, o.Longitude) && s.Timestamp.UnixMilli() == o.Timestamp.UnixMilli()
}

func (s LocationSample) AccuracyValue() (float64, bool) {
	if s.Accuracy == nil {
		return 0, false
	}
	return *s.Accuracy, true
}

func Float64(v float64) *float64 { return &v }
