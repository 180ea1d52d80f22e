package rain

import (
	"time"
)

// DefaultDeviceID is assigned to samples that arrive without a device_id.
const DefaultDeviceID = "ESP-01"

// Sample is one raw submission from a sensor device. Temperature and Humidity
// are nil when the field was absent or not a number; such samples are still
// accepted and persisted, they just never classify as rain.
type Sample struct {
	Temperature *float64
	Humidity    *float64
	DeviceID    string
}

// Reading is one persisted sample.
//
// RainDetected marks episode-start samples only, not the raw classifier
// output: repeated rainy samples inside the same episode are stored with
// RainDetected=false. AlertSent implies RainDetected.
type Reading struct {
	ID           string    `json:"id" bson:"_id"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
	Temperature  *float64  `json:"temperature" bson:"temperature"`
	Humidity     *float64  `json:"humidity" bson:"humidity"`
	RainDetected bool      `json:"rain_detected" bson:"rain_detected"`
	AlertSent    bool      `json:"alert_sent" bson:"alert_sent"`
	DeviceID     string    `json:"device_id" bson:"device_id"`
}

// SessionState describes the current rain episode for one session.
// LastRainEnd is nil until the first episode has ended.
type SessionState struct {
	IsRaining   bool       `json:"is_raining"`
	LastRainEnd *time.Time `json:"last_rain_end,omitempty"`
}

// Float returns a pointer to v. Convenience for building samples.
func Float(v float64) *float64 {
	return &v
}
