package poller

import (
	"time"

	"github.com/unclealek/SmartHome/internal/mood"
	"github.com/unclealek/SmartHome/internal/sensor"
)

// DegradedStatus is reported while at least one field failed its last fetch.
const DegradedStatus = "Some sensors are not responding"

// Command outcome texts.
const (
	LightFailedNotice  = "Failed to update light status"
	ResetSuccessNotice = "Reset to sound sensor mode successful"
	ResetFailedNotice  = "Failed to reset to sound mode"
	lightOnNotice      = "Light switched on"
	lightOffNotice     = "Light switched off"
)

// Snapshot is the latest known value of each monitored field. A failed fetch
// leaves the previous value in place.
type Snapshot struct {
	HomeTemp   float64 `json:"homeTemp"`
	CityTemp   float64 `json:"cityTemp"`
	SoundLevel int     `json:"soundLevel"`
	Humidity   float64 `json:"humidity"`

	LightStatus bool `json:"lightStatus"`

	// CityTempReported is false when the weather payload answered without
	// main.temp and CityTemp holds the 0 placeholder rather than a reading.
	CityTempReported bool `json:"cityTempReported"`
}

// Value returns a field's value as a float for charting; the light maps to
// 1 or 0.
func (s Snapshot) Value(f sensor.Field) float64 {
	switch f {
	case sensor.HomeTemp:
		return s.HomeTemp
	case sensor.CityTemp:
		return s.CityTemp
	case sensor.SoundLevel:
		return float64(s.SoundLevel)
	case sensor.Humidity:
		return s.Humidity
	case sensor.LightStatus:
		if s.LightStatus {
			return 1
		}
	}
	return 0
}

// ErrorMap holds a message for every field whose most recent fetch failed.
type ErrorMap map[sensor.Field]string

// Fields returns the failed fields in display order.
func (e ErrorMap) Fields() []sensor.Field {
	var out []sensor.Field
	for _, f := range sensor.Fields {
		if _, ok := e[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Notice is the outcome of the last device command. A zero Expires means the
// notice stays until the next command replaces it.
type Notice struct {
	Text    string    `json:"text,omitempty"`
	Failed  bool      `json:"failed,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Visible reports whether the notice should still be shown at now.
func (n Notice) Visible(now time.Time) bool {
	if n.Text == "" {
		return false
	}
	return n.Expires.IsZero() || now.Before(n.Expires)
}

// State is a detached copy of everything a renderer needs.
type State struct {
	Snapshot Snapshot                   `json:"snapshot"`
	Updated  map[sensor.Field]time.Time `json:"updated"`
	Errors   ErrorMap                   `json:"errors"`
	Mood     mood.Mood                  `json:"mood"`
	Status   string                     `json:"status,omitempty"`
	Notice   Notice                     `json:"notice"`
	LastPoll time.Time                  `json:"lastPoll"`
	Cycle    string                     `json:"cycle,omitempty"`
	Polls    int                        `json:"polls"`
}

// Degraded reports whether any field failed in the last completed cycle.
func (s State) Degraded() bool {
	return len(s.Errors) > 0
}

func newState() State {
	return State{
		Updated: make(map[sensor.Field]time.Time),
		Errors:  make(ErrorMap),
		Mood:    mood.Initial,
	}
}

func (s State) clone() State {
	out := s
	out.Updated = make(map[sensor.Field]time.Time, len(s.Updated))
	for k, v := range s.Updated {
		out.Updated[k] = v
	}
	out.Errors = make(ErrorMap, len(s.Errors))
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}
