// Package sensor describes the five readings shown on the home dashboard and
// turns raw endpoint bodies (plain numbers, Blynk pin values and OpenWeather
// JSON) into typed values.
package sensor

// Field identifies one monitored reading. The string form is the key used in
// error maps and JSON output.
type Field string

const (
	HomeTemp    Field = "homeTemp"
	CityTemp    Field = "cityTemp"
	SoundLevel  Field = "soundLevel"
	Humidity    Field = "humidity"
	LightStatus Field = "lightStatus"
)

// Fields lists every polled field in display order.
var Fields = []Field{HomeTemp, CityTemp, SoundLevel, Humidity, LightStatus}

// Reading is a successfully parsed value from one endpoint.
type Reading struct {
	Field Field
	Value float64 // numeric value; 1 or 0 for the light
	On    bool    // light state, only meaningful for LightStatus
	// Missing is set when the endpoint answered but the value was absent
	// (OpenWeather payload without main.temp). Value is 0 in that case.
	Missing bool
}

// Int returns the value truncated toward zero, used for the sound level.
func (r Reading) Int() int {
	return int(r.Value)
}
