package sensor

// Band holds the warn/crit levels used to color a value. A zero Band means
// the value is never highlighted.
type Band struct {
	Warn    float64
	Crit    float64
	HasWarn bool
	HasCrit bool
}

// fieldIdentity maps each field to its display name, unit, color band and
// the message shown when its fetch fails.
var fieldIdentity = map[Field]struct {
	name    string
	unit    string
	band    Band
	failure string
}{
	HomeTemp: {
		name:    "Home Temperature",
		unit:    "°C",
		band:    Band{Warn: 26, Crit: 30, HasWarn: true, HasCrit: true},
		failure: "Failed to fetch room temperature",
	},
	CityTemp: {
		name:    "City Temperature",
		unit:    "°C",
		band:    Band{Warn: 25, Crit: 30, HasWarn: true, HasCrit: true},
		failure: "Failed to fetch city temperature",
	},
	SoundLevel: {
		name:    "Sound Level",
		unit:    "",
		band:    Band{Warn: 60, Crit: 80, HasWarn: true, HasCrit: true},
		failure: "Failed to fetch sound level",
	},
	Humidity: {
		name:    "Humidity",
		unit:    "%",
		band:    Band{Warn: 60, Crit: 70, HasWarn: true, HasCrit: true},
		failure: "Failed to fetch humidity",
	},
	LightStatus: {
		name:    "Light",
		failure: "Failed to fetch light status",
	},
}

// FriendlyName returns a human-readable name for a field.
func FriendlyName(f Field) string {
	if id, ok := fieldIdentity[f]; ok {
		return id.name
	}
	return "Sensor"
}

// Unit returns the display unit for a field, or "" if it has none.
func Unit(f Field) string {
	return fieldIdentity[f].unit
}

// BandFor returns the color band for a field.
func BandFor(f Field) Band {
	return fieldIdentity[f].band
}

// FailureMessage returns the user-facing message recorded when a field's
// fetch fails.
func FailureMessage(f Field) string {
	if id, ok := fieldIdentity[f]; ok {
		return id.failure
	}
	return "Failed to fetch " + string(f)
}
