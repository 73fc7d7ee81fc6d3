// Package config defines the dashboard's configuration. Values come from the
// process environment, optionally seeded from a .env file, and are validated
// once at startup. Endpoint URLs that are not set explicitly are derived from
// the Blynk token and the OpenWeather API key.
package config

import (
	"fmt"
	"time"
)

// Secret is a string that never prints its value. Use Unmask where the raw
// value is genuinely needed.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// MarshalJSON keeps secrets out of config dumps.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Unmask returns the raw value.
func (s Secret) Unmask() string {
	return string(s)
}

// Config is the top-level configuration.
type Config struct {
	Endpoints EndpointsConfig
	Blynk     BlynkConfig
	Weather   WeatherConfig
	Light     LightConfig
	Poll      PollConfig
	Log       LogConfig
	Server    ServerConfig
}

// EndpointsConfig holds the seven resolved endpoint URLs. Empty values are
// filled by derivation before validation.
type EndpointsConfig struct {
	RoomTemp     string `envconfig:"ROOM_TEMP_URL" validate:"required,url"`
	CityWeather  string `envconfig:"CITY_WEATHER_URL" validate:"required,url"`
	Sound        string `envconfig:"SOUND_URL" validate:"required,url"`
	Humidity     string `envconfig:"HUMIDITY_URL" validate:"required,url"`
	Light        string `envconfig:"LIGHT_URL" validate:"required,url"`
	LightControl string `envconfig:"LIGHT_CONTROL_URL" validate:"required,url"`
	Reset        string `envconfig:"RESET_URL" validate:"required,url"`
}

// BlynkConfig describes the device relay the sensor endpoints are derived
// from.
type BlynkConfig struct {
	Token Secret `envconfig:"BLYNK_TOKEN"`
	Host  string `envconfig:"BLYNK_HOST" default:"https://blynk.cloud" validate:"omitempty,url"`

	PinRoomTemp     string `envconfig:"BLYNK_PIN_ROOM_TEMP" default:"V0"`
	PinSound        string `envconfig:"BLYNK_PIN_SOUND" default:"V3"`
	PinHumidity     string `envconfig:"BLYNK_PIN_HUMIDITY" default:"V1"`
	PinLight        string `envconfig:"BLYNK_PIN_LIGHT" default:"V2"`
	PinLightControl string `envconfig:"BLYNK_PIN_LIGHT_CONTROL" default:"V4"`
	PinReset        string `envconfig:"BLYNK_PIN_RESET" default:"V5"`
}

// WeatherConfig describes the OpenWeather current-weather query.
type WeatherConfig struct {
	APIKey Secret `envconfig:"OPENWEATHER_API_KEY"`
	City   string `envconfig:"OPENWEATHER_CITY" default:"kuopio"`
	Host   string `envconfig:"OPENWEATHER_HOST" default:"https://api.openweathermap.org" validate:"omitempty,url"`
}

// LightConfig selects how the light endpoint body is interpreted.
type LightConfig struct {
	Mode      string `envconfig:"LIGHT_MODE" default:"direct" validate:"oneof=direct threshold"`
	Threshold int    `envconfig:"LIGHT_THRESHOLD" default:"50" validate:"min=0"`
}

// PollConfig controls the polling cadence and request behavior.
type PollConfig struct {
	Interval time.Duration `envconfig:"POLL_INTERVAL" default:"5s" validate:"gt=0"`
	// IntervalMS overrides Interval when positive.
	IntervalMS int           `envconfig:"POLL_INTERVAL_MS" validate:"min=0"`
	Overlap    string        `envconfig:"OVERLAP_POLICY" default:"skip" validate:"oneof=skip queue overlap"`
	Timeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"4s" validate:"gt=0"`
	NoticeTTL  time.Duration `envconfig:"NOTICE_TTL" default:"3s" validate:"gt=0"`

	// BreakerFailures opens an endpoint's circuit after that many
	// consecutive failures. 0 disables breaking.
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"0"`
	BreakerCooldown time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s" validate:"gt=0"`

	HistorySize int `envconfig:"HISTORY_SIZE" default:"120" validate:"min=2,max=10000"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	// File receives logs while the TUI owns the terminal.
	File string `envconfig:"LOG_FILE" default:"smarthome.log"`
}

// ServerConfig configures the headless HTTP surface.
type ServerConfig struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080" validate:"required"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrEnvFile indicates an explicitly requested .env file could not be read.
	ErrEnvFile ConfigErrorType = "ENV_FILE"
	// ErrParsing indicates an environment value did not parse into its type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the populated struct failed validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
