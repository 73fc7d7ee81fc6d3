package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// LoadConfig loads and validates the configuration.
//
// The sequence is:
//  1. Load env files via godotenv. With no arguments a .env in the working
//     directory is loaded if present; named files must exist. Values already
//     in the environment win.
//  2. Process envconfig tags into Config.
//  3. Derive missing endpoint URLs from the Blynk token and OpenWeather key.
//  4. Apply POLL_INTERVAL_MS over POLL_INTERVAL.
//  5. Validate the struct.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, &ConfigError{
			Type:    ErrEnvFile,
			Message: "failed to load env file",
			Err:     err,
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.derive()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return &cfg, nil
}

func (c *Config) derive() {
	if c.Poll.IntervalMS > 0 {
		c.Poll.Interval = time.Duration(c.Poll.IntervalMS) * time.Millisecond
	}

	if token := c.Blynk.Token.Unmask(); token != "" {
		b := c.Blynk
		fill(&c.Endpoints.RoomTemp, b.GetURL(b.PinRoomTemp))
		fill(&c.Endpoints.Sound, b.GetURL(b.PinSound))
		fill(&c.Endpoints.Humidity, b.GetURL(b.PinHumidity))
		fill(&c.Endpoints.Light, b.GetURL(b.PinLight))
		fill(&c.Endpoints.LightControl, b.UpdateURL(b.PinLightControl, ""))
		fill(&c.Endpoints.Reset, b.UpdateURL(b.PinReset, "1"))
	}

	if c.Weather.APIKey.Unmask() != "" {
		fill(&c.Endpoints.CityWeather, c.Weather.URL())
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// GetURL returns the read URL for a virtual pin.
func (b BlynkConfig) GetURL(pin string) string {
	return b.api("get") + "&" + pin
}

// UpdateURL returns the write URL for a virtual pin. An empty value leaves
// the URL ending in "=" so the caller can append the value.
func (b BlynkConfig) UpdateURL(pin, value string) string {
	return b.api("update") + "&" + pin + "=" + value
}

func (b BlynkConfig) api(op string) string {
	return strings.TrimRight(b.Host, "/") + "/external/api/" + op +
		"?token=" + url.QueryEscape(b.Token.Unmask())
}

// URL returns the current-weather query for the configured city in metric
// units.
func (w WeatherConfig) URL() string {
	q := url.Values{}
	q.Set("q", w.City)
	q.Set("units", "metric")
	q.Set("appid", w.APIKey.Unmask())
	return strings.TrimRight(w.Host, "/") + "/data/2.5/weather?" + q.Encode()
}
