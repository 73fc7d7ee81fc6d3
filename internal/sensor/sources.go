package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errEmptyBody  = errors.New("empty body")
	errNotFinite  = errors.New("not a finite number")
	errOutOfRange = errors.New("out of integer range")
)

// ParseFloat reads a plain-text floating point body such as "23.5\n".
func ParseFloat(f Field, body []byte) (Reading, error) {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return Reading{}, &ParseError{Field: f, Body: s, Err: errEmptyBody}
	}
	v, err := parseFinite(s)
	if err != nil {
		return Reading{}, &ParseError{Field: f, Body: s, Err: err}
	}
	return Reading{Field: f, Value: v}, nil
}

// ParseInt reads a plain-text integer body. Blynk reports some integer pins
// with a fractional part ("42.0"), so a decimal value is accepted and
// truncated toward zero.
func ParseInt(f Field, body []byte) (Reading, error) {
	s := strings.TrimSpace(string(body))
	v, err := parseInteger(s)
	if err != nil {
		return Reading{}, &ParseError{Field: f, Body: s, Err: err}
	}
	return Reading{Field: f, Value: float64(v)}, nil
}

func parseInteger(s string) (int, error) {
	if s == "" {
		return 0, errEmptyBody
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	v = math.Trunc(v)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errOutOfRange
	}
	return int(v), nil
}

// parseFinite rejects NaN and the infinities, which strconv accepts but no
// sensor reports. Values that overflow float64 fail in strconv already.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// weatherPayload is the subset of the OpenWeather current-weather response
// the dashboard reads.
type weatherPayload struct {
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// ParseCityTemp reads main.temp from an OpenWeather JSON body. A well-formed
// payload without the field yields a zero Reading with Missing set; a body
// that is not JSON is a ParseError.
func ParseCityTemp(body []byte) (Reading, error) {
	var p weatherPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Reading{}, &ParseError{Field: CityTemp, Body: string(body), Err: err}
	}
	if p.Main == nil || p.Main.Temp == nil {
		return Reading{Field: CityTemp, Missing: true}, nil
	}
	return Reading{Field: CityTemp, Value: *p.Main.Temp}, nil
}

// LightMode selects how the raw light signal maps to on/off.
type LightMode string

const (
	// LightDirect treats the literal body "1" as on and anything else as off.
	LightDirect LightMode = "direct"
	// LightThreshold reads an integer light level and reports on when it is
	// strictly greater than the threshold.
	LightThreshold LightMode = "threshold"
)

// DefaultLightThreshold is the level above which a threshold-mode light is on.
const DefaultLightThreshold = 50

// LightInterpreter converts a light endpoint body into a Reading.
type LightInterpreter struct {
	Mode      LightMode
	Threshold int
}

// NewLightInterpreter validates the mode and returns an interpreter.
func NewLightInterpreter(mode LightMode, threshold int) (LightInterpreter, error) {
	switch mode {
	case LightDirect, LightThreshold:
	case "":
		mode = LightDirect
	default:
		return LightInterpreter{}, fmt.Errorf("unknown light mode %q", mode)
	}
	return LightInterpreter{Mode: mode, Threshold: threshold}, nil
}

// Interpret maps the body to a light Reading.
func (li LightInterpreter) Interpret(body []byte) (Reading, error) {
	s := strings.TrimSpace(string(body))

	if li.Mode != LightThreshold {
		on := s == "1"
		return lightReading(on), nil
	}

	level, err := parseInteger(s)
	if err != nil {
		return Reading{}, &ParseError{Field: LightStatus, Body: s, Err: err}
	}
	return lightReading(level > li.Threshold), nil
}

func lightReading(on bool) Reading {
	r := Reading{Field: LightStatus, On: on}
	if on {
		r.Value = 1
	}
	return r
}
