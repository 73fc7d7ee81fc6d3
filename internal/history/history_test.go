package history

import (
	"testing"
	"time"

	"github.com/unclealek/SmartHome/internal/sensor"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(float64(30+i), now.Add(time.Duration(i)*time.Second))
	}

	if len(h.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(h.Points))
	}

	if h.Last() != 36.0 {
		t.Errorf("Last(): got %f, want 36.0", h.Last())
	}

	// 30 and 31 were evicted.
	if h.Min != 32.0 {
		t.Errorf("Min: got %f, want 32.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	if got := h.Avg(); got != 34.0 {
		t.Errorf("Avg(): got %f, want 34.0", got)
	}

	vals := h.LastN(3)
	if len(vals) != 3 || vals[0] != 34.0 {
		t.Errorf("LastN(3): got %v, want [34 35 36]", vals)
	}
}

func TestPeakFollowsWindow(t *testing.T) {
	h := NewBuffer(3)
	now := time.Now()

	for i, v := range []float64{80, 40, 45, 50} {
		h.Push(v, now.Add(time.Duration(i)*time.Second))
	}

	if h.Peak != 50.0 {
		t.Errorf("Peak after spike evicted: got %f, want 50.0", h.Peak)
	}
	if h.Min != 40.0 {
		t.Errorf("Min: got %f, want 40.0", h.Min)
	}
	if got := h.Avg(); got != 45.0 {
		t.Errorf("Avg(): got %f, want 45.0", got)
	}
}

func TestNegativeReadings(t *testing.T) {
	h := NewBuffer(4)
	now := time.Now()
	h.Push(-12.5, now)
	h.Push(-3, now.Add(time.Second))

	if h.Min != -12.5 || h.Peak != -3 {
		t.Errorf("got min %f peak %f, want -12.5 and -3", h.Min, h.Peak)
	}
}

func TestLastNPoints(t *testing.T) {
	h := NewBuffer(100)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 0; i < 120; i++ {
		h.Push(float64(30+i%10), base.Add(time.Duration(i)*time.Second))
	}

	pts := h.LastNPoints(5)
	if len(pts) != 5 {
		t.Fatalf("LastNPoints(5): got %d, want 5", len(pts))
	}

	last := pts[len(pts)-1]
	if !last.Time.Equal(base.Add(119 * time.Second)) {
		t.Errorf("last point time: got %v, want %v", last.Time, base.Add(119*time.Second))
	}

	pts[0].Value = -1
	if h.LastNPoints(5)[0].Value == -1 {
		t.Error("LastNPoints must return a copy")
	}
}

func TestObserve(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)

	if s.Observe(sensor.Humidity, 40, time.Time{}, true) {
		t.Error("zero time must not be recorded")
	}
	if !s.Observe(sensor.Humidity, 40, base, true) {
		t.Error("first reading should be recorded")
	}
	if s.Observe(sensor.Humidity, 40, base, true) {
		t.Error("repeated reading should be ignored")
	}
	if !s.Observe(sensor.Humidity, 45, base.Add(5*time.Second), true) {
		t.Error("newer reading should be recorded")
	}

	b := s.Get(sensor.Humidity)
	if b == nil || len(b.Points) != 2 {
		t.Fatalf("expected 2 humidity points, got %+v", b)
	}
	if s.Get(sensor.HomeTemp) != nil {
		t.Error("untouched field should have no buffer")
	}
}

func TestObserveSkipsSwitchAndPlaceholders(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)

	if s.Observe(sensor.LightStatus, 1, base, true) {
		t.Error("light status is not charted")
	}
	if s.Get(sensor.LightStatus) != nil {
		t.Error("light status should have no buffer")
	}

	if s.Observe(sensor.CityTemp, 0, base, false) {
		t.Error("unreported city temperature must not be charted as 0")
	}
	if s.Get(sensor.CityTemp) != nil {
		t.Error("placeholder should not create a buffer")
	}

	if !s.Observe(sensor.CityTemp, -4, base.Add(5*time.Second), true) {
		t.Error("reported city temperature should be recorded")
	}
}
