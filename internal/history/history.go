// Package history keeps the recent readings of each charted sensor field for
// the dashboard sparklines. Statistics cover the retained window only, so a
// spike that has scrolled off the chart no longer pins the scale.
package history

import (
	"time"

	"github.com/unclealek/SmartHome/internal/sensor"
)

// Point is a single reading in a field's history.
type Point struct {
	Value float64
	Time  time.Time
}

// Buffer holds up to Max points for one field, oldest first.
type Buffer struct {
	Points []Point
	Max    int
	Min    float64
	Peak   float64

	sum float64
}

// NewBuffer creates an empty buffer holding at most capacity points.
func NewBuffer(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
	}
}

// Push appends a reading, evicting the oldest one when full.
func (b *Buffer) Push(v float64, t time.Time) {
	var evicted *Point
	if len(b.Points) == b.Max {
		old := b.Points[0]
		evicted = &old
		b.Points = append(b.Points[:0], b.Points[1:]...)
	}
	b.Points = append(b.Points, Point{Value: v, Time: t})
	b.sum += v

	if evicted != nil {
		b.sum -= evicted.Value
		if evicted.Value <= b.Min || evicted.Value >= b.Peak {
			b.rescan()
			return
		}
	}
	if len(b.Points) == 1 || v < b.Min {
		b.Min = v
	}
	if len(b.Points) == 1 || v > b.Peak {
		b.Peak = v
	}
}

func (b *Buffer) rescan() {
	b.Min, b.Peak, b.sum = b.Points[0].Value, b.Points[0].Value, 0
	for _, p := range b.Points {
		b.Min = min(b.Min, p.Value)
		b.Peak = max(b.Peak, p.Value)
		b.sum += p.Value
	}
}

// Last returns the most recent value, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].Value
}

// LastTime returns the time of the most recent point, or the zero time.
func (b *Buffer) LastTime() time.Time {
	if len(b.Points) == 0 {
		return time.Time{}
	}
	return b.Points[len(b.Points)-1].Time
}

// Avg returns the mean of the retained window.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.sum / float64(len(b.Points))
}

// LastNPoints returns a copy of the newest n points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := max(len(b.Points)-n, 0)
	return append([]Point(nil), b.Points[start:]...)
}

// LastN returns the newest n values.
func (b *Buffer) LastN(n int) []float64 {
	pts := b.LastNPoints(n)
	if pts == nil {
		return nil
	}
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.Value
	}
	return vals
}

// Charted reports whether a field's readings are plotted. The light is a
// switch, not a measurement.
func Charted(f sensor.Field) bool {
	return f != sensor.LightStatus
}

// Store holds one Buffer per charted field.
type Store struct {
	Data     map[sensor.Field]*Buffer
	Capacity int
}

// NewStore creates a store with the given per-field capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[sensor.Field]*Buffer),
		Capacity: capacity,
	}
}

// Observe records a field reading taken at t. It reports false, recording
// nothing, when the field is not charted, the value was a placeholder rather
// than a measurement (reported is false), t is zero, or t is not later than
// the field's newest point. Renderers see the same reading on every state
// refresh until the field is fetched again, so each reading lands once.
func (s *Store) Observe(f sensor.Field, v float64, t time.Time, reported bool) bool {
	if !Charted(f) || !reported || t.IsZero() {
		return false
	}
	b, ok := s.Data[f]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[f] = b
	} else if !t.After(b.LastTime()) {
		return false
	}
	b.Push(v, t)
	return true
}

// Get returns the history buffer for a field, or nil.
func (s *Store) Get(f sensor.Field) *Buffer {
	return s.Data[f]
}
