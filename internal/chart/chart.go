// Package chart renders the dashboard's per-field sparklines, minute tick
// marks, timeline labels and band scale bars, colored by the field's
// warn/crit band.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unclealek/SmartHome/internal/history"
	"github.com/unclealek/SmartHome/internal/sensor"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Palette.
const (
	ColorCrit   = lipgloss.Color("196") // red
	ColorWarn   = lipgloss.Color("208") // orange
	ColorNear   = lipgloss.Color("220") // yellow
	ColorNormal = lipgloss.Color("78")  // soft green
	ColorDim    = lipgloss.Color("236")
	ColorTick   = lipgloss.Color("239")
)

// scales are the fixed display ranges for the scale bar and sparklines.
var scales = map[sensor.Field][2]float64{
	sensor.HomeTemp:   {0, 40},
	sensor.CityTemp:   {-30, 40},
	sensor.SoundLevel: {0, 100},
	sensor.Humidity:   {0, 100},
}

// ScaleFor returns the display range for a field.
func ScaleFor(f sensor.Field) (lo, hi float64) {
	if s, ok := scales[f]; ok {
		return s[0], s[1]
	}
	return 0, 1
}

// BandColor returns the color for v within band b.
func BandColor(v float64, b sensor.Band) lipgloss.Color {
	switch {
	case b.HasCrit && v >= b.Crit:
		return ColorCrit
	case b.HasWarn && v >= b.Warn:
		return ColorWarn
	case b.HasWarn && v >= b.Warn*0.85:
		return ColorNear
	default:
		return ColorNormal
	}
}

// RenderSparkline renders a sparkline without timestamp ticks.
func RenderSparkline(values []float64, width int, rangeMin, rangeMax float64, b sensor.Band) string {
	if width <= 0 {
		return ""
	}
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Value: v}
	}
	return RenderSparklinePoints(pts, width, rangeMin, rangeMax, b)
}

// isMinuteTick reports whether point i starts a new minute.
func isMinuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && p.Time.Minute() != points[i-1].Time.Minute()
}

// RenderSparklinePoints renders a sparkline with a subtle pipe at each minute
// boundary.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax float64, b sensor.Band) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(ColorDim)
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < width-len(points); i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(ColorTick)
	for i, p := range points {
		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := math.Max(0, math.Min(1, (p.Value-rangeMin)/span))
		idx := min(int(norm*7), 7)

		style := lipgloss.NewStyle().Foreground(BandColor(p.Value, b))
		if b.HasCrit && p.Value >= b.Crit {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// RenderTimeline renders HH:MM labels under the sparkline at each minute
// tick position.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	line := []rune(strings.Repeat(" ", width))

	lastEnd := -1
	for i, p := range points {
		if !isMinuteTick(points, i) {
			continue
		}
		label := p.Time.Format("15:04")
		start := max(padLen+i-2, 0)
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(ColorTick).Render(string(line))
}

// RenderScale renders a scale bar showing the current value against the
// band's warn and crit marks.
func RenderScale(current, rangeMin, rangeMax float64, b sensor.Band, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		return int(float64(width-1) * (v - rangeMin) / span)
	}

	warnPos, critPos := -1, -1
	if b.HasWarn && b.Warn > rangeMin {
		warnPos = pos(b.Warn)
	}
	if b.HasCrit && b.Crit > rangeMin {
		critPos = pos(b.Crit)
	}
	curPos := min(max(pos(current), 0), width-1)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(BandColor(current, b)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case critPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(ColorCrit).Render("▪"))
		case warnPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(ColorNear).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(ColorDim).Render("·"))
		}
	}

	return sb.String()
}

// FormatValue formats a field value with its unit: one decimal for
// temperatures and humidity, an integer for the sound level.
func FormatValue(f sensor.Field, v float64) string {
	switch f {
	case sensor.SoundLevel:
		return fmt.Sprintf("%d", int(v))
	default:
		return fmt.Sprintf("%.1f%s", v, sensor.Unit(f))
	}
}

// RenderValue renders a field value colored by its band.
func RenderValue(f sensor.Field, v float64) string {
	b := sensor.BandFor(f)
	style := lipgloss.NewStyle().Foreground(BandColor(v, b))
	if b.HasCrit && v >= b.Crit {
		style = style.Bold(true)
	}
	return style.Render(FormatValue(f, v))
}
