// Package monitor implements the live smart-home dashboard TUI using
// BubbleTea: mood headline, clock, per-sensor cards with sparklines, the
// light switch and the reset command.
package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unclealek/SmartHome/internal/chart"
	"github.com/unclealek/SmartHome/internal/history"
	"github.com/unclealek/SmartHome/internal/poller"
	"github.com/unclealek/SmartHome/internal/sensor"
)

const (
	clockInterval      = 1 * time.Second
	defaultHistorySize = 120
)

// Controller is the poller surface the dashboard drives. *poller.Poller
// satisfies it.
type Controller interface {
	Tick(ctx context.Context) (poller.State, bool)
	State() poller.State
	SetLight(ctx context.Context, on bool) error
	ResetMode(ctx context.Context) error
}

// Options configures the dashboard.
type Options struct {
	Interval    time.Duration
	HistorySize int
	Now         func() time.Time
}

// ── Messages ─────────────────────────────────────────────────────────

type pollTickMsg time.Time

type clockMsg time.Time

type stateMsg struct {
	state poller.State
	ran   bool
}

type commandDoneMsg struct {
	command string
	state   poller.State
	err     error
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the dashboard. Update is the only writer
// of its fields; poller work runs in commands and reports back as messages.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	interval time.Duration
	now      func() time.Time

	state   poller.State
	history *history.Store

	clock   time.Time
	width   int
	height  int
	paused  bool
	pending string // command in flight, "" when idle
	skipped int
}

// New creates the initial model. ctx bounds every poll and command the
// dashboard starts.
func New(ctx context.Context, ctrl Controller, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = poller.DefaultInterval
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		interval: opts.Interval,
		now:      opts.Now,
		state:    ctrl.State(),
		history:  history.NewStore(opts.HistorySize),
		clock:    opts.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func (m Model) pollTickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func (m Model) pollCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		st, ran := ctrl.Tick(ctx)
		return stateMsg{state: st, ran: ran}
	}
}

func (m Model) lightCmd(on bool) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		err := ctrl.SetLight(ctx, on)
		return commandDoneMsg{command: "light", state: ctrl.State(), err: err}
	}
}

func (m Model) resetCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		err := ctrl.ResetMode(ctx)
		return commandDoneMsg{command: "reset", state: ctrl.State(), err: err}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.pollTickCmd(), clockCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "l":
			if m.pending == "" {
				m.pending = "light"
				return m, m.lightCmd(!m.state.Snapshot.LightStatus)
			}
		case "r":
			if m.pending == "" {
				m.pending = "reset"
				return m, m.resetCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case pollTickMsg:
		if m.paused {
			return m, m.pollTickCmd()
		}
		return m, tea.Batch(m.pollCmd(), m.pollTickCmd())

	case clockMsg:
		m.clock = time.Time(msg)
		// Pick up fields that landed mid-cycle and expire stale notices.
		m.setState(m.ctrl.State())
		return m, clockCmd()

	case stateMsg:
		if !msg.ran {
			m.skipped++
		}
		m.setState(msg.state)

	case commandDoneMsg:
		if m.pending == msg.command {
			m.pending = ""
		}
		m.setState(msg.state)
	}

	return m, nil
}

func (m *Model) setState(st poller.State) {
	m.state = st
	for _, f := range sensor.Fields {
		reported := f != sensor.CityTemp || st.Snapshot.CityTempReported
		m.history.Observe(f, st.Snapshot.Value(f), st.Updated[f], reported)
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorCardName = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
	colorLightOn  = lipgloss.Color("226")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := max(m.width-2, 40)

	sections := []string{
		m.renderTitleBar(contentWidth),
		m.renderMood(contentWidth),
	}
	if s := m.renderStatus(contentWidth); s != "" {
		sections = append(sections, s)
	}
	if s := m.renderNotice(contentWidth); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, m.renderCards(contentWidth)...)
	sections = append(sections, m.renderLight(contentWidth))
	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	if m.height > 0 && len(lines) > m.height {
		lines = lines[:m.height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SMART HOME")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{
		lipgloss.NewStyle().Foreground(colorLabel).Render(m.clock.Format("15:04:05")),
	}

	if !m.state.LastPoll.IsZero() {
		statusParts = append(statusParts, dimS.Render("polled "+m.state.LastPoll.Format("15:04:05")))
	}
	if m.skipped > 0 {
		statusParts = append(statusParts, dimS.Render(fmt.Sprintf("%d skipped", m.skipped)))
	}
	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Render("PAUSED"))
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderMood(width int) string {
	mood := m.state.Mood
	return lipgloss.NewStyle().
		Bold(true).
		Width(width).
		Align(lipgloss.Center).
		Padding(1, 0, 0, 0).
		Render(mood.Emoji + "  " + mood.Greeting)
}

// renderStatus lists every field whose last fetch failed.
func (m Model) renderStatus(width int) string {
	if !m.state.Degraded() {
		return ""
	}

	warnS := lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	dimS := lipgloss.NewStyle().Foreground(colorDim)

	rows := []string{warnS.Render("⚠ " + m.state.Status)}
	for _, f := range m.state.Errors.Fields() {
		rows = append(rows, dimS.Render("  • "+m.state.Errors[f]))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(colorWarn).
		Width(width).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderNotice(width int) string {
	n := m.state.Notice
	if !n.Visible(m.now()) {
		return ""
	}
	color := colorOk
	if n.Failed {
		color = colorCrit
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Width(width).
		Padding(0, 1).
		Render(n.Text)
}

func (m Model) renderCards(totalWidth int) []string {
	innerWidth := max(totalWidth-4, 30)
	chartWidth := min(max(innerWidth-60, 15), 140)

	labelW := 18
	valueW := 8

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string
	var lastPts []history.Point

	for _, f := range sensor.Fields {
		if f == sensor.LightStatus {
			continue
		}
		v := m.state.Snapshot.Value(f)
		band := sensor.BandFor(f)
		lo, hi := chart.ScaleFor(f)

		label := lipgloss.NewStyle().
			Foreground(colorCardName).
			Bold(true).
			Width(labelW).
			Render(sensor.FriendlyName(f))

		valueText := chart.RenderValue(f, v)
		if _, failed := m.state.Errors[f]; failed {
			valueText = dimS.Render(chart.FormatValue(f, v))
		}
		if f == sensor.CityTemp && !m.state.Snapshot.CityTempReported && !m.state.Updated[f].IsZero() {
			valueText = dimS.Render("n/a")
		}
		value := lipgloss.NewStyle().
			Width(valueW).
			Align(lipgloss.Right).
			Render(valueText)

		var sparkline, stats string
		if hist := m.history.Get(f); hist != nil {
			rangeMin := math.Min(lo, hist.Min)
			rangeMax := math.Max(hi, hist.Peak)
			pts := hist.LastNPoints(chartWidth)
			lastPts = pts
			sparkline = chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax, band)
			stats = dimS.Render(" avg") + valS.Render(fmt.Sprintf("%6.1f", hist.Avg())) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%6.1f", hist.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%6.1f", hist.Peak))
		} else {
			sparkline = chart.RenderSparkline(nil, chartWidth, lo, hi, band)
		}

		rows = append(rows, label+" "+value+" "+frameL+sparkline+frameR+stats)

		scalePad := strings.Repeat(" ", labelW+valueW+3)
		rows = append(rows, scalePad+chart.RenderScale(v, lo, hi, band, chartWidth))
	}

	if lastPts != nil {
		timeline := chart.RenderTimeline(lastPts, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			rows = append(rows, strings.Repeat(" ", labelW+valueW+3)+timeline)
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	return []string{panel}
}

func (m Model) renderLight(width int) string {
	label := lipgloss.NewStyle().
		Foreground(colorCardName).
		Bold(true).
		Render(sensor.FriendlyName(sensor.LightStatus))

	state := lipgloss.NewStyle().Foreground(colorDim).Render("○ OFF")
	if m.state.Snapshot.LightStatus {
		state = lipgloss.NewStyle().Foreground(colorLightOn).Bold(true).Render("💡 ON")
	}
	if _, failed := m.state.Errors[sensor.LightStatus]; failed {
		state += lipgloss.NewStyle().Foreground(colorDim).Render(" (stale)")
	}

	var hint string
	switch m.pending {
	case "light":
		hint = "switching…"
	case "reset":
		hint = "resetting…"
	}
	hintS := lipgloss.NewStyle().Foreground(colorDim).Render(hint)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(label + "  " + state + "  " + hintS)
}

func (m Model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(chart.ColorNormal).Render("██")
	nearS := lipgloss.NewStyle().Foreground(chart.ColorNear).Render("██")
	warnS := lipgloss.NewStyle().Foreground(chart.ColorWarn).Render("██")
	critS := lipgloss.NewStyle().Foreground(chart.ColorCrit).Render("██")
	tickS := lipgloss.NewStyle().Foreground(chart.ColorTick).Render("│")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	legend := okS + dimS.Render(" ok ") +
		nearS + dimS.Render(" near ") +
		warnS + dimS.Render(" warn ") +
		critS + dimS.Render(" crit ") +
		tickS + dimS.Render(" 1min")

	keys := dimS.Render("l") + keyS.Render(":light") +
		dimS.Render("  r") + keyS.Render(":reset") +
		dimS.Render("  p") + keyS.Render(":pause") +
		dimS.Render("  q") + keyS.Render(":quit")

	gap := max(width-lipgloss.Width(legend)-lipgloss.Width(keys)-4, 1)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}
