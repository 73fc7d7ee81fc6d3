package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclealek/SmartHome/internal/mood"
	"github.com/unclealek/SmartHome/internal/poller"
	"github.com/unclealek/SmartHome/internal/sensor"
)

type fakeController struct {
	mu       sync.Mutex
	state    poller.State
	ticks    int
	lightSet []bool
	resets   int
	lightErr error
}

func (c *fakeController) Tick(context.Context) (poller.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.state, true
}

func (c *fakeController) State() poller.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeController) SetLight(_ context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lightSet = append(c.lightSet, on)
	if c.lightErr != nil {
		c.state.Notice = poller.Notice{Text: poller.LightFailedNotice, Failed: true}
		return c.lightErr
	}
	c.state.Snapshot.LightStatus = on
	return nil
}

func (c *fakeController) ResetMode(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	c.state.Notice = poller.Notice{Text: poller.ResetSuccessNotice}
	return nil
}

var testNow = time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)

func healthyState() poller.State {
	updated := make(map[sensor.Field]time.Time)
	for _, f := range sensor.Fields {
		updated[f] = testNow
	}
	return poller.State{
		Snapshot: poller.Snapshot{
			HomeTemp:         22.5,
			CityTemp:         -4,
			CityTempReported: true,
			SoundLevel:       37,
			Humidity:         48.5,
		},
		Updated:  updated,
		Errors:   poller.ErrorMap{},
		Mood:     mood.Derive(22.5, 9),
		LastPoll: testNow,
		Polls:    1,
	}
}

func newTestModel(ctrl Controller) Model {
	m := New(context.Background(), ctrl, Options{
		Interval: time.Second,
		Now:      func() time.Time { return testNow },
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return updated.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_Healthy(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, _ := m.Update(stateMsg{state: ctrl.State(), ran: true})
	view := next.(Model).View()

	assert.Contains(t, view, "SMART HOME")
	assert.Contains(t, view, "Good morning! It's a beautiful day!")
	assert.Contains(t, view, "Home Temperature")
	assert.Contains(t, view, "22.5°C")
	assert.Contains(t, view, "-4.0°C")
	assert.Contains(t, view, "48.5%")
	assert.Contains(t, view, "37")
	assert.Contains(t, view, "OFF")
	assert.NotContains(t, view, poller.DegradedStatus)
}

func TestView_Initial(t *testing.T) {
	m := New(context.Background(), &fakeController{state: poller.State{Mood: mood.Initial}}, Options{})
	assert.Equal(t, "  Initializing...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Contains(t, next.(Model).View(), "Welcome to your Smart Home!")
}

func TestView_DegradedListsFailedFields(t *testing.T) {
	st := healthyState()
	st.Errors = poller.ErrorMap{
		sensor.Humidity:    sensor.FailureMessage(sensor.Humidity),
		sensor.LightStatus: sensor.FailureMessage(sensor.LightStatus),
	}
	st.Status = poller.DegradedStatus

	m := newTestModel(&fakeController{state: st})
	next, _ := m.Update(stateMsg{state: st, ran: true})
	view := next.(Model).View()

	assert.Contains(t, view, poller.DegradedStatus)
	assert.Contains(t, view, "Failed to fetch humidity")
	assert.Contains(t, view, "Failed to fetch light status")
	assert.Contains(t, view, "48.5%", "stale value stays on screen")
	assert.Contains(t, view, "(stale)")
}

func TestView_CityTempNotReported(t *testing.T) {
	st := healthyState()
	st.Snapshot.CityTemp = 0
	st.Snapshot.CityTempReported = false

	m := newTestModel(&fakeController{state: st})
	next, _ := m.Update(stateMsg{state: st, ran: true})
	m = next.(Model)
	assert.Contains(t, m.View(), "n/a")
	assert.Nil(t, m.history.Get(sensor.CityTemp))
	assert.Nil(t, m.history.Get(sensor.LightStatus))
	assert.NotNil(t, m.history.Get(sensor.HomeTemp))
}

func TestUpdate_LightToggle(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, cmd := m.Update(key("l"))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.Equal(t, "light", m.pending)
	assert.Contains(t, m.View(), "switching")

	// A second press while the command is in flight is ignored.
	_, again := m.Update(key("l"))
	assert.Nil(t, again)

	msg := cmd()
	next, _ = m.Update(msg)
	m = next.(Model)

	assert.Equal(t, []bool{true}, ctrl.lightSet)
	assert.Empty(t, m.pending)
	assert.True(t, m.state.Snapshot.LightStatus)
	assert.Contains(t, m.View(), "ON")
}

func TestUpdate_LightFailureShowsNotice(t *testing.T) {
	ctrl := &fakeController{state: healthyState(), lightErr: errors.New("status 502")}
	m := newTestModel(ctrl)

	_, cmd := m.Update(key("l"))
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.False(t, m.state.Snapshot.LightStatus)
	assert.Contains(t, m.View(), poller.LightFailedNotice)
}

func TestUpdate_Reset(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	next, _ = next.(Model).Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, ctrl.resets)
	assert.Contains(t, m.View(), poller.ResetSuccessNotice)
}

func TestUpdate_PauseSkipsPolling(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, _ := m.Update(key("p"))
	m = next.(Model)
	require.True(t, m.paused)
	assert.Contains(t, m.View(), "PAUSED")

	_, cmd := m.Update(pollTickMsg(testNow))
	require.NotNil(t, cmd)
	// Paused: only the next timer is scheduled, no poll command is batched.
	_, isBatch := cmd().(tea.BatchMsg)
	assert.False(t, isBatch)
	assert.Zero(t, ctrl.ticks)
}

func TestUpdate_PollTickBatchesPoll(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	_, cmd := m.Update(pollTickMsg(testNow))
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)

	msg := batch[0]()
	st, ok := msg.(stateMsg)
	require.True(t, ok)
	assert.True(t, st.ran)
	assert.Equal(t, 1, ctrl.ticks)
}

func TestUpdate_SkippedTicksCounted(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, _ := m.Update(stateMsg{state: ctrl.State(), ran: false})
	m = next.(Model)
	assert.Equal(t, 1, m.skipped)
	assert.Contains(t, m.View(), "1 skipped")
}

func TestUpdate_ClockRefreshesStateAndHistory(t *testing.T) {
	ctrl := &fakeController{state: healthyState()}
	m := newTestModel(ctrl)

	next, cmd := m.Update(clockMsg(testNow.Add(time.Second)))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.Equal(t, "09:15:01", m.clock.Format("15:04:05"))
	require.NotNil(t, m.history.Get(sensor.HomeTemp))
	assert.Len(t, m.history.Get(sensor.HomeTemp).Points, 1)

	// Same reading again: no duplicate point.
	next, _ = m.Update(clockMsg(testNow.Add(2 * time.Second)))
	m = next.(Model)
	assert.Len(t, m.history.Get(sensor.HomeTemp).Points, 1)

	ctrl.mu.Lock()
	ctrl.state.Snapshot.HomeTemp = 23
	ctrl.state.Updated[sensor.HomeTemp] = testNow.Add(5 * time.Second)
	ctrl.mu.Unlock()

	next, _ = m.Update(clockMsg(testNow.Add(6 * time.Second)))
	m = next.(Model)
	assert.Len(t, m.history.Get(sensor.HomeTemp).Points, 2)
	assert.Equal(t, 23.0, m.history.Get(sensor.HomeTemp).Last())
}

func TestUpdate_Quit(t *testing.T) {
	m := newTestModel(&fakeController{state: healthyState()})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
