// Package poller implements the dashboard's sensor poller. Each cycle reads
// the five sensor endpoints concurrently, applies every successful reading to
// the shared snapshot as soon as it arrives, and then replaces the error map
// with exactly the fields that failed. Two device commands (light switch and
// mode reset) go through the same HTTP getter and update the snapshot or the
// command notice.
//
// All state lives behind one mutex owned by the Poller; renderers only ever
// see detached State copies.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unclealek/SmartHome/internal/fetch"
	"github.com/unclealek/SmartHome/internal/logger"
	"github.com/unclealek/SmartHome/internal/mood"
	"github.com/unclealek/SmartHome/internal/sensor"
)

const (
	DefaultInterval  = 5 * time.Second
	DefaultNoticeTTL = 3 * time.Second
)

// Endpoint names used for logging, metrics and circuit breakers of the two
// command endpoints. Sensor endpoints use their field name.
const (
	EndpointLightControl = "lightControl"
	EndpointReset        = "reset"
)

// Getter issues a GET against a named endpoint and returns the body of a
// 2xx response. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, endpoint, url string) ([]byte, error)
}

// Recorder receives poll and command outcomes. *metric.Metric satisfies it.
type Recorder interface {
	PollCompleted(d time.Duration)
	TickSkipped()
	FieldFailed(field, kind string)
	CommandCompleted(command string, ok bool)
}

type noopRecorder struct{}

func (noopRecorder) PollCompleted(time.Duration) {}
func (noopRecorder) TickSkipped() {}
func (noopRecorder) FieldFailed(string, string) {}
func (noopRecorder) CommandCompleted(string, bool) {}

// OverlapPolicy decides what a timer tick does while a poll is in flight.
type OverlapPolicy string

const (
	// OverlapSkip drops the tick.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapQueue waits for the running poll; at most one tick waits.
	OverlapQueue OverlapPolicy = "queue"
	// OverlapAllow starts another poll alongside the running one.
	OverlapAllow OverlapPolicy = "overlap"
)

// Endpoints are the fully resolved URLs the poller talks to. LightControl is
// a prefix completed with "1" or "0"; Reset already carries its sentinel.
type Endpoints struct {
	RoomTemp     string
	CityWeather  string
	Sound        string
	Humidity     string
	Light        string
	LightControl string
	Reset        string
}

// Config holds the dependencies for creating a Poller.
type Config struct {
	Endpoints Endpoints
	Light     sensor.LightInterpreter
	Interval  time.Duration
	Overlap   OverlapPolicy
	NoticeTTL time.Duration
	Getter    Getter
	Logger    *logger.Logger
	Recorder  Recorder
	Now       func() time.Time // wall clock; defaults to time.Now
}

// Poller owns the Snapshot, ErrorMap, Mood and command notice.
type Poller struct {
	endpoints Endpoints
	light     sensor.LightInterpreter
	interval  time.Duration
	overlap   OverlapPolicy
	noticeTTL time.Duration
	getter    Getter
	log       *logger.Logger
	rec       Recorder
	now       func() time.Time

	// slots admits the running poll plus, for OverlapQueue, one waiter.
	// Nil for OverlapAllow.
	slots  chan struct{}
	serial sync.Mutex
	seq    atomic.Uint64

	mu sync.Mutex
	st State
	// fieldSeq is the cycle number that last wrote each field; older
	// cycles finishing late cannot overwrite newer values.
	fieldSeq map[sensor.Field]uint64
	errSeq   uint64
	subs     map[int]chan State
	nextSub  int
}

// New validates cfg and returns a Poller with zeroed state.
func New(cfg Config) (*Poller, error) {
	if cfg.Getter == nil {
		return nil, errors.New("poller: getter is required")
	}

	p := &Poller{
		endpoints: cfg.Endpoints,
		light:     cfg.Light,
		interval:  cfg.Interval,
		overlap:   cfg.Overlap,
		noticeTTL: cfg.NoticeTTL,
		getter:    cfg.Getter,
		log:       cfg.Logger,
		rec:       cfg.Recorder,
		now:       cfg.Now,
		st:        newState(),
		fieldSeq:  make(map[sensor.Field]uint64),
		subs:      make(map[int]chan State),
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.noticeTTL <= 0 {
		p.noticeTTL = DefaultNoticeTTL
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	if p.rec == nil {
		p.rec = noopRecorder{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.light.Mode == "" {
		p.light.Mode = sensor.LightDirect
	}

	switch p.overlap {
	case "", OverlapSkip:
		p.overlap = OverlapSkip
		p.slots = make(chan struct{}, 1)
	case OverlapQueue:
		p.slots = make(chan struct{}, 2)
	case OverlapAllow:
	default:
		return nil, fmt.Errorf("poller: unknown overlap policy %q", cfg.Overlap)
	}

	return p, nil
}

// Interval returns the configured polling cadence.
func (p *Poller) Interval() time.Duration { return p.interval }

// Overlap returns the active overlap policy.
func (p *Poller) Overlap() OverlapPolicy { return p.overlap }

// State returns a copy of the current state. An expired notice is cleared.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() State {
	if p.st.Notice.Text != "" && !p.st.Notice.Visible(p.now()) {
		p.st.Notice = Notice{}
	}
	return p.st.clone()
}

// Run polls immediately and then on every interval until ctx is done. Ticks
// go through Tick, so the overlap policy applies. Run returns after the
// in-flight polls have finished.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	tick := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Tick(ctx)
		}()
	}

	tick()

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-t.C:
			tick()
		}
	}
}

// Tick runs one poll subject to the overlap policy. It reports false when
// the tick was dropped, in which case the returned State is the current one.
func (p *Poller) Tick(ctx context.Context) (State, bool) {
	if p.slots != nil {
		select {
		case p.slots <- struct{}{}:
		default:
			p.rec.TickSkipped()
			p.log.Debugw("poll tick dropped", "policy", p.overlap)
			return p.State(), false
		}
		defer func() { <-p.slots }()

		p.serial.Lock()
		defer p.serial.Unlock()
	}
	return p.PollOnce(ctx), true
}

type fieldJob struct {
	field sensor.Field
	url   string
	parse func([]byte) (sensor.Reading, error)
}

func (p *Poller) jobs() []fieldJob {
	return []fieldJob{
		{sensor.HomeTemp, p.endpoints.RoomTemp, func(b []byte) (sensor.Reading, error) {
			return sensor.ParseFloat(sensor.HomeTemp, b)
		}},
		{sensor.CityTemp, p.endpoints.CityWeather, sensor.ParseCityTemp},
		{sensor.SoundLevel, p.endpoints.Sound, func(b []byte) (sensor.Reading, error) {
			return sensor.ParseInt(sensor.SoundLevel, b)
		}},
		{sensor.Humidity, p.endpoints.Humidity, func(b []byte) (sensor.Reading, error) {
			return sensor.ParseFloat(sensor.Humidity, b)
		}},
		{sensor.LightStatus, p.endpoints.Light, p.light.Interpret},
	}
}

// PollOnce reads all five fields concurrently and returns the resulting
// state. It never fails: every field error lands in the ErrorMap. When ctx
// is cancelled mid-cycle, readings that arrived are kept but the ErrorMap
// and status from the previous cycle stay in place.
func (p *Poller) PollOnce(ctx context.Context) State {
	seq := p.seq.Add(1)
	cycle := uuid.NewString()
	start := time.Now()

	var (
		failMu sync.Mutex
		failed = make(ErrorMap)
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, job := range p.jobs() {
		g.Go(func() error {
			r, err := p.fetchField(gCtx, job)
			if err != nil {
				if ctx.Err() != nil {
					// Cut short by the caller, not by the sensor.
					return nil
				}
				failMu.Lock()
				failed[job.field] = sensor.FailureMessage(job.field)
				failMu.Unlock()

				p.rec.FieldFailed(string(job.field), errorKind(err))
				p.log.Warnw("sensor fetch failed",
					"field", job.field,
					"cycle", cycle,
					"err", err,
				)
				// Field failures stay isolated; never cancel siblings.
				return nil
			}
			p.apply(r, seq)
			return nil
		})
	}
	_ = g.Wait()

	cancelled := ctx.Err() != nil

	p.mu.Lock()
	if !cancelled && seq >= p.errSeq {
		p.errSeq = seq
		p.st.Errors = failed
		p.st.Status = ""
		if len(failed) > 0 {
			p.st.Status = DegradedStatus
		}
		p.st.LastPoll = p.now()
		p.st.Cycle = cycle
	}
	p.st.Polls++
	st := p.snapshotLocked()
	p.mu.Unlock()

	elapsed := time.Since(start)
	if cancelled {
		p.log.Debugw("poll cancelled; error map kept", "cycle", cycle, "elapsed", elapsed)
		p.publish(st)
		return st
	}
	p.rec.PollCompleted(elapsed)
	p.log.Debugw("poll complete",
		"cycle", cycle,
		"failed", len(failed),
		"elapsed", elapsed,
	)

	p.publish(st)
	return st
}

func (p *Poller) fetchField(ctx context.Context, job fieldJob) (sensor.Reading, error) {
	body, err := p.getter.Get(ctx, string(job.field), job.url)
	if err != nil {
		return sensor.Reading{}, &sensor.NetworkError{Field: job.field, URL: job.url, Err: err}
	}
	return job.parse(body)
}

// apply writes one reading into the snapshot unless a newer cycle (or a
// command issued after this cycle started) already wrote the field.
func (p *Poller) apply(r sensor.Reading, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.fieldSeq[r.Field] {
		return
	}
	p.fieldSeq[r.Field] = seq

	now := p.now()
	s := &p.st.Snapshot
	switch r.Field {
	case sensor.HomeTemp:
		s.HomeTemp = r.Value
		p.st.Mood = mood.Derive(r.Value, now.Hour())
	case sensor.CityTemp:
		s.CityTemp = r.Value
		s.CityTempReported = !r.Missing
		if r.Missing {
			p.log.Warnw("weather payload has no main.temp; city temperature shown as 0")
		}
	case sensor.SoundLevel:
		s.SoundLevel = r.Int()
	case sensor.Humidity:
		s.Humidity = r.Value
	case sensor.LightStatus:
		s.LightStatus = r.On
	}
	p.st.Updated[r.Field] = now
}

// SetLight asks the device to switch the light on or off. On success the
// snapshot reflects the requested state immediately; on failure it is left
// alone and a persistent failure notice is set.
func (p *Poller) SetLight(ctx context.Context, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	_, err := p.getter.Get(ctx, EndpointLightControl, p.endpoints.LightControl+value)

	p.mu.Lock()
	now := p.now()
	if err != nil {
		p.st.Notice = Notice{Text: LightFailedNotice, Failed: true}
	} else {
		p.st.Snapshot.LightStatus = on
		p.st.Updated[sensor.LightStatus] = now
		// Polls already in flight may carry a light reading from before
		// the switch; only cycles started from now on may overwrite it.
		p.fieldSeq[sensor.LightStatus] = p.seq.Load() + 1

		text := lightOffNotice
		if on {
			text = lightOnNotice
		}
		p.st.Notice = Notice{Text: text, Expires: now.Add(p.noticeTTL)}
	}
	st := p.st.clone()
	p.mu.Unlock()

	p.rec.CommandCompleted("light", err == nil)
	p.publish(st)

	if err != nil {
		p.log.Errorw("light update failed", "on", on, "err", err)
		return &sensor.NetworkError{Field: sensor.LightStatus, URL: p.endpoints.LightControl, Err: err}
	}
	p.log.Infow("light updated", "on", on)
	return nil
}

// ResetMode sends the reset sentinel that returns the device to sound sensor
// mode. The snapshot is not touched; the device changes behavior itself.
func (p *Poller) ResetMode(ctx context.Context) error {
	_, err := p.getter.Get(ctx, EndpointReset, p.endpoints.Reset)

	p.mu.Lock()
	if err != nil {
		p.st.Notice = Notice{Text: ResetFailedNotice, Failed: true}
	} else {
		p.st.Notice = Notice{Text: ResetSuccessNotice, Expires: p.now().Add(p.noticeTTL)}
	}
	st := p.st.clone()
	p.mu.Unlock()

	p.rec.CommandCompleted("reset", err == nil)
	p.publish(st)

	if err != nil {
		p.log.Errorw("reset to sound mode failed", "err", err)
		return fmt.Errorf("reset mode: %w", err)
	}
	p.log.Infow("reset to sound mode")
	return nil
}

// Subscribe returns a channel that receives the state after every poll cycle
// and command. Delivery keeps only the newest pending state. The returned
// func unsubscribes and closes the channel.
func (p *Poller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

func (p *Poller) publish(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- st:
		default:
			// Replace the stale pending state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func errorKind(err error) string {
	var pe *sensor.ParseError
	if errors.As(err, &pe) {
		return "parse"
	}
	if errors.Is(err, fetch.ErrBreakerOpen) {
		return "breaker"
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return "status"
	}
	return "network"
}
