// Package loop runs the pitch controller against live transports: one
// ingestion goroutine per source feeds the shared controller state, and a
// fixed-period ticker publishes one command per tick.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/transport"
)

const (
	DefaultPeriod     = 40 * time.Millisecond
	DefaultStaleAfter = 500 * time.Millisecond
)

type Config struct {
	Period time.Duration
	// StaleAfter is how long the runner tolerates missing attitude before
	// warning. Zero disables the check.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{Period: DefaultPeriod, StaleAfter: DefaultStaleAfter}
}

// Observer sees the state each command was computed from.
type Observer interface {
	OnTick(s control.State, pwm int)
}

type ObserverFunc func(s control.State, pwm int)

func (f ObserverFunc) OnTick(s control.State, pwm int) { f(s, pwm) }

type Stats struct {
	Ticks         uint64
	Published     uint64
	PublishErrors uint64
	Attitude      uint64
	Gains         uint64
	Targets       uint64
	Rejected      uint64
	LastAttitude  time.Time
	LastCommand   int
	Stale         bool
}

type Runner struct {
	pitch     *control.Pitch
	sink      transport.Sink
	sources   []transport.Source
	cfg       Config
	observers []Observer
	now       func() time.Time

	mu      sync.Mutex
	stats   Stats
	started time.Time
}

func New(pitch *control.Pitch, sink transport.Sink, cfg Config, sources ...transport.Source) *Runner {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	return &Runner{
		pitch:   pitch,
		sink:    sink,
		sources: sources,
		cfg:     cfg,
		now:     time.Now,
	}
}

// AddObserver must be called before Run.
func (r *Runner) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run ticks until ctx is done and returns ctx.Err(). Sources are read until
// they close; the caller owns closing them and the sink.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.started = r.now()
	r.mu.Unlock()

	ingestCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, src := range r.sources {
		wg.Add(1)
		go func(src transport.Source) {
			defer wg.Done()
			r.ingest(ingestCtx, src)
		}(src)
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	glog.Infof("pitch loop started: period=%v sources=%d", r.cfg.Period, len(r.sources))
	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s := r.Stats()
			glog.Infof("pitch loop stopped: ticks=%d published=%d errors=%d", s.Ticks, s.Published, s.PublishErrors)
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) ingest(ctx context.Context, src transport.Source) {
	for {
		msg, err := src.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, transport.ErrClosed) {
				glog.Warningf("source closed: %v", err)
				return
			}
			r.mu.Lock()
			r.stats.Rejected++
			r.mu.Unlock()
			glog.Warningf("dropping inbound message: %v", err)
			continue
		}
		r.Apply(msg)
	}
}

// Apply folds one inbound message into the controller state.
func (r *Runner) Apply(msg transport.Message) {
	switch m := msg.(type) {
	case transport.AttitudeMsg:
		r.pitch.UpdateAttitude(m.AttitudeSample)
		r.mu.Lock()
		r.stats.Attitude++
		r.stats.LastAttitude = r.now()
		if r.stats.Stale {
			glog.Infof("%s resumed", transport.TopicAttitude)
		}
		r.stats.Stale = false
		r.mu.Unlock()
		glog.V(2).Infof("%s pitch=%.4f rate=%.4f", transport.TopicAttitude, m.Pitch, m.PitchRate)

	case transport.GainsMsg:
		applied := r.pitch.UpdateGains(m.GainConfig)
		if applied.CommandMax != m.CommandMax {
			glog.Warningf("%s pwm_max %d below neutral, clamped to %d", transport.TopicSetPitch, m.CommandMax, applied.CommandMax)
		}
		r.mu.Lock()
		r.stats.Gains++
		r.mu.Unlock()
		glog.V(1).Infof("%s max=%d kp=%g kd=%g enabled=%t",
			transport.TopicSetPitch, applied.CommandMax, applied.Kp, applied.Kd, applied.Enabled)

	case transport.TargetMsg:
		if !control.InDegreeDomain(m.Degrees) {
			glog.Warningf("%s %d outside [0, 360), wrapping", transport.TopicSetTarget, m.Degrees)
		}
		rad := r.pitch.SetTarget(m.Degrees)
		r.mu.Lock()
		r.stats.Targets++
		r.mu.Unlock()
		glog.V(1).Infof("%s %d deg -> %.4f rad", transport.TopicSetTarget, m.Degrees, rad)

	default:
		r.mu.Lock()
		r.stats.Rejected++
		r.mu.Unlock()
		glog.Warningf("unhandled message on %s", msg.Topic())
	}
}

func (r *Runner) tick(ctx context.Context) {
	snap := r.pitch.Snapshot()
	pwm := control.Evaluate(snap)

	r.checkStale()
	for _, o := range r.observers {
		o.OnTick(snap, pwm)
	}

	err := r.sink.Publish(ctx, pwm)

	r.mu.Lock()
	r.stats.Ticks++
	r.stats.LastCommand = pwm
	if err != nil {
		r.stats.PublishErrors++
	} else {
		r.stats.Published++
	}
	r.mu.Unlock()

	if err != nil {
		glog.Errorf("publish %s: %v", transport.TopicCommand, err)
		return
	}
	glog.V(2).Infof("%s %d", transport.TopicCommand, pwm)
}

// checkStale warns once per gap in attitude updates.
func (r *Runner) checkStale() {
	if r.cfg.StaleAfter <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stats.Stale {
		return
	}
	last := r.stats.LastAttitude
	if last.IsZero() {
		last = r.started
	}
	if age := r.now().Sub(last); age > r.cfg.StaleAfter {
		r.stats.Stale = true
		glog.Warningf("no %s for %v, commanding from last known attitude", transport.TopicAttitude, age.Round(time.Millisecond))
	}
}
