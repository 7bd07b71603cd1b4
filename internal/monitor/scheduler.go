package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "mcstatusbot/pkg/logx"
)

const (
	DefaultInterval     = 60 * time.Second
	DefaultStartupDelay = 10 * time.Second
)

var ErrAlreadyStarted = errors.New("scheduler already started")

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Updater is the pipeline the scheduler drives.
type Updater interface {
	Update(ctx context.Context, force bool) (Outcome, error)
}

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var scheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule accepts a Go duration ("60s", "2m") or a cron spec
// ("@every 2m", "*/5 * * * *"). Empty means every 60 seconds.
func ParseSchedule(raw string) (cron.Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return cron.Every(DefaultInterval), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("interval must be > 0")
		}
		return cron.Every(d), nil
	}
	sched, err := scheduleParser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q (use a duration like '60s' or cron like '*/5 * * * *'): %w", raw, err)
	}
	return sched, nil
}

// SchedulerOptions configure a Scheduler.
type SchedulerOptions struct {
	Updater  Updater
	Schedule cron.Schedule
	// Ready is closed once the chat connection is up. Nil means ready.
	Ready        <-chan struct{}
	StartupDelay time.Duration
	Log          logx.Logger
}

// Scheduler drives periodic unforced updates.
//
// Stopped -> Starting (wait for Ready, then StartupDelay, then one tick) ->
// Running (tick on Schedule) -> Stopped on Stop or context end. Ticks never
// overlap; a tick still running when the next one is due is skipped.
type Scheduler struct {
	upd   Updater
	sched cron.Schedule
	ready <-chan struct{}
	delay time.Duration
	log   logx.Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	tickMu sync.Mutex
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		upd:   opts.Updater,
		sched: opts.Schedule,
		ready: opts.Ready,
		delay: opts.StartupDelay,
		log:   opts.Log,
	}
	if s.sched == nil {
		s.sched = cron.Every(DefaultInterval)
	}
	if s.delay < 0 {
		s.delay = 0
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Start launches the loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	return nil
}

// Stop cancels the loop. The state is Stopped on return; Stop then waits
// for an in-flight tick until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	s.state.Store(int32(StateStopped))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel = nil
			s.state.Store(int32(StateStopped))
		}
		s.mu.Unlock()
	}()

	if s.ready != nil {
		select {
		case <-ctx.Done():
			return
		case <-s.ready:
		}
	}
	if s.delay > 0 {
		s.log.Info("first status tick delayed", logx.Duration("delay", s.delay))
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})))
	c.Schedule(s.sched, cron.FuncJob(func() { s.tick(ctx) }))

	if ctx.Err() != nil || !s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return
	}
	s.tick(ctx)
	c.Start()
	s.log.Info("scheduler running")

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	out, err := s.upd.Update(ctx, false)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, ErrStale):
		return
	default:
		s.log.Warn("status tick failed", logx.Err(err))
		return
	}
	s.log.Debug("status tick",
		logx.String("presence", out.Presence.String()),
		logx.Bool("pushed", out.Pushed),
		logx.Duration("took", time.Since(start)),
	)
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
