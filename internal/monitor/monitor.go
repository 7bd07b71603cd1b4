package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

// ErrStale is returned by Update when the target changed while the status
// was being fetched. The result is dropped.
var ErrStale = errors.New("status belongs to a replaced server address")

// Outcome describes one pass of the pipeline.
type Outcome struct {
	Presence Presence
	Pushed   bool
	// Unreachable is the fetch failure behind an offline presence, if any.
	Unreachable error
}

// Options configure a Monitor. Fetcher, Target and Setter are required.
type Options struct {
	Fetcher   *Fetcher
	Target    *Target
	Setter    kit.PresenceSetter
	Debouncer *Debouncer
	// Marker returns the current maintenance-mode-detection value. It is
	// read on every pass so config reloads take effect without a restart.
	Marker func() any
	Log    logx.Logger
	Now    func() time.Time
}

// Monitor is the explicit state of the status pipeline. Every caller
// (the scheduler, join hooks, commands) goes through Update.
type Monitor struct {
	fetcher   *Fetcher
	target    *Target
	setter    kit.PresenceSetter
	debouncer *Debouncer
	marker    func() any
	log       logx.Logger
	now       func() time.Time

	// pushMu serializes debounce decisions and presence pushes.
	pushMu sync.Mutex
}

func New(opts Options) *Monitor {
	m := &Monitor{
		fetcher:   opts.Fetcher,
		target:    opts.Target,
		setter:    opts.Setter,
		debouncer: opts.Debouncer,
		marker:    opts.Marker,
		log:       opts.Log,
		now:       opts.Now,
	}
	if m.debouncer == nil {
		m.debouncer = NewDebouncer(DefaultDebounceWindow)
	}
	if m.marker == nil {
		m.marker = func() any { return nil }
	}
	if m.log.IsZero() {
		m.log = logx.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Monitor) Target() *Target       { return m.target }
func (m *Monitor) Fetcher() *Fetcher     { return m.fetcher }
func (m *Monitor) Debouncer() *Debouncer { return m.debouncer }

// Update runs fetch, classify, debounce and push. With force the debounce
// gate is bypassed. If ctx ends while the status is being fetched the
// result is discarded and ctx.Err() is returned.
func (m *Monitor) Update(ctx context.Context, force bool) (Outcome, error) {
	addr, ep, gen := m.target.Current()

	res := m.fetcher.Fetch(ctx, ep)
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	p, diag := Classify(res, m.marker())
	if diag != nil {
		m.log.Warn("maintenance detection skipped", logx.Err(diag))
	}
	out := Outcome{Presence: p, Unreachable: res.Err}
	if res.Err != nil {
		m.log.Debug("server unreachable", logx.String("address", addr), logx.Err(res.Err))
	}

	m.pushMu.Lock()
	defer m.pushMu.Unlock()

	if m.target.Generation() != gen {
		m.log.Debug("dropping stale status", logx.String("address", addr))
		return out, ErrStale
	}
	now := m.now()
	if !m.debouncer.ShouldEmit(p, force, now) {
		return out, nil
	}
	if err := m.setter.SetPresence(ctx, p.Status, p.Text); err != nil {
		m.log.Warn("presence push failed", logx.String("presence", p.String()), logx.Err(err))
		return out, err
	}
	m.debouncer.Record(p, now)
	out.Pushed = true
	m.log.Info("presence updated",
		logx.String("status", p.Status.String()),
		logx.String("text", p.Text),
		logx.String("address", addr),
		logx.Bool("forced", force),
	)
	return out, nil
}
