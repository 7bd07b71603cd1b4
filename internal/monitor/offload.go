package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"mcstatusbot/internal/runtime/supervisor"
	logx "mcstatusbot/pkg/logx"
)

// ErrPoolClosed is returned when work is submitted to a stopped pool.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs blocking calls on a fixed set of workers so the scheduler and
// command handlers only ever wait on a channel.
type Pool struct {
	workers int
	log     logx.Logger

	jobs chan func()

	mu      sync.RWMutex
	running bool
	sup     *supervisor.Supervisor
}

func NewPool(workers int, log logx.Logger) *Pool {
	if workers <= 0 {
		workers = 2
	}
	return &Pool{workers: workers, log: log, jobs: make(chan func(), workers*4)}
}

// Start launches the workers under sup. They exit when sup's context ends.
func (p *Pool) Start(sup *supervisor.Supervisor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.sup = sup

	for i := 0; i < p.workers; i++ {
		idx := i
		sup.GoRestart("monitor.worker."+strconv.Itoa(idx), func(ctx context.Context) error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-p.jobs:
					job()
				}
			}
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}
	p.log.Debug("worker pool started", logx.Int("workers", p.workers))
}

// offload runs fn on the pool and waits for it or for ctx. fn gets its own
// context bounded by timeout but not by ctx: a read-only call is left to
// finish and its result dropped when the caller gives up.
func offload[T any](ctx context.Context, p *Pool, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	p.mu.RLock()
	running := p.running
	var done <-chan struct{}
	if p.sup != nil {
		done = p.sup.Context().Done()
	}
	p.mu.RUnlock()
	if !running {
		return zero, ErrPoolClosed
	}

	type result struct {
		v   T
		err error
	}
	out := make(chan result, 1)
	job := func() {
		callCtx := context.WithoutCancel(ctx)
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(callCtx, timeout)
			defer cancel()
		}
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("panic in offloaded call", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				out <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		out <- result{v: v, err: err}
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-done:
		return zero, ErrPoolClosed
	}

	select {
	case r := <-out:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
