package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// everyN is a sub-second schedule for tests; cron.Every rounds up to a second.
type everyN time.Duration

func (e everyN) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

type countingUpdater struct {
	calls  atomic.Int32
	forced atomic.Int32
}

func (u *countingUpdater) Update(ctx context.Context, force bool) (Outcome, error) {
	u.calls.Add(1)
	if force {
		u.forced.Add(1)
	}
	return Outcome{}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()
	ready := make(chan struct{})
	upd := &countingUpdater{}
	s := NewScheduler(SchedulerOptions{Updater: upd, Schedule: everyN(20 * time.Millisecond), Ready: ready, StartupDelay: 30 * time.Millisecond})

	if s.State() != StateStopped {
		t.Fatalf("initial state = %v", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != ErrAlreadyStarted {
		t.Fatalf("second Start = %v", err)
	}
	if s.State() != StateStarting {
		t.Fatalf("state before ready = %v", s.State())
	}
	time.Sleep(50 * time.Millisecond)
	if upd.calls.Load() != 0 {
		t.Fatal("ticked before the connection was ready")
	}

	close(ready)
	waitFor(t, "running", func() bool { return s.State() == StateRunning })
	waitFor(t, "ticks", func() bool { return upd.calls.Load() >= 3 })
	if upd.forced.Load() != 0 {
		t.Fatal("scheduled ticks must not be forced")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateStopped {
		t.Fatalf("state after Stop = %v", s.State())
	}
	n := upd.calls.Load()
	time.Sleep(80 * time.Millisecond)
	if upd.calls.Load() != n {
		t.Fatal("ticks continued after Stop")
	}
}

func TestSchedulerStopWhileStarting(t *testing.T) {
	t.Parallel()
	upd := &countingUpdater{}
	s := NewScheduler(SchedulerOptions{Updater: upd, Schedule: everyN(time.Millisecond), StartupDelay: time.Hour})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateStopped || upd.calls.Load() != 0 {
		t.Fatalf("state=%v calls=%d", s.State(), upd.calls.Load())
	}
	// restartable after stop
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	_ = s.Stop(ctx)
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"", base.Add(time.Minute)},
		{"90s", base.Add(90 * time.Second)},
		{"@every 2m", base.Add(2 * time.Minute)},
		{"*/5 * * * *", base.Add(5 * time.Minute)},
		{"30 * * * * *", base.Add(30 * time.Second)},
	}
	for _, tt := range tests {
		sched, err := ParseSchedule(tt.raw)
		if err != nil {
			t.Fatalf("ParseSchedule(%q): %v", tt.raw, err)
		}
		if got := sched.Next(base); !got.Equal(tt.want) {
			t.Errorf("ParseSchedule(%q).Next = %v, want %v", tt.raw, got, tt.want)
		}
	}
	for _, bad := range []string{"-5s", "sometimes", "* * *"} {
		if _, err := ParseSchedule(bad); err == nil {
			t.Errorf("ParseSchedule(%q) should fail", bad)
		}
	}
}
