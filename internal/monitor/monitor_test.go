package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"mcstatusbot/internal/mcserver"
	kit "mcstatusbot/internal/transport"
)

func TestUpdateDebounces(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 5, PlayersMax: 20})
	ctx := context.Background()

	out, err := r.mon.Update(ctx, false)
	if err != nil || !out.Pushed {
		t.Fatalf("first update: %+v %v", out, err)
	}
	out, err = r.mon.Update(ctx, false)
	if err != nil || out.Pushed {
		t.Fatalf("second update should be suppressed: %+v %v", out, err)
	}
	out, err = r.mon.Update(ctx, true)
	if err != nil || !out.Pushed {
		t.Fatalf("forced update: %+v %v", out, err)
	}

	r.client.pingErr = errors.New("dial tcp: i/o timeout")
	out, err = r.mon.Update(ctx, false)
	if err != nil || !out.Pushed || out.Unreachable == nil {
		t.Fatalf("offline update: %+v %v", out, err)
	}

	want := []pushed{
		{kit.PresenceOnline, "5/20 online"},
		{kit.PresenceOnline, "5/20 online"},
		{kit.PresenceOffline, TextOffline},
	}
	got := r.setter.pushes()
	if len(got) != len(want) {
		t.Fatalf("pushes = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("push %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestForcedUpdatesAlwaysPush(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 3, PlayersMax: 10})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		out, err := r.mon.Update(ctx, true)
		if err != nil || !out.Pushed {
			t.Fatalf("forced update %d: %+v %v", i, out, err)
		}
	}
	got := r.setter.pushes()
	if len(got) != 2 {
		t.Fatalf("pushes = %+v, want 2 identical pushes", got)
	}
	if got[0] != got[1] || got[0] != (pushed{kit.PresenceOnline, "3/10 online"}) {
		t.Fatalf("pushes = %+v", got)
	}
}

func TestUnchangedPresenceRepushedAfterWindow(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 3, PlayersMax: 10})
	ctx := context.Background()

	if out, _ := r.mon.Update(ctx, false); !out.Pushed {
		t.Fatal("first update not pushed")
	}
	r.now = r.now.Add(DefaultDebounceWindow - time.Minute)
	if out, _ := r.mon.Update(ctx, false); out.Pushed {
		t.Fatal("unchanged presence pushed inside the window")
	}
	r.now = r.now.Add(2 * time.Minute)
	if out, _ := r.mon.Update(ctx, false); !out.Pushed {
		t.Fatal("unchanged presence not pushed after the window")
	}
	if n := len(r.setter.pushes()); n != 2 {
		t.Fatalf("setter saw %d pushes, want 2", n)
	}
}

func TestUpdatePushFailureKeepsState(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	r.setter.fail = errors.New("429 Too Many Requests")

	if _, err := r.mon.Update(context.Background(), false); err == nil {
		t.Fatal("expected push error")
	}
	if _, _, ok := r.mon.Debouncer().Last(); ok {
		t.Fatal("failed push must not be recorded")
	}
}

func TestUpdateDiscardsOnCancel(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	r.client.block = make(chan struct{})
	defer close(r.client.block)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.mon.Update(ctx, true)
		done <- err
	}()
	for r.client.pingCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Update did not return after cancel")
	}
	if len(r.setter.pushes()) != 0 {
		t.Fatal("cancelled update must not push")
	}
}

func TestUpdateDropsStaleTarget(t *testing.T) {
	t.Parallel()
	r := newRig(t, "old.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	newEP := r.client.add("new.example.org", mcserver.Snapshot{PlayersOnline: 3, PlayersMax: 4})
	r.client.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := r.mon.Update(context.Background(), false)
		done <- err
	}()
	for r.client.pingCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	r.mon.Target().Set("new.example.org", newEP)
	close(r.client.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if len(r.setter.pushes()) != 0 {
		t.Fatal("stale result must not be pushed")
	}
}
