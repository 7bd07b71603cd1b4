package monitor

import (
	"testing"
	"time"

	kit "mcstatusbot/internal/transport"
)

func TestDebouncer(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := Presence{kit.PresenceOnline, "1/20 online"}
	b := Presence{kit.PresenceOnline, "2/20 online"}

	d := NewDebouncer(30 * time.Minute)
	if !d.ShouldEmit(a, false, t0) {
		t.Fatal("first call must emit")
	}
	d.Record(a, t0)

	if d.ShouldEmit(a, false, t0.Add(time.Minute)) {
		t.Fatal("identical candidate inside window must be suppressed")
	}
	if !d.ShouldEmit(a, true, t0.Add(time.Minute)) {
		t.Fatal("forced call must emit")
	}
	if !d.ShouldEmit(b, false, t0.Add(time.Minute)) {
		t.Fatal("changed candidate must emit")
	}
	if !d.ShouldEmit(a, false, t0.Add(30*time.Minute)) {
		t.Fatal("unchanged candidate must emit once the window elapsed")
	}
}

func TestDebouncerSuppressDoesNotMutate(t *testing.T) {
	t.Parallel()
	t0 := time.Unix(1000, 0)
	p := Presence{kit.PresenceIdle, "5/5 online"}
	d := NewDebouncer(time.Minute)
	d.Record(p, t0)

	for i := 0; i < 3; i++ {
		if d.ShouldEmit(p, false, t0.Add(10*time.Second)) {
			t.Fatal("expected suppression")
		}
	}
	last, at, ok := d.Last()
	if !ok || last != p || !at.Equal(t0) {
		t.Fatalf("Last = %v %v %v", last, at, ok)
	}
}

func TestDebouncerLastSetAtNeverMovesBack(t *testing.T) {
	t.Parallel()
	t0 := time.Unix(5000, 0)
	d := NewDebouncer(0)
	if _, _, ok := d.Last(); ok {
		t.Fatal("lastSetAt must start unset")
	}
	d.Record(Presence{kit.PresenceOnline, "1/2 online"}, t0)
	d.Record(Presence{kit.PresenceOffline, TextOffline}, t0.Add(-time.Hour))
	last, at, _ := d.Last()
	if !at.Equal(t0) {
		t.Fatalf("lastSetAt moved back to %v", at)
	}
	if last.Status != kit.PresenceOffline {
		t.Fatalf("last = %v", last)
	}
}
