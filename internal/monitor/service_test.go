package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mcstatusbot/internal/mcserver"
	"mcstatusbot/internal/storage"
	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

type fakeAddresses struct {
	saved []string
	fail  error
}

func (f *fakeAddresses) SetServerAddress(addr string) error {
	if f.fail != nil {
		return f.fail
	}
	f.saved = append(f.saved, addr)
	return nil
}

func TestSetAddressUnresolvableLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	addrs := &fakeAddresses{}
	svc := NewService(r.mon, addrs, nil, nil, logx.Nop())

	before, beforeEP, beforeGen := r.mon.Target().Current()
	_, err := svc.SetAddress(context.Background(), Actor{ID: 1}, "nowhere.invalid")
	if !errors.Is(err, mcserver.ErrAddressNotFound) {
		t.Fatalf("err = %v, want ErrAddressNotFound", err)
	}
	after, afterEP, afterGen := r.mon.Target().Current()
	if after != before || afterEP != beforeEP || afterGen != beforeGen {
		t.Fatalf("target changed: %s %v -> %s %v", before, beforeEP, after, afterEP)
	}
	if len(addrs.saved) != 0 || len(r.setter.pushes()) != 0 {
		t.Fatalf("saved=%v pushes=%v", addrs.saved, r.setter.pushes())
	}
}

func TestSetAddressSaveFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{})
	r.client.add("new.example.org", mcserver.Snapshot{})
	svc := NewService(r.mon, &fakeAddresses{fail: errors.New("read-only file system")}, nil, nil, logx.Nop())

	if _, err := svc.SetAddress(context.Background(), Actor{}, "new.example.org"); err == nil {
		t.Fatal("expected save error")
	}
	if svc.Address() != "mc.example.org" {
		t.Fatalf("address = %q", svc.Address())
	}
}

func TestSetAddressSwapsPersistsAndForces(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	newEP := r.client.add("play.example.org", mcserver.Snapshot{PlayersOnline: 7, PlayersMax: 7})

	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	addrs := &fakeAddresses{}
	svc := NewService(r.mon, addrs, nil, st, logx.Nop())

	// an identical presence was already pushed; the forced update must still go out
	if _, err := r.mon.Update(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	out, err := svc.SetAddress(context.Background(), Actor{ID: 42, Username: "owner"}, " play.example.org ")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Pushed || out.Presence != (Presence{kit.PresenceIdle, "7/7 online"}) {
		t.Fatalf("outcome = %+v", out)
	}
	addr, ep, _ := r.mon.Target().Current()
	if addr != "play.example.org" || ep != newEP {
		t.Fatalf("target = %s %v", addr, ep)
	}
	if len(addrs.saved) != 1 || addrs.saved[0] != "play.example.org" {
		t.Fatalf("saved = %v", addrs.saved)
	}
}

func TestPlayers(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{})
	r.client.players = []string{"Notch", "jeb_"}
	svc := NewService(r.mon, nil, nil, nil, logx.Nop())

	list, err := svc.Players(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list.Address != "mc.example.org" || len(list.Names) != 2 || list.Names[1] != "jeb_" {
		t.Fatalf("list = %+v", list)
	}

	r.client.queryErr = errors.New("timed out")
	_, err = svc.Players(context.Background())
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefreshForces(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	svc := NewService(r.mon, nil, nil, nil, logx.Nop())
	for i := 0; i < 3; i++ {
		out, err := svc.Refresh(context.Background())
		if err != nil || !out.Pushed {
			t.Fatalf("refresh %d: %+v %v", i, out, err)
		}
	}
	if n := len(r.setter.pushes()); n != 3 {
		t.Fatalf("pushes = %d", n)
	}
}

func TestJoinedUpdatesOnFirstGroupOnly(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	path := filepath.Join(t.TempDir(), "bot.db")
	st, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(r.mon, nil, NewJoinTracker(st, logx.Nop()), nil, logx.Nop())
	ctx := context.Background()

	svc.Joined(ctx, -100, "survival")
	svc.Joined(ctx, -100, "survival")
	svc.Joined(ctx, -200, "creative")
	if n := r.client.pingCount(); n != 1 {
		t.Fatalf("pings = %d, want 1", n)
	}
	_ = st.Close()

	// a restart remembers the groups, so rejoining does not count as first
	st, err = storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	tracker := NewJoinTracker(st, logx.Nop())
	first, err := tracker.Join(ctx, -100, "survival")
	if err != nil || first {
		t.Fatalf("Join after restart = %v, %v", first, err)
	}
	if tracker.Count() != 2 {
		t.Fatalf("Count = %d", tracker.Count())
	}
}

func TestJoinTrackerInMemory(t *testing.T) {
	t.Parallel()
	j := NewJoinTracker(nil, logx.Nop())
	ctx := context.Background()
	if first, _ := j.Join(ctx, 1, ""); !first {
		t.Fatal("first join must report first")
	}
	if first, _ := j.Join(ctx, 1, ""); first {
		t.Fatal("rejoin must not report first")
	}
	if first, _ := j.Join(ctx, 2, ""); first {
		t.Fatal("second group must not report first")
	}
}

func TestJoinTrackerSeenGroupsAreNotFirst(t *testing.T) {
	t.Parallel()
	j := NewJoinTracker(nil, logx.Nop())
	ctx := context.Background()
	j.Seen(ctx, -1)
	if first, _ := j.Join(ctx, -2, "creative"); first {
		t.Fatal("join after a seen group must not report first")
	}
	if first, _ := j.Join(ctx, -1, ""); first {
		t.Fatal("join of a seen group must not report first")
	}
	if j.Count() != 2 {
		t.Fatalf("Count = %d", j.Count())
	}
}

func TestJoinedSkipsUpdateWhenAlreadyInAGroup(t *testing.T) {
	t.Parallel()
	r := newRig(t, "mc.example.org", mcserver.Snapshot{PlayersOnline: 1, PlayersMax: 2})
	svc := NewService(r.mon, nil, NewJoinTracker(nil, logx.Nop()), nil, logx.Nop())
	ctx := context.Background()

	svc.SeenGroup(ctx, -100)
	svc.Joined(ctx, -200, "creative")
	if n := r.client.pingCount(); n != 0 {
		t.Fatalf("pings = %d, want 0", n)
	}
}
