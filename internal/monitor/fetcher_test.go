package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"mcstatusbot/internal/mcserver"
	logx "mcstatusbot/pkg/logx"
)

func TestFetchConvertsFailures(t *testing.T) {
	t.Parallel()
	c := newFakeClient()
	ep := c.add("mc.example.org", mcserver.Snapshot{PlayersOnline: 2, PlayersMax: 10})
	f := NewFetcher(c, startPool(t, 1), time.Second)
	ctx := context.Background()

	res := f.Fetch(ctx, ep)
	if res.Err != nil || res.Snapshot.PlayersOnline != 2 {
		t.Fatalf("Fetch = %+v", res)
	}

	res = f.Fetch(ctx, mcserver.Endpoint{Host: "unknown.example.org", Port: 25565})
	var ue *UnreachableError
	if !errors.As(res.Err, &ue) || ue.Op != "ping" {
		t.Fatalf("Fetch err = %v, want *UnreachableError", res.Err)
	}

	c.queryErr = errors.New("read udp: connection refused")
	_, err := f.Query(ctx, ep)
	if !errors.As(err, &ue) || ue.Op != "query" || ue.Unwrap() != c.queryErr {
		t.Fatalf("Query err = %v", err)
	}
}

func TestFetchTimesOut(t *testing.T) {
	t.Parallel()
	c := newFakeClient()
	ep := c.add("slow.example.org", mcserver.Snapshot{})
	c.block = make(chan struct{})
	defer close(c.block)

	f := NewFetcher(c, startPool(t, 1), 50*time.Millisecond)
	res := f.Fetch(context.Background(), ep)
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", res.Err)
	}
}

func TestOffloadRecoversPanic(t *testing.T) {
	t.Parallel()
	p := startPool(t, 1)
	_, err := offload(context.Background(), p, time.Second, func(ctx context.Context) (int, error) {
		panic("bad reply")
	})
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
	v, err := offload(context.Background(), p, time.Second, func(ctx context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("pool unusable after panic: %v %v", v, err)
	}
}

func TestOffloadRequiresStartedPool(t *testing.T) {
	t.Parallel()
	p := NewPool(1, logx.Nop())
	if _, err := offload(context.Background(), p, 0, func(ctx context.Context) (int, error) { return 1, nil }); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err = %v", err)
	}
}
