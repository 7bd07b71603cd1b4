package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mcstatusbot/internal/mcserver"
	"mcstatusbot/internal/runtime/supervisor"
	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

type fakeClient struct {
	mu       sync.Mutex
	known    map[string]mcserver.Endpoint
	snaps    map[string]mcserver.Snapshot
	players  []string
	pingErr  error
	queryErr error
	block    chan struct{}
	pings    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{known: map[string]mcserver.Endpoint{}, snaps: map[string]mcserver.Snapshot{}}
}

func (c *fakeClient) add(addr string, s mcserver.Snapshot) mcserver.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep := mcserver.Endpoint{Host: addr, Port: mcserver.JavaDefaultPort}
	c.known[addr] = ep
	c.snaps[ep.Host] = s
	return ep
}

func (c *fakeClient) Resolve(ctx context.Context, address string) (mcserver.Endpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep, ok := c.known[address]
	if !ok {
		return mcserver.Endpoint{}, mcserver.ErrAddressNotFound
	}
	return ep, nil
}

func (c *fakeClient) Ping(ctx context.Context, ep mcserver.Endpoint) (mcserver.Snapshot, error) {
	c.mu.Lock()
	c.pings++
	block := c.block
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return mcserver.Snapshot{}, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingErr != nil {
		return mcserver.Snapshot{}, c.pingErr
	}
	s, ok := c.snaps[ep.Host]
	if !ok {
		return mcserver.Snapshot{}, errors.New("connection refused")
	}
	return s, nil
}

func (c *fakeClient) Query(ctx context.Context, ep mcserver.Endpoint) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return append([]string(nil), c.players...), nil
}

func (c *fakeClient) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

type pushed struct {
	Status kit.PresenceStatus
	Text   string
}

type fakeSetter struct {
	mu   sync.Mutex
	got  []pushed
	fail error
}

func (s *fakeSetter) SetPresence(ctx context.Context, status kit.PresenceStatus, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got = append(s.got, pushed{status, text})
	return nil
}

func (s *fakeSetter) pushes() []pushed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pushed(nil), s.got...)
}

// startPool runs a worker pool for the duration of the test.
func startPool(t *testing.T, workers int) *Pool {
	t.Helper()
	sup := supervisor.New(context.Background())
	p := NewPool(workers, logx.Nop())
	p.Start(sup)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return p
}

type testRig struct {
	client *fakeClient
	setter *fakeSetter
	mon    *Monitor
	now    time.Time
}

func newRig(t *testing.T, addr string, s mcserver.Snapshot) *testRig {
	t.Helper()
	r := &testRig{client: newFakeClient(), setter: &fakeSetter{}, now: time.Unix(1_700_000_000, 0)}
	ep := r.client.add(addr, s)
	r.mon = New(Options{
		Fetcher: NewFetcher(r.client, startPool(t, 2), time.Second),
		Target:  NewTarget(addr, ep),
		Setter:  r.setter,
		Marker:  func() any { return "maintenance" },
		Now:     func() time.Time { return r.now },
	})
	return r
}
