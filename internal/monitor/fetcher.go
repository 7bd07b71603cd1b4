package monitor

import (
	"context"
	"fmt"
	"time"

	"mcstatusbot/internal/mcserver"
)

// DefaultCallTimeout bounds every resolve, ping and query call.
const DefaultCallTimeout = 5 * time.Second

// UnreachableError wraps any transport failure of a ping or query.
type UnreachableError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Fetcher bridges the blocking game-server client onto the worker pool.
type Fetcher struct {
	client  mcserver.Client
	pool    *Pool
	timeout time.Duration
}

func NewFetcher(client mcserver.Client, pool *Pool, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Fetcher{client: client, pool: pool, timeout: timeout}
}

// Fetch pings ep. Failures come back in FetchResult.Err as *UnreachableError.
func (f *Fetcher) Fetch(ctx context.Context, ep mcserver.Endpoint) FetchResult {
	snap, err := offload(ctx, f.pool, f.timeout, func(c context.Context) (mcserver.Snapshot, error) {
		return f.client.Ping(c, ep)
	})
	if err != nil {
		return FetchResult{Err: &UnreachableError{Op: "ping", Endpoint: ep.String(), Err: err}}
	}
	return FetchResult{Snapshot: snap}
}

// Query fetches the online player names.
func (f *Fetcher) Query(ctx context.Context, ep mcserver.Endpoint) ([]string, error) {
	names, err := offload(ctx, f.pool, f.timeout, func(c context.Context) ([]string, error) {
		return f.client.Query(c, ep)
	})
	if err != nil {
		return nil, &UnreachableError{Op: "query", Endpoint: ep.String(), Err: err}
	}
	return names, nil
}

// Resolve resolves address on the pool.
func (f *Fetcher) Resolve(ctx context.Context, address string) (mcserver.Endpoint, error) {
	return offload(ctx, f.pool, f.timeout, func(c context.Context) (mcserver.Endpoint, error) {
		return f.client.Resolve(c, address)
	})
}
