package monitor

import (
	"sync"

	"mcstatusbot/internal/mcserver"
)

// Target holds the current (address, endpoint) pair. Both are swapped
// together; gen increments on every swap so stale results can be told apart.
type Target struct {
	mu       sync.RWMutex
	address  string
	endpoint mcserver.Endpoint
	gen      uint64
}

func NewTarget(address string, ep mcserver.Endpoint) *Target {
	return &Target{address: address, endpoint: ep}
}

func (t *Target) Current() (string, mcserver.Endpoint, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.address, t.endpoint, t.gen
}

func (t *Target) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.address
}

func (t *Target) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gen
}

func (t *Target) Set(address string, ep mcserver.Endpoint) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.address = address
	t.endpoint = ep
	t.gen++
	return t.gen
}
