package storage

import (
	"context"
	"fmt"
	"strings"

	logx "mcstatusbot/pkg/logx"
)

// Store is what the monitor keeps across restarts.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// AddGroup records a group. Adding a known group updates its title only.
	AddGroup(ctx context.Context, g Group) error
	// Groups lists known groups, oldest join first.
	Groups(ctx context.Context) ([]Group, error)
	Close() error
}

type opener func(cfg Config, log logx.Logger) (Store, error)

var drivers = map[string]opener{
	"file":    openFile,
	"sqlite":  openSQLite,
	"sqlite3": openSQLite,
}

// Open returns the store for cfg.Driver, or (nil, nil) when storage is off.
func Open(cfg Config, log logx.Logger) (Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if name == "" || name == "none" {
		return nil, nil
	}
	open, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return open(cfg, log.With(logx.String("driver", name)))
}
