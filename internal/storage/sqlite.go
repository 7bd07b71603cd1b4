package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "mcstatusbot/pkg/logx"
)

//go:embed migrations.sql
var schema string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// sqliteDSN puts the pragmas in the DSN so every pooled connection gets them.
func sqliteDSN(path string, busy time.Duration) string {
	if busy <= 0 {
		busy = time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage: sqlite needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}
	// one writer; the bot writes rarely
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	const q = `INSERT INTO audit(at, actor_id, actor_username, chat_id, action, target, ok, err, took_ms)
		VALUES(?,?,?,?,?,?,?,?,?)`
	_, err := s.db.ExecContext(ctx, q,
		e.At.UTC().Format(time.RFC3339Nano), e.ActorID, optional(e.ActorUsername), e.ChatID,
		e.Action, optional(e.Target), e.OK, optional(e.Error), e.TookMS)
	return err
}

func (s *sqliteStore) AddGroup(ctx context.Context, g Group) error {
	if g.JoinedAt.IsZero() {
		g.JoinedAt = time.Now()
	}
	const q = `INSERT INTO groups(chat_id, title, joined_at) VALUES(?,?,?)
		ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title`
	_, err := s.db.ExecContext(ctx, q, g.ChatID, optional(g.Title), g.JoinedAt.UnixMilli())
	return err
}

func (s *sqliteStore) Groups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, title, joined_at FROM groups ORDER BY joined_at, chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var (
			g        Group
			title    sql.NullString
			joinedMS int64
		)
		if err := rows.Scan(&g.ChatID, &title, &joinedMS); err != nil {
			return nil, err
		}
		g.Title = title.String
		g.JoinedAt = time.UnixMilli(joinedMS)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// optional stores blank strings as NULL.
func optional(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
