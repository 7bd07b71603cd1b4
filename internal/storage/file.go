package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	logx "mcstatusbot/pkg/logx"
)

// fileStore keeps everything in plain files.
//
// Files:
//   - <prefix>.audit.jsonl  (append-only JSON Lines)
//   - <prefix>.groups.jsonl (append-only journal, last record per chat wins)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile  *os.File
	groupsFile *os.File
	groups     map[int64]Group
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	groupsPath := prefix + ".groups.jsonl"
	groups := map[int64]Group{}
	if err := replayGroups(groupsPath, groups); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("groups journal replay failed", logx.String("path", groupsPath), logx.Err(err))
	}

	gf, err := os.OpenFile(groupsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{log: log, auditFile: af, groupsFile: gf, groups: groups}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.groupsFile != nil {
		err2 = s.groupsFile.Close()
		s.groupsFile = nil
	}
	return errors.Join(err1, err2)
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) AddGroup(ctx context.Context, g Group) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupsFile == nil {
		return errors.New("groups journal closed")
	}
	if prev, ok := s.groups[g.ChatID]; ok {
		if prev.Title == g.Title {
			return nil
		}
		g.JoinedAt = prev.JoinedAt
	} else if g.JoinedAt.IsZero() {
		g.JoinedAt = time.Now()
	}
	if err := json.NewEncoder(s.groupsFile).Encode(g); err != nil {
		return err
	}
	s.groups[g.ChatID] = g
	return nil
}

func (s *fileStore) Groups(ctx context.Context) ([]Group, error) {
	_ = ctx
	s.mu.Lock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out, nil
}

func replayGroups(path string, out map[int64]Group) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var g Group
		if err := json.Unmarshal(sc.Bytes(), &g); err != nil {
			// torn write at the tail
			continue
		}
		if g.ChatID == 0 {
			continue
		}
		out[g.ChatID] = g
	}
	return sc.Err()
}
