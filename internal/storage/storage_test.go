package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "mcstatusbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " None "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func testStore(t *testing.T, driver string) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.db")
	st, err := Open(Config{Driver: driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	return st, path
}

func TestGroupsRoundTrip(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st, path := testStore(t, driver)

			t0 := time.UnixMilli(1_700_000_000_000)
			if err := st.AddGroup(ctx, Group{ChatID: -100, Title: "survival", JoinedAt: t0}); err != nil {
				t.Fatal(err)
			}
			if err := st.AddGroup(ctx, Group{ChatID: -200, Title: "creative", JoinedAt: t0.Add(time.Minute)}); err != nil {
				t.Fatal(err)
			}
			// rejoin keeps the original join time
			if err := st.AddGroup(ctx, Group{ChatID: -100, Title: "survival 2", JoinedAt: t0.Add(time.Hour)}); err != nil {
				t.Fatal(err)
			}
			if err := st.Close(); err != nil {
				t.Fatal(err)
			}

			st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			groups, err := st.Groups(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(groups) != 2 {
				t.Fatalf("groups = %+v", groups)
			}
			if groups[0].ChatID != -100 || groups[0].Title != "survival 2" || !groups[0].JoinedAt.Equal(t0) {
				t.Fatalf("first group = %+v", groups[0])
			}
			if groups[1].ChatID != -200 {
				t.Fatalf("second group = %+v", groups[1])
			}
		})
	}
}

func TestFileAuditAppends(t *testing.T) {
	t.Parallel()
	st, path := testStore(t, "file")
	ctx := context.Background()
	for _, target := range []string{"a.example.org", "b.example.org"} {
		if err := st.AppendAudit(ctx, AuditEntry{ActorID: 7, Action: "server.set", Target: target, OK: true}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(filepath.Dir(path), "bot.audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var got []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		got = append(got, e)
	}
	if len(got) != 2 || got[1].Target != "b.example.org" || got[0].At.IsZero() {
		t.Fatalf("audit = %+v", got)
	}
}

func TestSQLiteAudit(t *testing.T) {
	t.Parallel()
	st, _ := testStore(t, "sqlite")
	defer st.Close()
	err := st.AppendAudit(context.Background(), AuditEntry{ActorID: 1, Action: "server.set", Target: "mc.example.org", OK: false, Error: "not found"})
	if err != nil {
		t.Fatal(err)
	}
}
