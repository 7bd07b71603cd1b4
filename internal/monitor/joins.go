package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/scylladb/go-set/i64set"

	"mcstatusbot/internal/storage"
	logx "mcstatusbot/pkg/logx"
)

// JoinTracker remembers which groups the bot has been added to so that only
// the very first group ever triggers an immediate update.
type JoinTracker struct {
	store storage.Store
	log   logx.Logger

	mu     sync.Mutex
	known  *i64set.Set
	loaded bool
}

// NewJoinTracker returns a tracker backed by store. A nil store keeps the
// set in memory only: after a restart it knows just the groups reported
// through Seen, since Telegram offers no way to list a bot's chats.
func NewJoinTracker(store storage.Store, log logx.Logger) *JoinTracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &JoinTracker{store: store, log: log, known: i64set.New()}
}

// Load reads the persisted groups. It is safe to call more than once.
func (j *JoinTracker) Load(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.loadLocked(ctx)
}

func (j *JoinTracker) loadLocked(ctx context.Context) error {
	if j.loaded || j.store == nil {
		j.loaded = true
		return nil
	}
	groups, err := j.store.Groups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		j.known.Add(g.ChatID)
	}
	j.loaded = true
	j.log.Debug("known groups loaded", logx.Int("groups", j.known.Size()))
	return nil
}

// Join records chatID and reports whether it is the first group the bot has
// ever joined. Rejoining a known group, or joining a second one, is not.
func (j *JoinTracker) Join(ctx context.Context, chatID int64, title string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.loadLocked(ctx); err != nil {
		j.log.Warn("known groups unavailable", logx.Err(err))
	}

	first := j.known.Size() == 0
	if j.known.Has(chatID) {
		first = false
	}
	j.known.Add(chatID)

	if j.store != nil {
		if err := j.store.AddGroup(ctx, storage.Group{ChatID: chatID, Title: title, JoinedAt: time.Now()}); err != nil {
			return first, err
		}
	}
	return first, nil
}

// Seen records a group the bot is already a member of, learned from a
// message sent there. It never counts as a join and is not persisted.
func (j *JoinTracker) Seen(ctx context.Context, chatID int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.loadLocked(ctx); err != nil {
		j.log.Warn("known groups unavailable", logx.Err(err))
	}
	if !j.known.Has(chatID) {
		j.known.Add(chatID)
		j.log.Debug("group seen", logx.Int64("chat_id", chatID))
	}
}

// Count returns the number of known groups.
func (j *JoinTracker) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.known.Size()
}
