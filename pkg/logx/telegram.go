package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "mcstatusbot/internal/transport"
)

const (
	telegramMaxMessage = 3500
	telegramMaxValue   = 600
)

// telegramSink is a zerolog writer that queues events for a chat and sends
// them from its own goroutine. Logging never waits on the network: events
// over the rate limit or a full queue are dropped.
type telegramSink struct {
	mu      sync.Mutex
	sender  kit.Sender
	to      kit.ChatTarget
	min     zerolog.Level
	limiter *rate.Limiter

	queue     chan telegramMsg
	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type telegramMsg struct {
	to   kit.ChatTarget
	text string
}

func newTelegramSink(sender kit.Sender) *telegramSink {
	return &telegramSink{sender: sender, queue: make(chan telegramMsg, 128)}
}

func (t *telegramSink) setSender(sender kit.Sender) {
	t.mu.Lock()
	t.sender = sender
	t.mu.Unlock()
}

func (t *telegramSink) configure(cfg TelegramConfig) {
	perSec := max(cfg.RatePerSec, 1)
	t.mu.Lock()
	t.to = kit.ChatTarget{ChatID: cfg.ChatID, ThreadID: cfg.ThreadID}
	t.min = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	t.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	t.mu.Unlock()

	if cfg.Enabled {
		t.startOnce.Do(t.start)
	}
}

func (t *telegramSink) start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-t.queue:
				t.deliver(ctx, m)
			}
		}
	}()
}

func (t *telegramSink) deliver(ctx context.Context, m telegramMsg) {
	t.mu.Lock()
	sender := t.sender
	t.mu.Unlock()
	if sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _ = sender.SendText(ctx, m.to, m.text, &kit.SendOptions{DisablePreview: true})
}

func (t *telegramSink) close() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *telegramSink) Write(p []byte) (int, error) { return t.WriteLevel(zerolog.InfoLevel, p) }

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	t.mu.Lock()
	to, min, lim := t.to, t.min, t.limiter
	t.mu.Unlock()

	if to.ChatID == 0 || level < min || lim == nil || !lim.Allow() {
		return len(p), nil
	}
	if text := formatTelegramJSON(p); text != "" {
		select {
		case t.queue <- telegramMsg{to: to, text: text}:
		default:
		}
	}
	return len(p), nil
}

// formatTelegramJSON renders one JSON event as
//
//	[LEVEL] message
//	- key=value
//
// with keys sorted. Anything that is not JSON is sent as is.
func formatTelegramJSON(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var ev map[string]any
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return truncate(raw, telegramMaxMessage)
	}

	var b strings.Builder
	if lvl, _ := ev[zerolog.LevelFieldName].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := ev[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	delete(ev, zerolog.TimestampFieldName)
	delete(ev, zerolog.LevelFieldName)
	delete(ev, zerolog.MessageFieldName)
	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s=%s", k, truncate(fmt.Sprint(ev[k]), telegramMaxValue))
	}
	return truncate(b.String(), telegramMaxMessage)
}

func truncate(s string, n int) string {
	switch {
	case n <= 0 || len(s) <= n:
		return s
	case n < 10:
		return s[:n]
	default:
		return s[:n-3] + "..."
	}
}
