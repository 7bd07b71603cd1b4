// Package adapter connects the bot to Telegram: long polling through
// telebot, outbound text, and the Bot API calls telebot does not wrap
// (presence via setMyShortDescription, the command menu).
package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	rtsup "mcstatusbot/internal/runtime/supervisor"
	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

const (
	defaultAPIURL       = "https://api.telegram.org"
	defaultPollTimeout  = 10 * time.Second
	defaultPresenceRate = 6 // per minute
	stopGrace           = 2 * time.Second
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// PresenceRate caps presence pushes per minute. <= 0 means 6.
	PresenceRate int
	// APIURL overrides the Bot API base URL.
	APIURL string
}

type Adapter struct {
	cfg  Config
	log  logx.Logger
	bot  *tele.Bot
	http *http.Client

	// sink is the consumer of incoming updates; nil while stopped.
	sink    atomic.Pointer[chan<- kit.Update]
	dropped atomic.Uint64

	lifeMu sync.Mutex
	sup    *rtsup.Supervisor

	ready     chan struct{}
	readyOnce sync.Once

	presence struct {
		sync.Mutex
		limiter *rate.Limiter
	}
	menu struct {
		sync.Mutex
		sum uint64
	}
}

// New authorizes the token against Telegram and registers update handlers.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := newAdapter(cfg, log)

	poll := positiveOr(a.cfg.PollTimeout, defaultPollTimeout)
	bot, err := tele.NewBot(tele.Settings{
		URL:    a.cfg.APIURL,
		Token:  a.cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telegram handler error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a.bot = bot
	bot.Handle(tele.OnText, a.onText)
	bot.Handle(tele.OnAddedToGroup, a.onAdded)
	log.Info("telegram bot authorized", logx.String("username", bot.Me.Username), logx.Duration("poll_timeout", poll))
	return a, nil
}

// newAdapter builds everything except the telebot client.
func newAdapter(cfg Config, log logx.Logger) *Adapter {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	perMin := cfg.PresenceRate
	if perMin <= 0 {
		perMin = defaultPresenceRate
	}
	a := &Adapter{
		cfg:   cfg,
		log:   log,
		http:  &http.Client{Timeout: 8 * time.Second},
		ready: make(chan struct{}),
	}
	a.presence.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
	return a
}

func positiveOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil || m.Chat == nil {
		return nil
	}
	a.forward(kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ID:           m.ID,
		ChatID:       m.Chat.ID,
		ThreadID:     m.ThreadID,
		FromID:       m.Sender.ID,
		FromUsername: m.Sender.Username,
		Text:         m.Text,
		IsGroup:      m.Chat.Type != tele.ChatPrivate,
	}})
	return nil
}

func (a *Adapter) onAdded(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	j := &kit.Join{ChatID: chat.ID, Title: chat.Title}
	if by := c.Sender(); by != nil {
		j.ByID = by.ID
	}
	a.forward(kit.Update{Kind: kit.UpdateJoin, Join: j})
	return nil
}

// forward hands up to the current sink without blocking the poller.
func (a *Adapter) forward(up kit.Update) {
	p := a.sink.Load()
	if p == nil {
		return
	}
	select {
	case *p <- up:
	default:
		a.dropped.Add(1)
	}
}

// Ready is closed once polling has started.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Start begins long polling and delivers updates to out. A second call while
// running is a no-op.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	if a.sup != nil {
		return nil
	}
	a.sink.Store(&out)
	// Polling failures are retried here and never cancel the app.
	sup := rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))))
	a.sup = sup

	sup.Go0("updates.drop_report", func(c context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				a.reportDropped(cap(out))
			case <-c.Done():
				a.reportDropped(cap(out))
				return
			}
		}
	})
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	// bot.Start returns when stopped and occasionally on its own.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.readyOnce.Do(func() { close(a.ready) })
		a.log.Info("polling")
		a.bot.Start()
		if c.Err() == nil {
			a.log.Warn("polling returned early")
		}
		return nil
	}, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second), rtsup.WithStopOnCleanExit(false))
	return nil
}

func (a *Adapter) reportDropped(chanCap int) {
	if n := a.dropped.Swap(0); n > 0 {
		a.log.Warn("incoming updates dropped (channel full)", logx.Int64("count", int64(n)), logx.Int("chan_cap", chanCap))
	}
}

// Stop ends polling. It waits at most stopGrace for the poll loop because
// an open getUpdates request only returns at its timeout.
func (a *Adapter) Stop(ctx context.Context) error {
	a.lifeMu.Lock()
	sup := a.sup
	a.sup = nil
	a.sink.Store(nil)
	a.lifeMu.Unlock()
	if sup == nil {
		return nil
	}

	a.log.Info("stopping")
	wctx, cancel := context.WithTimeout(ctx, stopGrace)
	defer cancel()
	err := sup.Stop(wctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.log.Warn("telegram stop timed out", logx.Err(err))
	case err != nil:
		a.log.Debug("telegram stopped with error", logx.Err(err))
	}
	return nil
}
