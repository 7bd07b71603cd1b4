package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"mcstatusbot/internal/runtime/supervisor"
	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

const defaultCommandTimeout = 30 * time.Second

// JoinHandler is called, off the dispatch loop, when the bot is added to a group.
type JoinHandler func(ctx context.Context, j kit.Join)

// GroupSeenHandler is called on the dispatch loop for every group message.
// It must not block.
type GroupSeenHandler func(ctx context.Context, chatID int64)

type CommandManager struct {
	mu sync.RWMutex

	root   *cmdNode
	alias  map[string]*cmdNode // alias -> leaf node
	owners []int64
	prefix string
	onJoin JoinHandler
	onSeen GroupSeenHandler

	log     logx.Logger
	adapter kit.Sender

	jobs chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Sender, prefix string, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &CommandManager{
		root:    newRoot(),
		alias:   map[string]*cmdNode{},
		log:     log,
		adapter: adapter,
		jobs:    make(chan func(), 256),
	}
	m.SetPrefix(prefix)
	m.SetOwners(owners)
	return m
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

// SetPrefix sets the command prefix. Empty means "/".
func (m *CommandManager) SetPrefix(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "/"
	}
	m.mu.Lock()
	m.prefix = prefix
	m.mu.Unlock()
}

func (m *CommandManager) SetJoinHandler(h JoinHandler) {
	m.mu.Lock()
	m.onJoin = h
	m.mu.Unlock()
}

func (m *CommandManager) SetGroupSeenHandler(h GroupSeenHandler) {
	m.mu.Lock()
	m.onSeen = h
	m.mu.Unlock()
}

func (m *CommandManager) snapshot() (root *cmdNode, alias map[string]*cmdNode, owners []int64, prefix string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root, m.alias, m.owners, m.prefix
}

// SetRegistry installs cmds plus the built-in help command and pushes the
// command menu when the adapter supports it.
func (m *CommandManager) SetRegistry(ctx context.Context, cmds []Command) {
	cmds = append(cmds, Command{
		Route:       "help",
		Aliases:     []string{"h"},
		Description: "show help",
		Usage:       "help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(req.Args))
		},
	})

	root := newRoot()
	alias := map[string]*cmdNode{}
	for _, c := range cmds {
		route := splitRoute(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		leaf := root.add(route, c)
		// /server_set style shortcut for Telegram's menu; never shadow a real root command
		if len(route) > 1 {
			if menu, ok := telegramCommandNameFromRoute(route); ok {
				alias[menu] = leaf
			}
		}
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
		}
	}

	m.mu.Lock()
	m.root = root
	m.alias = alias
	m.mu.Unlock()

	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok {
		menu := buildTelegramMenuCommands(root)
		go func() {
			cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(cctx, menu); err != nil {
				m.log.Warn("menu update failed", logx.Err(err))
			}
		}()
	}
}

// DispatchLoop routes updates until ctx ends or updates is closed. Handlers
// run on a bounded worker pool under an internal supervisor.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := max(runtime.NumCPU(), 2)
	sup := supervisor.New(ctx,
		supervisor.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		supervisor.WithCancelOnError(false),
	)
	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-m.jobs:
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeUpdate(ctx, up)
		}
	}
}

func (m *CommandManager) tryEnqueue(fn func()) bool {
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

func (m *CommandManager) routeUpdate(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		m.routeMessage(ctx, up)
	case kit.UpdateJoin:
		m.routeJoin(ctx, up)
	}
}

func (m *CommandManager) routeJoin(ctx context.Context, up kit.Update) {
	if up.Join == nil {
		return
	}
	m.mu.RLock()
	h := m.onJoin
	m.mu.RUnlock()
	if h == nil {
		return
	}
	j := *up.Join
	if !m.tryEnqueue(func() { h(ctx, j) }) {
		m.log.Warn("join event dropped (queue full)", logx.Int64("chat_id", j.ChatID))
	}
}

// matchPrefix strips prefix (or a bot mention written as prefix+word@bot)
// and returns the command word and remaining tokens.
func matchPrefix(text, prefix string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	parts := splitArgs(text[len(prefix):])
	if len(parts) == 0 {
		return "", nil, false
	}
	word := parts[0]
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(word), parts[1:], word != ""
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	if msg.IsGroup {
		m.mu.RLock()
		seen := m.onSeen
		m.mu.RUnlock()
		if seen != nil {
			seen(ctx, msg.ChatID)
		}
	}
	root, alias, owners, prefix := m.snapshot()

	word, args, ok := matchPrefix(msg.Text, prefix)
	if !ok {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	var (
		cur  *cmdNode
		path []string
	)
	if leaf, hit := alias[word]; hit {
		cur = leaf
		path = splitRoute(leaf.cmd.Route)
	} else if n, hit := root.child(word); hit {
		cur = n
		path = []string{word}
	} else {
		// unknown words are ignored in groups so other bots sharing the prefix stay usable
		if !msg.IsGroup {
			_, _ = m.adapter.SendText(ctx, chat, "Unknown command. Try "+prefix+"help", nil)
		}
		return
	}

	for len(args) > 0 {
		child, hit := cur.child(args[0])
		if !hit {
			break
		}
		cur = child
		path = append(path, child.name)
		args = args[1:]
	}

	if cur.cmd == nil {
		_, _ = m.adapter.SendText(ctx, chat, m.helpText(path), &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
		return
	}
	cmd := *cur.cmd

	if cmd.Access == AccessOwnerOnly && !slices.Contains(owners, msg.FromID) {
		_, _ = m.adapter.SendText(ctx, chat, "⛔ This command is restricted to the bot owner.", nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:   up,
		Chat:     chat,
		FromID:   msg.FromID,
		FromName: msg.FromUsername,
		Path:     path,
		Command:  cmd.Route,
		Args:     args,
		ReqID:    rid,
		Prefix:   prefix,
		Adapter:  m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Route),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	final := wrap(cmd.Handle, recoverPanic(), logRequest(), replyOnError(), withTimeout(timeout))
	if !m.tryEnqueue(func() { _ = final(ctx, req) }) {
		_, _ = m.adapter.SendText(ctx, chat, "busy, try again", nil)
	}
}
