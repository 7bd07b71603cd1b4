package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
	// UpdateJoin is emitted when the bot is added to a group chat.
	UpdateJoin UpdateKind = "join"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
	Join    *Join
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

// Join describes the bot being added to a group.
type Join struct {
	ChatID int64
	Title  string
	ByID   int64
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// PresenceStatus is the coarse state shown next to the bot.
type PresenceStatus int

const (
	PresenceOnline PresenceStatus = iota
	PresenceIdle
	PresenceDoNotDisturb
	PresenceOffline
)

func (s PresenceStatus) String() string {
	switch s {
	case PresenceOnline:
		return "online"
	case PresenceIdle:
		return "idle"
	case PresenceDoNotDisturb:
		return "dnd"
	case PresenceOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Sender is the minimal outbound text capability (used by log sinks).
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// PresenceSetter pushes a presence (status + activity text) to the chat platform.
type PresenceSetter interface {
	SetPresence(ctx context.Context, status PresenceStatus, text string) error
}

type Adapter interface {
	Sender
	PresenceSetter

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// Ready is closed once the platform connection is confirmed and updates are flowing.
	Ready() <-chan struct{}
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
