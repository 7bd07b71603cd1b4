package config

// Config mirrors config.yml. YAML is coerced to JSON before decoding, so the
// json tags are the YAML keys.
type Config struct {
	BotToken string `json:"bot-token"`
	// Prefix is the command prefix. Telegram clients always send "/", which is the default.
	Prefix   string  `json:"prefix,omitempty"`
	OwnerIDs []int64 `json:"owner-ids,omitempty"`

	ServerIP string `json:"server-ip"`
	// Edition is "java" (default) or "bedrock".
	Edition   string `json:"edition,omitempty"`
	QueryPort int    `json:"query-port,omitempty"`

	// MaintenanceMarker is deliberately untyped: a non-string value must be
	// reported as malformed at classification time, not rejected at load.
	MaintenanceMarker any `json:"maintenance-mode-detection,omitempty"`

	Telegram TelegramConfig `json:"telegram,omitempty"`
	Monitor  MonitorConfig  `json:"monitor,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll-timeout,omitempty"`
	// PresenceRate caps presence pushes per minute. Default 6.
	PresenceRate int `json:"presence-rate,omitempty"`
}

// MonitorConfig tunes the status loop.
//
// All durations are Go duration strings. Defaults:
//   - interval: "60s" (a cron spec such as "@every 2m" or "*/5 * * * *" is also accepted)
//   - startup-delay: "10s"
//   - debounce-window: "30m"
//   - timeout: "5s" (per network call)
//   - workers: 2
type MonitorConfig struct {
	Interval       string `json:"interval,omitempty"`
	StartupDelay   string `json:"startup-delay,omitempty"`
	DebounceWindow string `json:"debounce-window,omitempty"`
	Timeout        string `json:"timeout,omitempty"`
	Workers        int    `json:"workers,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level,omitempty"`
	Console  bool            `json:"console,omitempty"`
	File     LoggingFile     `json:"file,omitempty"`
	Telegram LoggingTelegram `json:"telegram,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat-id,omitempty"`
	ThreadID   int    `json:"thread-id,omitempty"`
	MinLevel   string `json:"min-level,omitempty"`
	RatePerSec int    `json:"rate-per-sec,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	storage: { driver: sqlite, path: ./data/mcstatusbot.db }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy-timeout,omitempty"` // sqlite only
}
