package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EditionJava    = "java"
	EditionBedrock = "bedrock"
)

// Validate checks everything that would make the bot unable to start or
// a hot reload unsafe to apply.
//
// The maintenance marker is not checked here: a malformed marker only
// disables detection and is reported when the status is classified.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.BotToken) == "" {
		return errors.New("bot-token is required")
	}
	if strings.TrimSpace(cfg.ServerIP) == "" {
		return errors.New("server-ip is required")
	}
	switch EditionOf(cfg) {
	case EditionJava, EditionBedrock:
	default:
		return fmt.Errorf("edition: unknown %q (want java or bedrock)", cfg.Edition)
	}
	if cfg.QueryPort < 0 || cfg.QueryPort > 65535 {
		return fmt.Errorf("query-port: %d out of range", cfg.QueryPort)
	}
	if strings.ContainsAny(cfg.Prefix, " \t\n") {
		return fmt.Errorf("prefix: must not contain whitespace")
	}

	if _, err := Duration("telegram.poll-timeout", cfg.Telegram.PollTimeout, 0); err != nil {
		return err
	}
	if cfg.Telegram.PresenceRate < 0 {
		return errors.New("telegram.presence-rate must be >= 0")
	}

	// interval may be a cron spec; the monitor validates that form.
	for _, f := range []struct{ path, raw string }{
		{"monitor.startup-delay", cfg.Monitor.StartupDelay},
		{"monitor.debounce-window", cfg.Monitor.DebounceWindow},
		{"monitor.timeout", cfg.Monitor.Timeout},
	} {
		if _, err := Duration(f.path, f.raw, 0); err != nil {
			return err
		}
	}
	if cfg.Monitor.Workers < 0 {
		return errors.New("monitor.workers must be >= 0")
	}

	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown %q", cfg.Storage.Driver)
		}
		if _, err := Duration("storage.busy-timeout", cfg.Storage.BusyTimeout, 0); err != nil {
			return err
		}
	}
	return nil
}

// EditionOf returns the normalised edition name ("java" when unset).
func EditionOf(cfg *Config) string {
	if cfg == nil {
		return EditionJava
	}
	e := strings.ToLower(strings.TrimSpace(cfg.Edition))
	if e == "" {
		return EditionJava
	}
	return e
}

// CommandPrefix returns the configured prefix, "/" when unset.
func CommandPrefix(cfg *Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Prefix) == "" {
		return "/"
	}
	return strings.TrimSpace(cfg.Prefix)
}
