package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mcstatusbot/internal/config"
	"mcstatusbot/internal/monitor"
	"mcstatusbot/internal/storage"
	logx "mcstatusbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		if path == "" {
			path = "./data/mcstatusbot"
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.Duration("storage.busy-timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// monitorSettings is the parsed monitor section.
type monitorSettings struct {
	Schedule       cron.Schedule
	StartupDelay   time.Duration
	DebounceWindow time.Duration
	Timeout        time.Duration
	Workers        int
}

func mapMonitorConfig(cfg *config.Config) (monitorSettings, error) {
	mc := cfg.Monitor
	sched, err := monitor.ParseSchedule(mc.Interval)
	if err != nil {
		return monitorSettings{}, fmt.Errorf("monitor.interval: %w", err)
	}
	delay, err := config.Duration("monitor.startup-delay", mc.StartupDelay, monitor.DefaultStartupDelay)
	if err != nil {
		return monitorSettings{}, err
	}
	window, err := config.Duration("monitor.debounce-window", mc.DebounceWindow, monitor.DefaultDebounceWindow)
	if err != nil {
		return monitorSettings{}, err
	}
	timeout, err := config.Duration("monitor.timeout", mc.Timeout, monitor.DefaultCallTimeout)
	if err != nil {
		return monitorSettings{}, err
	}
	workers := mc.Workers
	if workers <= 0 {
		workers = 2
	}
	return monitorSettings{
		Schedule:       sched,
		StartupDelay:   delay,
		DebounceWindow: window,
		Timeout:        timeout,
		Workers:        workers,
	}, nil
}

// validate is installed as the config manager's validator: a reload that
// fails it is rejected and the running config stays in place.
func validate(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapMonitorConfig(cfg); err != nil {
		return err
	}
	_, _, err := mapStorageConfig(cfg)
	return err
}
