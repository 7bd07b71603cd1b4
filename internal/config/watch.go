package config

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "mcstatusbot/pkg/logx"
)

const (
	// settleDelay lets an editor finish writing before the file is read.
	settleDelay     = 250 * time.Millisecond
	watchRetryMin   = 250 * time.Millisecond
	watchRetryMax   = 5 * time.Second
	validateTimeout = 5 * time.Second
)

// Watch reloads the config whenever the file changes, until ctx ends.
// The parent directory is watched so atomic saves (rename over) are seen.
// A broken watcher is recreated with jittered backoff.
func (m *ConfigManager) Watch(ctx context.Context) error {
	retry := watchRetryMin
	for {
		err := m.watchOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		wait := retry + time.Duration(rand.Int64N(int64(retry/2)+1))
		retry = min(retry*2, watchRetryMax)
		m.log.Warn("config watcher restarting", logx.Duration("backoff", wait), logx.Err(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (m *ConfigManager) watchOnce(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, name := filepath.Dir(m.path), filepath.Base(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	m.log.Debug("watching config", logx.String("path", m.path))

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("event channel closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), name) && ev.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				settle.Reset(settleDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				m.log.Warn("config watch overflow, rereading", logx.Err(err))
				settle.Reset(settleDelay)
				continue
			}
			m.log.Warn("config watch error", logx.Err(err))
		case <-settle.C:
			m.reload(ctx)
		}
	}
}

// reload commits and publishes the file if it changed and passes validation.
// A rejected file leaves the live config untouched.
func (m *ConfigManager) reload(ctx context.Context) {
	cfg, err := m.read()
	if err != nil {
		m.log.Warn("config not reloaded", logx.Err(err))
		return
	}
	if m.unchanged(cfg) {
		m.log.Debug("config file touched, content unchanged")
		return
	}
	if err := m.check(ctx, cfg); err != nil {
		m.log.Warn("config rejected", logx.String("path", m.path), logx.Err(err))
		return
	}
	m.commit(cfg)
	m.publish(cfg)
	m.log.Debug("config committed", logx.String("path", m.path))
}

func (m *ConfigManager) check(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if m.validator == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	return m.validator(ctx, cfg)
}
