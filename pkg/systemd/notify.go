// Package systemd reports service state to systemd via sd_notify. Every call
// is a no-op when the process is not run by systemd (NOTIFY_SOCKET unset).
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "mcstatusbot/pkg/logx"
)

func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// Ready tells systemd startup finished (Type=notify units).
func Ready(log logx.Logger) { notify(log, daemon.SdNotifyReady) }

func Stopping(log logx.Logger) { notify(log, daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by `systemctl status`.
func Status(log logx.Logger, text string) { notify(log, "STATUS="+text) }

// Watchdog pings the systemd watchdog at half the configured WatchdogSec
// until ctx ends. It returns immediately when the watchdog is disabled.
func Watchdog(ctx context.Context, log logx.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return err
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			notify(log, daemon.SdNotifyWatchdog)
		}
	}
}
