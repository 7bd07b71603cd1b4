package config

import (
	"fmt"
	"reflect"
	"strings"

	logx "mcstatusbot/pkg/logx"
)

// SummarizeConfigChange returns the changed sections plus structured attrs
// safe to log (never the bot token) and whether a restart is required for
// some of the changes to take effect.
func SummarizeConfigChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restart bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	if strings.TrimSpace(oldCfg.BotToken) != strings.TrimSpace(newCfg.BotToken) {
		changed = append(changed, "bot-token")
		restart = true
	}
	if !reflect.DeepEqual(oldCfg.OwnerIDs, newCfg.OwnerIDs) {
		changed = append(changed, "owner-ids")
		attrs = append(attrs, logx.Int("owner_count", len(newCfg.OwnerIDs)))
	}
	if CommandPrefix(oldCfg) != CommandPrefix(newCfg) {
		changed = append(changed, "prefix")
		attrs = append(attrs, logx.String("prefix", CommandPrefix(newCfg)))
	}
	if fmt.Sprint(oldCfg.MaintenanceMarker) != fmt.Sprint(newCfg.MaintenanceMarker) {
		changed = append(changed, "maintenance-mode-detection")
		attrs = append(attrs, logx.Any("maintenance_marker", newCfg.MaintenanceMarker))
	}
	// server-ip changes made by hand need a restart; `server set` applies them live.
	if strings.TrimSpace(oldCfg.ServerIP) != strings.TrimSpace(newCfg.ServerIP) ||
		EditionOf(oldCfg) != EditionOf(newCfg) ||
		oldCfg.QueryPort != newCfg.QueryPort {
		changed = append(changed, "server")
		attrs = append(attrs, logx.String("server_ip", newCfg.ServerIP), logx.String("edition", EditionOf(newCfg)))
		restart = true
	}
	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		restart = true
	}
	if oldCfg.Monitor != newCfg.Monitor {
		changed = append(changed, "monitor")
		attrs = append(attrs, logx.String("monitor.interval", newCfg.Monitor.Interval))
		restart = true
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		restart = true
	}
	return changed, attrs, restart
}
