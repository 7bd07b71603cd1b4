package adapter

import (
	"context"

	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
	"mcstatusbot/pkg/tgui"
)

// Telegram bots have no presence; the short description shown on the bot's
// profile stands in for it.
const shortDescriptionLimit = 120

func statusGlyph(s kit.PresenceStatus) string {
	switch s {
	case kit.PresenceOnline:
		return "🟢"
	case kit.PresenceIdle:
		return "🌙"
	case kit.PresenceDoNotDisturb:
		return "⛔"
	default:
		return "⚫"
	}
}

func presenceLine(status kit.PresenceStatus, text string) string {
	return tgui.TruncRunes(statusGlyph(status)+" Minecraft: "+text, shortDescriptionLimit)
}

// SetPresence publishes status and text as the bot's short description.
// Calls are paced by the presence rate limit. Every call reaches Telegram:
// deciding whether a presence is worth pushing belongs to the caller.
func (a *Adapter) SetPresence(ctx context.Context, status kit.PresenceStatus, text string) error {
	line := presenceLine(status, text)

	a.presence.Lock()
	defer a.presence.Unlock()
	if err := a.presence.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := a.callAPI(ctx, "setMyShortDescription", map[string]string{"short_description": line}); err != nil {
		return err
	}
	a.log.Debug("short description set", logx.String("line", line))
	return nil
}
