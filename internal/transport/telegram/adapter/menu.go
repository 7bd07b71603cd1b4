package adapter

import (
	"context"
	"hash/fnv"

	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
	"mcstatusbot/pkg/tgui"
)

const (
	menuMaxEntries = 100
	menuDescMax    = 256
)

type menuCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// menuPayload normalizes cmds for setMyCommands and fingerprints the result.
func menuPayload(cmds []kit.BotCommand) ([]menuCommand, uint64) {
	list := make([]menuCommand, 0, min(len(cmds), menuMaxEntries))
	sum := fnv.New64a()
	for _, c := range cmds {
		if len(list) == menuMaxEntries {
			break
		}
		if c.Command == "" {
			continue
		}
		mc := menuCommand{Command: c.Command, Description: c.Description}
		if mc.Description == "" {
			mc.Description = c.Command
		}
		mc.Description = tgui.TruncRunes(mc.Description, menuDescMax)
		list = append(list, mc)
		_, _ = sum.Write([]byte(mc.Command + "\x00" + mc.Description + "\x00"))
	}
	return list, sum.Sum64()
}

// UpdateMenuCommands publishes the command menu. Telegram is only called
// when the list differs from the last one it accepted.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	list, sum := menuPayload(cmds)

	a.menu.Lock()
	defer a.menu.Unlock()
	if sum == a.menu.sum {
		return nil
	}
	if err := a.callAPI(ctx, "setMyCommands", map[string]any{"commands": list}); err != nil {
		return err
	}
	a.menu.sum = sum
	a.log.Info("menu commands updated", logx.Int("count", len(list)))
	return nil
}
