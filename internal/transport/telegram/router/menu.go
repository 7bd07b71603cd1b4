package router

import (
	"cmp"
	"slices"
	"strings"

	kit "mcstatusbot/internal/transport"
)

const (
	menuNameMax  = 32
	menuEntryMax = 100
)

// sanitizeTelegramCommand maps a route or alias onto [a-z0-9_]{1,32}.
// Runs of other characters collapse into one underscore and a leading
// digit gets a "cmd_" prefix.
func sanitizeTelegramCommand(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	name := strings.Join(words, "_")
	if name == "" {
		return ""
	}
	if '0' <= name[0] && name[0] <= '9' {
		name = "cmd_" + name
	}
	if len(name) > menuNameMax {
		name = strings.TrimRight(name[:menuNameMax], "_")
	}
	return name
}

// telegramCommandNameFromRoute joins a route: ["server","set"] -> "server_set".
func telegramCommandNameFromRoute(route []string) (string, bool) {
	name := sanitizeTelegramCommand(strings.Join(route, " "))
	return name, name != ""
}

type menuEntry struct {
	kit.BotCommand
	shortcut bool
}

// buildTelegramMenuCommands lists top-level commands, then a shortcut for
// every multi-word route.
func buildTelegramMenuCommands(root *cmdNode) []kit.BotCommand {
	var entries []menuEntry
	taken := map[string]bool{}
	push := func(name, desc string, owner, shortcut bool) {
		name = sanitizeTelegramCommand(name)
		if name == "" || taken[name] {
			return
		}
		taken[name] = true
		desc = strings.Join(strings.Fields(desc), " ")
		if desc == "" {
			desc = name
		}
		if owner {
			desc = "🔒 " + desc
		}
		entries = append(entries, menuEntry{kit.BotCommand{Command: name, Description: desc}, shortcut})
	}

	for _, n := range root.children {
		push(n.name, summarizeNodeDesc(n), nodeIsOwnerOnly(n), false)
	}
	root.walk(func(c *Command) {
		if route := splitRoute(c.Route); len(route) > 1 {
			if name, ok := telegramCommandNameFromRoute(route); ok {
				push(name, c.Description, c.Access == AccessOwnerOnly, true)
			}
		}
	})

	slices.SortStableFunc(entries, func(a, b menuEntry) int {
		if a.shortcut != b.shortcut {
			if a.shortcut {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Command, b.Command)
	})
	out := make([]kit.BotCommand, 0, min(len(entries), menuEntryMax))
	for _, e := range entries[:min(len(entries), menuEntryMax)] {
		out = append(out, e.BotCommand)
	}
	return out
}
