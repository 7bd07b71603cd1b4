package router

import (
	"slices"
	"strings"

	"mcstatusbot/pkg/tgui"
)

// helpText renders the command list, or the detail page for path.
func (m *CommandManager) helpText(path []string) string {
	root, alias, _, prefix := m.snapshot()
	if len(path) == 0 {
		return helpTop(root, prefix).String()
	}

	node, full := root, make([]string, 0, len(path))
	for i, word := range path {
		next, ok := node.child(word)
		if ok {
			node, full = next, append(full, next.name)
			continue
		}
		leaf, hit := alias[strings.ToLower(word)]
		if i > 0 || !hit {
			return tgui.Concat("❓ ", tgui.B("Unknown command"), "\nTry ", tgui.Code(prefix+"help"), ".").String()
		}
		node, full = leaf, splitRoute(leaf.cmd.Route)
	}
	return helpNode(node, full, alias, prefix).String()
}

// helpTop lists public commands before owner-only ones.
func helpTop(root *cmdNode, prefix string) tgui.H {
	var public, locked []tgui.H
	for _, n := range root.children {
		lock := nodeIsOwnerOnly(n)
		line := tgui.H("• ")
		if lock {
			line = "• 🔒 "
		}
		line = tgui.Concat(line, tgui.Code(prefix+n.name))
		if d := summarizeNodeDesc(n); d != "" {
			line = tgui.Concat(line, ": ", tgui.Esc(d))
		}
		if lock {
			locked = append(locked, line)
		} else {
			public = append(public, line)
		}
	}

	out := []tgui.H{tgui.Concat("📚 ", tgui.B("Commands"))}
	out = append(out, public...)
	out = append(out, locked...)
	out = append(out, "", tgui.Concat("Send ", tgui.Code(prefix+"help <command>"), " for details."))
	return tgui.Lines(out...)
}

func helpNode(n *cmdNode, full []string, alias map[string]*cmdNode, prefix string) tgui.H {
	out := []tgui.H{tgui.Concat("📚 ", tgui.B("Help"), " ", tgui.Code(prefix+strings.Join(full, " ")))}

	if c := n.cmd; c != nil {
		if d := strings.TrimSpace(c.Description); d != "" {
			out = append(out, tgui.Esc(d))
		}
		if c.Access == AccessOwnerOnly {
			out = append(out, tgui.Concat("🔒 ", tgui.I("Owner only")))
		}
		if u := strings.TrimSpace(c.Usage); u != "" {
			out = append(out, "", tgui.B("Usage"), tgui.Code(prefix+u))
		}
		if names := aliasesOf(n, alias); len(names) > 0 {
			out = append(out, "", tgui.Concat(tgui.B("Aliases"), " ", tgui.Esc(strings.Join(names, ", "))))
		}
	}

	if len(n.children) > 0 {
		out = append(out, "", tgui.B("Subcommands"))
		for _, sub := range n.children {
			line := tgui.Concat("• ", tgui.Code(sub.name))
			if d := summarizeNodeDesc(sub); d != "" {
				line = tgui.Concat(line, ": ", tgui.Esc(d))
			}
			if nodeIsOwnerOnly(sub) {
				line = tgui.Concat(line, " 🔒")
			}
			out = append(out, line)
		}
	}
	return tgui.Lines(out...)
}

func aliasesOf(n *cmdNode, alias map[string]*cmdNode) []string {
	var out []string
	for name, leaf := range alias {
		if leaf == n {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// summarizeNodeDesc is the command's description, or its subcommand names.
func summarizeNodeDesc(n *cmdNode) string {
	if n == nil {
		return ""
	}
	if n.cmd != nil {
		if d := strings.TrimSpace(n.cmd.Description); d != "" {
			return d
		}
	}
	return strings.Join(n.childNames(), ", ")
}

// nodeIsOwnerOnly reports whether every command under n is owner-only.
func nodeIsOwnerOnly(n *cmdNode) bool {
	found, all := false, true
	n.walk(func(c *Command) {
		found = true
		all = all && c.Access == AccessOwnerOnly
	})
	return found && all
}
