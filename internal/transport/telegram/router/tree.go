package router

import (
	"slices"
	"strings"
)

// cmdNode is one word of a command route. Children stay sorted by name.
type cmdNode struct {
	name     string
	cmd      *Command
	children []*cmdNode
}

func newRoot() *cmdNode { return &cmdNode{} }

func splitRoute(route string) []string {
	return strings.Fields(strings.ToLower(route))
}

func (n *cmdNode) find(name string) (int, bool) {
	return slices.BinarySearchFunc(n.children, name, func(c *cmdNode, s string) int {
		return strings.Compare(c.name, s)
	})
}

// add registers c under route, creating intermediate nodes, and returns its leaf.
func (n *cmdNode) add(route []string, c Command) *cmdNode {
	for _, word := range route {
		i, ok := n.find(word)
		if !ok {
			n.children = slices.Insert(n.children, i, &cmdNode{name: word})
		}
		n = n.children[i]
	}
	n.cmd = &c
	return n
}

func (n *cmdNode) child(name string) (*cmdNode, bool) {
	if i, ok := n.find(strings.ToLower(name)); ok {
		return n.children[i], true
	}
	return nil, false
}

func (n *cmdNode) childNames() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.name
	}
	return names
}

// walk visits every command at or below n, depth first in name order.
func (n *cmdNode) walk(fn func(c *Command)) {
	if n.cmd != nil {
		fn(n.cmd)
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}
