package mcserver

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RichText is a chat component: either Plain or *Node. A nil RichText is
// an unrecognised description and flattens to "".
type RichText interface {
	isRichText()
}

// Plain is a bare string component.
type Plain string

// Node is a structured component with ordered children.
type Node struct {
	Text  string
	Extra []RichText
}

func (Plain) isRichText() {}
func (*Node) isRichText() {}

// Flatten concatenates the root text followed by every child, depth first.
func Flatten(rt RichText) string {
	var b strings.Builder
	flattenInto(&b, rt)
	return b.String()
}

func flattenInto(b *strings.Builder, rt RichText) {
	switch v := rt.(type) {
	case Plain:
		b.WriteString(string(v))
	case *Node:
		if v == nil {
			return
		}
		b.WriteString(v.Text)
		for _, child := range v.Extra {
			flattenInto(b, child)
		}
	}
}

// ParseRichText decodes a JSON chat component. Strings become Plain,
// objects become Node (only "text" and "extra" are read), arrays become a
// Node whose first element is the parent and the rest its children.
// Anything else yields nil.
func ParseRichText(raw json.RawMessage) RichText {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return Plain(s)
	case '{':
		var obj struct {
			Text  json.RawMessage   `json:"text"`
			Extra []json.RawMessage `json:"extra"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		n := &Node{Text: scalarText(obj.Text)}
		for _, e := range obj.Extra {
			if child := ParseRichText(e); child != nil {
				n.Extra = append(n.Extra, child)
			}
		}
		return n
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
			return nil
		}
		n := &Node{}
		for _, it := range items {
			if child := ParseRichText(it); child != nil {
				n.Extra = append(n.Extra, child)
			}
		}
		return n
	default:
		// numbers and booleans are valid components too
		var v any
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			return nil
		}
		if s := scalarText(raw); s != "" {
			return Plain(s)
		}
		return nil
	}
}

// scalarText renders a "text" value; some servers send numbers there.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}
