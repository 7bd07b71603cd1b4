package tgui

import (
	"html"
	"strings"
)

// H is HTML that is safe to send with ParseMode=HTML.
type H string

func (h H) String() string { return string(h) }

// Esc escapes plain text.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks s as already-safe HTML.
func Raw(s string) H { return H(s) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + string(inner) + "</" + tag + ">") }

func B(s string) H    { return wrap("b", Esc(s)) }
func I(s string) H    { return wrap("i", Esc(s)) }
func Code(s string) H { return wrap("code", Esc(s)) }
func Pre(s string) H  { return wrap("pre", Esc(s)) }

// BoldCode renders s as bold monospace, used for addresses.
func BoldCode(s string) H { return wrap("b", Code(s)) }

// Concat joins parts without a separator.
func Concat(parts ...H) H {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(string(p))
	}
	return H(b.String())
}

// Lines joins parts with newlines. Empty parts are kept as blank lines.
func Lines(parts ...H) H {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = string(p)
	}
	return H(strings.Join(ss, "\n"))
}
