package router

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
)

var reqSeq atomic.Uint32

// newReqID returns a short id for correlating a command's log lines.
func newReqID() string {
	return fmt.Sprintf("%x-%x", time.Now().Unix()&0xffffff, reqSeq.Add(1))
}

// splitArgs splits a command line on whitespace. Single or double quotes
// group words and a backslash escapes the next character:
//
//	server set "mc.example.org:25566"
func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
		inWord  bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				out = append(out, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, cur.String())
	}
	return out
}
