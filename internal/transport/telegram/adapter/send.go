package adapter

import (
	"context"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	kit "mcstatusbot/internal/transport"
)

// messageLimit stays under Telegram's 4096 rune cap to leave room for entities.
const messageLimit = 4000

// splitText packs whole lines into chunks of at most limit runes. Lines that
// are longer on their own are cut, and in HTML mode a cut never lands inside
// a tag.
func splitText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = messageLimit
	}
	s = strings.TrimRight(s, "\n")
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	html := strings.EqualFold(parseMode, tele.ModeHTML)

	var (
		chunks []string
		buf    strings.Builder
		n      int
	)
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
		}
		buf.Reset()
		n = 0
	}
	for _, line := range strings.Split(s, "\n") {
		ln := utf8.RuneCountInString(line)
		if n > 0 && n+1+ln > limit {
			flush()
		}
		for ln > limit {
			head, tail := cutLine(line, limit, html)
			chunks = append(chunks, head)
			line, ln = tail, utf8.RuneCountInString(tail)
		}
		if n > 0 {
			buf.WriteByte('\n')
			n++
		}
		buf.WriteString(line)
		n += ln
	}
	flush()
	return chunks
}

// cutLine splits line after at most limit runes.
func cutLine(line string, limit int, html bool) (string, string) {
	rs := []rune(line)
	at := limit
	if html {
		if open := lastIndexRune(rs[:at], '<'); open > 0 && open > lastIndexRune(rs[:at], '>') {
			at = open
		}
	}
	return string(rs[:at]), string(rs[at:])
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// SendText delivers text as one or more messages and returns the first one.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	so := &tele.SendOptions{ThreadID: to.ThreadID}
	if opt != nil {
		so.ParseMode = opt.ParseMode
		so.DisableWebPagePreview = opt.DisablePreview
	}
	recipient := &tele.Chat{ID: to.ChatID}

	ref := kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID}
	for _, part := range splitText(text, messageLimit, so.ParseMode) {
		if err := ctx.Err(); err != nil {
			return ref, err
		}
		sent, err := a.bot.Send(recipient, part, so)
		if err != nil {
			return ref, err
		}
		if ref.MessageID == 0 {
			ref.MessageID = sent.ID
		}
	}
	return ref, nil
}
