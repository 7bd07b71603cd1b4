// Package router turns incoming chat updates into command invocations:
// prefix matching, a subcommand tree with aliases, owner-only access and a
// bounded worker pool for handlers.
package router

import (
	"context"
	"time"

	kit "mcstatusbot/internal/transport"
	logx "mcstatusbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	// Route is a space-separated command path, e.g. "players" or "server set".
	Route       string
	Aliases     []string // root-level aliases, e.g. ["list", "who"]
	Description string
	Usage       string
	Access      Access

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type Request struct {
	Update   kit.Update
	Chat     kit.ChatTarget
	FromID   int64
	FromName string
	Path     []string // matched command path tokens
	Command  string
	Args     []string // tokens after the command path
	ReqID    string
	Prefix   string

	Adapter kit.Sender
	Logger  logx.Logger
}

// Reply sends an HTML message to the chat the request came from.
func (r *Request) Reply(ctx context.Context, html string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc
