package router

import (
	"context"
	"errors"
	"fmt"

	"mcstatusbot/internal/mcserver"
	"mcstatusbot/internal/monitor"
	logx "mcstatusbot/pkg/logx"
	"mcstatusbot/pkg/tgui"
)

// StatusService is what the status commands need from the monitor.
// *monitor.Service implements it.
type StatusService interface {
	Address() string
	Players(ctx context.Context) (monitor.PlayerList, error)
	SetAddress(ctx context.Context, actor monitor.Actor, address string) (monitor.Outcome, error)
	Refresh(ctx context.Context) (monitor.Outcome, error)
}

// StatusCommands returns the players, server and update commands.
func StatusCommands(svc StatusService) []Command {
	return []Command{
		{
			Route:       "players",
			Aliases:     []string{"list", "who", "online"},
			Description: "list the players on the server",
			Usage:       "players",
			Handle: func(ctx context.Context, req *Request) error {
				list, err := svc.Players(ctx)
				if err != nil {
					req.Logger.Warn("player query failed", logx.Err(err))
					return req.Reply(ctx, playersFailureText(err))
				}
				return req.Reply(ctx, playersText(list))
			},
		},
		{
			Route:       "server",
			Aliases:     []string{"ip"},
			Description: "show the server address",
			Usage:       "server",
			Handle: func(ctx context.Context, req *Request) error {
				return req.Reply(ctx, tgui.Concat("IP: ", tgui.BoldCode(svc.Address())).String())
			},
		},
		{
			Route:       "server set",
			Description: "change the server address and save it to the config",
			Usage:       "server set <address>",
			Access:      AccessOwnerOnly,
			Handle: func(ctx context.Context, req *Request) error {
				if len(req.Args) != 1 {
					return req.Reply(ctx, tgui.Concat("Usage: ", tgui.Code(req.Prefix+"server set <address>")).String())
				}
				addr := req.Args[0]
				actor := monitor.Actor{ID: req.FromID, Username: req.FromName, ChatID: req.Chat.ChatID}
				_, err := svc.SetAddress(ctx, actor, addr)
				switch {
				case err == nil:
					return req.Reply(ctx, tgui.Concat("✅ IP set to ", tgui.Code(addr)).String())
				case errors.Is(err, mcserver.ErrAddressNotFound):
					return req.Reply(ctx, tgui.Concat("❌ Server not found: ", tgui.Code(addr)).String())
				default:
					return err
				}
			},
		},
		{
			Route:       "update",
			Aliases:     []string{"refresh"},
			Description: "refresh the status now",
			Usage:       "update",
			Handle: func(ctx context.Context, req *Request) error {
				out, err := svc.Refresh(ctx)
				if err != nil {
					return err
				}
				return req.Reply(ctx, tgui.Concat("🔄 Status updated: ", tgui.B(out.Presence.Text)).String())
			},
		},
	}
}

func playersText(list monitor.PlayerList) string {
	lines := []tgui.H{tgui.Raw(fmt.Sprintf("🟢 <b>Online players</b> (%d)", len(list.Names)))}
	if len(list.Names) == 0 {
		lines = append(lines, tgui.I("Nobody is online right now."))
	}
	for _, n := range list.Names {
		lines = append(lines, tgui.Esc(n))
	}
	lines = append(lines, "", tgui.Concat("Server IP: ", tgui.Code(list.Address)))
	return tgui.Lines(lines...).String()
}

func playersFailureText(err error) string {
	raw := err.Error()
	var ue *monitor.UnreachableError
	if errors.As(err, &ue) && ue.Err != nil {
		raw = ue.Err.Error()
	}
	return tgui.Lines(
		"❌ Could not query the server.",
		"It may be offline, or its query listener is disabled.",
		tgui.Concat("Set ", tgui.Code("enable-query=true"), " in server.properties and restart it."),
		tgui.Concat("Error: ", tgui.Pre(raw)),
	).String()
}
