package mcserver

import (
	"context"

	"github.com/mcstatus-io/mcutil/v4/query"
)

// fullQueryPlayers runs a full-stat query. The server must have
// enable-query=true in server.properties.
func fullQueryPlayers(ctx context.Context, ep Endpoint) ([]string, error) {
	host, port := ep.QueryAddr()
	res, err := query.Full(ctx, host, port)
	if err != nil {
		return nil, err
	}
	players := make([]string, 0, len(res.Players))
	for _, p := range res.Players {
		if p != "" {
			players = append(players, p)
		}
	}
	return players, nil
}
