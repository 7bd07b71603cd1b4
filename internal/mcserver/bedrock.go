package mcserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandertv/go-raknet"
)

type bedrockClient struct {
	*resolver
}

func (c *bedrockClient) Ping(ctx context.Context, ep Endpoint) (Snapshot, error) {
	pong, err := raknet.PingContext(ctx, ep.String())
	if err != nil {
		return Snapshot{}, err
	}
	return parseBedrockPong(pong)
}

// parseBedrockPong reads the unconnected pong payload:
//
//	MCPE;<motd>;<protocol>;<version>;<online>;<max>;<server id>;<sub motd>;<game mode>;...
func parseBedrockPong(pong []byte) (Snapshot, error) {
	fields := strings.Split(string(pong), ";")
	if len(fields) < 6 {
		return Snapshot{}, fmt.Errorf("malformed pong: %d fields", len(fields))
	}
	online, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return Snapshot{}, fmt.Errorf("malformed pong: online count %q", fields[4])
	}
	max, err := strconv.Atoi(strings.TrimSpace(fields[5]))
	if err != nil {
		return Snapshot{}, fmt.Errorf("malformed pong: max count %q", fields[5])
	}

	desc := &Node{Text: fields[1]}
	if len(fields) > 7 && fields[7] != "" {
		desc.Extra = []RichText{Plain("\n"), Plain(fields[7])}
	}
	return Snapshot{
		PlayersOnline: online,
		PlayersMax:    max,
		Description:   desc,
		Version:       fields[3],
	}, nil
}

func (c *bedrockClient) Query(ctx context.Context, ep Endpoint) ([]string, error) {
	return fullQueryPlayers(ctx, ep)
}
