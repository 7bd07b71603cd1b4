// Package mcserver talks to a Minecraft server: address resolution, status
// ping and the query protocol's player list. Wire formats are handled by
// go-mc (Java status), go-raknet (Bedrock ping) and mcutil (query).
package mcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrAddressNotFound is returned by Resolve when the address does not resolve.
var ErrAddressNotFound = errors.New("server address not found")

// Endpoint is a resolved, queryable server target. Immutable once created.
type Endpoint struct {
	Host string
	Port uint16
	// QueryPort is the UDP port of the query protocol; 0 means Port.
	QueryPort uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// QueryAddr returns the host and port used for the query protocol.
func (e Endpoint) QueryAddr() (string, uint16) {
	if e.QueryPort != 0 {
		return e.Host, e.QueryPort
	}
	return e.Host, e.Port
}

// Snapshot is one status reply. Counts are passed through as reported.
type Snapshot struct {
	PlayersOnline int
	PlayersMax    int
	Description   RichText
	Version       string
}

// Client is a blocking game-server client. Every method honours ctx.
type Client interface {
	Resolve(ctx context.Context, address string) (Endpoint, error)
	Ping(ctx context.Context, ep Endpoint) (Snapshot, error)
	Query(ctx context.Context, ep Endpoint) ([]string, error)
}

// New returns the client for the given edition ("java" or "bedrock").
func New(edition string, queryPort int) (Client, error) {
	var qp uint16
	if queryPort > 0 && queryPort <= 65535 {
		qp = uint16(queryPort)
	}
	r := &resolver{lookup: net.DefaultResolver, queryPort: qp}
	switch edition {
	case "", "java":
		r.defaultPort = JavaDefaultPort
		r.srv = true
		return &javaClient{resolver: r}, nil
	case "bedrock":
		r.defaultPort = BedrockDefaultPort
		return &bedrockClient{resolver: r}, nil
	default:
		return nil, fmt.Errorf("mcserver: unknown edition %q", edition)
	}
}
