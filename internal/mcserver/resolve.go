package mcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	JavaDefaultPort    uint16 = 25565
	BedrockDefaultPort uint16 = 19132
)

// hostLookup is the subset of *net.Resolver the resolver needs.
type hostLookup interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type resolver struct {
	lookup      hostLookup
	defaultPort uint16
	queryPort   uint16
	// srv enables the _minecraft._tcp SRV lookup (Java edition only).
	srv bool
}

// Resolve turns "host[:port]" into an Endpoint. Without an explicit port the
// SRV record is consulted first, then the edition's default port is used.
// The final host must resolve, otherwise ErrAddressNotFound is returned.
func (r *resolver) Resolve(ctx context.Context, address string) (Endpoint, error) {
	host, port, err := splitAddress(address)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q: %v", ErrAddressNotFound, address, err)
	}

	if port == 0 && r.srv && net.ParseIP(host) == nil {
		if _, addrs, err := r.lookup.LookupSRV(ctx, "minecraft", "tcp", host); err == nil && len(addrs) > 0 {
			host = strings.TrimSuffix(addrs[0].Target, ".")
			port = addrs[0].Port
		}
	}
	if port == 0 {
		port = r.defaultPort
	}

	if net.ParseIP(host) == nil {
		addrs, err := r.lookup.LookupHost(ctx, host)
		if err != nil || len(addrs) == 0 {
			if ctx.Err() != nil {
				return Endpoint{}, ctx.Err()
			}
			return Endpoint{}, fmt.Errorf("%w: %q", ErrAddressNotFound, address)
		}
	}
	return Endpoint{Host: host, Port: port, QueryPort: r.queryPort}, nil
}

func splitAddress(address string) (string, uint16, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.New("empty address")
	}

	host, portStr := address, ""
	if h, p, err := net.SplitHostPort(address); err == nil {
		host, portStr = h, p
	} else if strings.HasPrefix(address, "[") && strings.HasSuffix(address, "]") {
		host = strings.Trim(address, "[]")
	}
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	if portStr == "" {
		return host, 0, nil
	}
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || p == 0 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, uint16(p), nil
}
