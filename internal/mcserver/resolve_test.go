package mcserver

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeLookup struct {
	srv   map[string]*net.SRV
	hosts map[string][]string
}

func (f fakeLookup) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	if s, ok := f.srv[name]; ok {
		return "", []*net.SRV{s}, nil
	}
	return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (f fakeLookup) LookupHost(ctx context.Context, host string) ([]string, error) {
	if a, ok := f.hosts[host]; ok {
		return a, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	lk := fakeLookup{
		srv: map[string]*net.SRV{"example.net": {Target: "mc.example.net.", Port: 25570}},
		hosts: map[string][]string{
			"mc.example.net":   {"10.0.0.2"},
			"play.example.org": {"10.0.0.3"},
		},
	}
	java := &resolver{lookup: lk, defaultPort: JavaDefaultPort, srv: true}
	bedrock := &resolver{lookup: lk, defaultPort: BedrockDefaultPort, queryPort: 19133}

	tests := []struct {
		name string
		r    *resolver
		addr string
		want Endpoint
	}{
		{name: "srv", r: java, addr: "example.net", want: Endpoint{Host: "mc.example.net", Port: 25570}},
		{name: "explicit port skips srv", r: java, addr: "play.example.org:25566", want: Endpoint{Host: "play.example.org", Port: 25566}},
		{name: "default port", r: java, addr: "play.example.org", want: Endpoint{Host: "play.example.org", Port: 25565}},
		{name: "ip literal", r: java, addr: "127.0.0.1", want: Endpoint{Host: "127.0.0.1", Port: 25565}},
		{name: "bedrock", r: bedrock, addr: "play.example.org", want: Endpoint{Host: "play.example.org", Port: 19132, QueryPort: 19133}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.r.Resolve(context.Background(), tt.addr)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.addr, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %+v, want %+v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()
	r := &resolver{lookup: fakeLookup{}, defaultPort: JavaDefaultPort, srv: true}
	for _, addr := range []string{"nowhere.invalid", "", "host:notaport", "host:0"} {
		_, err := r.Resolve(context.Background(), addr)
		if !errors.Is(err, ErrAddressNotFound) {
			t.Fatalf("Resolve(%q) err = %v, want ErrAddressNotFound", addr, err)
		}
	}
}

func TestEndpointQueryAddr(t *testing.T) {
	t.Parallel()
	host, port := Endpoint{Host: "h", Port: 25565}.QueryAddr()
	if host != "h" || port != 25565 {
		t.Fatalf("QueryAddr = %s:%d", host, port)
	}
	if _, port := (Endpoint{Host: "h", Port: 25565, QueryPort: 25575}).QueryAddr(); port != 25575 {
		t.Fatalf("QueryAddr port = %d", port)
	}
}
