package config

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/chensheng12330/iSPDY/lib/netutil"
	"github.com/chensheng12330/iSPDY/spdy"
)

// Connection is the decoded, validated shape of what a caller feeds
// spdy.Open: the network endpoint plus the handful of connection-wide
// tunables SPEC_FULL.md's ambient config layer exposes. Everything
// else (headers, method, per-request state) belongs to spdy.Request,
// not here.
type Connection struct {
	// Endpoint is "host:port".
	Endpoint string `config:"endpoint" validate:"required,endpoint"`
	// Secure upgrades the dial to TLS and attempts NPN/ALPN
	// negotiation (spdy.Dial).
	Secure bool `config:"secure"`
	// Version is the protocol version to request; 2 or 3.
	Version int `config:"version" validate:"oneof=2 3"`
	// DialTimeout bounds spdy.Open's underlying dial + TLS handshake.
	DialTimeout time.Duration `config:"dial-timeout" validate:"min-time=100ms,max-time=5m"`
	// InitialWindowSize is decoded and range-checked only: Open does not
	// pass it to the connection, which always advertises and uses
	// spdy.DefaultInitialWindowSize as its receive window.
	InitialWindowSize datasize.ByteSize `config:"initial-window-size" validate:"min-size=1KB,max-size=16MB"`
	// ServerName overrides the TLS ServerName sent in the handshake.
	// Nil means "derive from Endpoint's host", spdy.Open's default.
	ServerName *string `config:"server-name"`
	// CacheDNS resolves Endpoint's host once and reuses the resolved
	// address on every subsequent Open, via netutil.NewDNSCachingDialer.
	// Useful when a process opens many connections to the same host.
	CacheDNS bool `config:"cache-dns"`
}

// DefaultConnection returns the tunables spdy.Open itself defaults
// to, spelled out so a caller decoding a partial config can start
// from a known-valid baseline and override only what they need.
func DefaultConnection() Connection {
	return Connection{
		Version:           int(spdy.V3),
		DialTimeout:       30 * time.Second,
		InitialWindowSize: datasize.ByteSize(spdy.DefaultInitialWindowSize),
	}
}

// Open dials c.Endpoint and returns a running *spdy.Connection,
// applying DialTimeout as a context deadline the way cmd/ispdycat's
// CLI flags do. Reimplements spdy.Open's body, rather than calling it
// directly, to thread ServerName through to the TLS handshake when set
// and to pass a DNS-caching dialer when CacheDNS is set.
func (c Connection) Open(ctx context.Context, opts ...spdy.Option) (*spdy.Connection, error) {
	_, _, err := net.SplitHostPort(c.Endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid endpoint %q", c.Endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, c.DialTimeout)
	defer cancel()

	var tlsConfig *tls.Config
	if c.Secure {
		tlsConfig = &tls.Config{ServerName: serverName(c)}
	}

	var dialer netutil.Dialer
	if c.CacheDNS {
		dialer = netutil.NewDNSCachingDialer(&net.Dialer{}, netutil.DefaultDNSCache)
	}

	transport, negotiated, err := spdy.Dial(ctx, dialer, "tcp", c.Endpoint, tlsConfig, spdy.ProtocolVersion(c.Version))
	if err != nil {
		return nil, err
	}

	conn := spdy.NewConnection(transport, negotiated, opts...)
	conn.Run()
	return conn, nil
}

func serverName(c Connection) string {
	if c.ServerName != nil {
		return *c.ServerName
	}
	host, _, _ := net.SplitHostPort(c.Endpoint)
	return host
}
