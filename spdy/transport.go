package spdy

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/pkg/errors"

	"github.com/chensheng12330/iSPDY/lib/netutil"
)

// Transport is the duplex byte stream component E depends on (spec
// §6): non-blocking-ish, readable/writable-driven in spirit, but any
// io.ReadWriteCloser — in particular a net.Conn and a *tls.Conn — already
// satisfies it, since Connection drives reads from a dedicated
// goroutine rather than requiring true non-blocking semantics (see
// conn.go's readLoop).
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// npnProtocols lists the NPN/ALPN protocol strings this client
// offers, most-preferred first. Grounded on
// vendor/github.com/SlyMarbo/spdy/transport.go's process(), which
// negotiates TLS among the same set.
var npnProtocols = []string{"spdy/3.1", "spdy/3", "spdy/2", "http/1.1"}

func versionForNegotiatedProtocol(proto string) (ProtocolVersion, bool) {
	switch proto {
	case "spdy/3.1", "spdy/3":
		return V3, true
	case "spdy/2":
		return V2, true
	default:
		return 0, false
	}
}

// Dial opens a transport to addr. dialer may be nil, in which case a
// plain *net.Dialer is used (matching lib/netutil.Dialer's shape so
// callers can substitute a DNS-caching or pooling dialer from that
// package). If tlsConfig is non-nil the connection is upgraded to TLS
// and NPN/ALPN negotiation is attempted among spdy/3.1, spdy/3,
// spdy/2 and http/1.1 (unless tlsConfig already sets NextProtos); the
// negotiated version overrides preferred only if the peer selected one
// of the spdy protocols — a plain TCP dial, a TLS peer without ALPN,
// or a peer that selects http/1.1 keeps preferred as-is. This is the
// "secure" flag from the original ISpdy's connect:host:port:secure:
// (SPEC_FULL.md §4.F, §12).
func Dial(ctx context.Context, dialer netutil.Dialer, network, addr string, tlsConfig *tls.Config, preferred ProtocolVersion) (Transport, ProtocolVersion, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "dial %s", addr)
	}

	if tlsConfig == nil {
		return conn, preferred, nil
	}

	cfg := tlsConfig.Clone()
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = npnProtocols
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, 0, errors.Wrap(err, "tls handshake")
	}

	version := preferred
	if v, ok := versionForNegotiatedProtocol(tlsConn.ConnectionState().NegotiatedProtocol); ok {
		version = v
	}
	return tlsConn, version, nil
}
