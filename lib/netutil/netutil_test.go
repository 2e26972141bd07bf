package netutil

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeDialer is a hand-rolled Dialer test double; no mockery-generated
// mocks exist for this package, so DialContext is recorded directly.
type fakeDialer struct {
	calls []string
	conn  net.Conn
	err   error
}

func (d *fakeDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d.calls = append(d.calls, addr)
	return d.conn, d.err
}

type fakeAddrConn struct {
	net.Conn
	remote net.Addr
}

func (c fakeAddrConn) RemoteAddr() net.Addr { return c.remote }

func TestDNS(t *testing.T) {
	t.Run("lookup reachable", func(t *testing.T) {
		listener, err := net.ListenTCP("tcp4", nil)
		assert.NoError(t, err)
		defer listener.Close()

		port := strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
		addr := "localhost:" + port
		expectedResolved := "127.0.0.1:" + port

		resolved, err := LookupReachable(addr)
		assert.NoError(t, err)
		assert.Equal(t, expectedResolved, resolved)
	})

	const (
		addr     = "localhost:8888"
		resolved = "[::1]:8888"
	)

	t.Run("cache", func(t *testing.T) {
		cache := &SimpleDNSCache{}
		got, ok := cache.Get(addr)
		assert.False(t, ok)
		assert.Equal(t, "", got)

		cache.Add(addr, resolved)
		got, ok = cache.Get(addr)
		assert.True(t, ok)
		assert.Equal(t, resolved, got)
	})

	t.Run("dialer cache miss", func(t *testing.T) {
		ctx := context.Background()
		mockConn := fakeAddrConn{remote: &net.TCPAddr{IP: net.IPv6loopback, Port: 8888}}
		cache := &SimpleDNSCache{}
		dialer := &fakeDialer{conn: mockConn}

		testee := NewDNSCachingDialer(dialer, cache)
		conn, err := testee.DialContext(ctx, "tcp", addr)
		assert.NoError(t, err)
		assert.Equal(t, mockConn, conn)
		assert.Equal(t, []string{addr}, dialer.calls)

		got, ok := cache.Get(addr)
		assert.True(t, ok)
		assert.Equal(t, resolved, got)
	})

	t.Run("dialer cache hit", func(t *testing.T) {
		ctx := context.Background()
		mockConn := fakeAddrConn{}
		cache := &SimpleDNSCache{}
		cache.Add(addr, resolved)
		dialer := &fakeDialer{conn: mockConn}

		testee := NewDNSCachingDialer(dialer, cache)
		conn, err := testee.DialContext(ctx, "tcp", addr)
		assert.NoError(t, err)
		assert.Equal(t, mockConn, conn)
		assert.Equal(t, []string{resolved}, dialer.calls)
	})

	t.Run("dialer cache miss err", func(t *testing.T) {
		ctx := context.Background()
		expectedErr := errors.New("dial failed")
		cache := &SimpleDNSCache{}
		dialer := &fakeDialer{err: expectedErr}

		testee := NewDNSCachingDialer(dialer, cache)
		conn, err := testee.DialContext(ctx, "tcp", addr)
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, conn)
	})
}
