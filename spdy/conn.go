package spdy

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/chensheng12330/iSPDY/lib/errutil"
	"github.com/chensheng12330/iSPDY/lib/ioutil2"
	"github.com/chensheng12330/iSPDY/lib/monitoring"
)

// ConnectionDelegate receives the connection-level callback named in
// spec §6. It is optional: a Connection with no delegate set simply
// drops the notification.
type ConnectionDelegate interface {
	OnConnectionError(err *Error)
}

// Option configures a Connection at construction time.
type Option func(*Connection)

func WithLogger(l *zap.Logger) Option { return func(c *Connection) { c.logger = l } }

func WithConnectionDelegate(d ConnectionDelegate) Option { return func(c *Connection) { c.delegate = d } }

// Connection implements component 4.E: the engine that owns one
// transport, one header codec pair, one framer/parser pair, one write
// buffer and one stream table, and drives them all from a single
// goroutine (the "connection executor" of spec §5). Every exported
// method that mutates engine state does so by enqueuing a closure onto
// commands rather than touching Connection fields directly, so the
// engine goroutine is the only goroutine that ever reads or writes
// them — this is what lets 4.D's stream table and the framer's
// scratch buffer go without locks.
//
// Grounded on the reference implementation's spdy3 Conn (separate
// send/readFrames goroutines feeding a central Run loop over
// channels) and DanielMorsing-spdy/session.go's single select loop,
// simplified to the one stream-priority tier this client supports.
type Connection struct {
	version   ProtocolVersion
	transport Transport
	logger    *zap.Logger

	headerCompressor   *headerCompressor
	headerDecompressor *headerDecompressor
	framer             *Framer
	parser             *Parser
	writeBuf           *writeBuffer

	streams           *streamTable
	nextStreamID      uint32
	initialPeerWindow int64

	closed atomic.Bool

	delegate ConnectionDelegate

	commands  chan func(*Connection)
	readCh    chan []byte
	readErrCh chan error

	appCh     chan func()
	appClosed sync.Once

	activeStreams *monitoring.Counter
	writesOut     *monitoring.Counter
}

// WritesOut reports how many times this connection has called
// transport.Write: once per WriteRaw that goes out immediately, and
// once per loop iteration Flush needs to drain a queued backlog.
func (c *Connection) WritesOut() int64 { return c.writesOut.Get() }

// NewConnection wires together an already-open Transport with a fresh
// header codec, framer, parser and write buffer for version, but does
// not start the engine goroutines; call Run for that. Split out from
// Open so tests can drive a Connection over an in-memory io.Pipe pair
// without a real dial.
func NewConnection(transport Transport, version ProtocolVersion, opts ...Option) *Connection {
	c := &Connection{
		version:           version,
		transport:         transport,
		nextStreamID:      1,
		initialPeerWindow: DefaultInitialWindowSize,
		streams:           newStreamTable(),
		commands:          make(chan func(*Connection), 64),
		readCh:            make(chan []byte, 64),
		readErrCh:         make(chan error, 1),
		appCh:             make(chan func(), 1024),
		logger:            zap.NewNop(),
		activeStreams:     &monitoring.Counter{},
		writesOut:         &monitoring.Counter{},
	}
	c.headerCompressor = newHeaderCompressor(version)
	c.headerDecompressor = newHeaderDecompressor(version)
	c.framer = newFramer(version, c.headerCompressor)
	c.parser = newParser(version, c.headerDecompressor)
	countedTransport := ioutil2.NewCallbackWriter(transport, func() { c.writesOut.Add(1) })
	c.writeBuf = newWriteBuffer(countedTransport)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open dials host:port (optionally over TLS, negotiating NPN/ALPN)
// and returns a running Connection — the combined "open" external
// operation of spec §6, grounded on ISpdy's
// connect:host:port:secure: (original_source/include/ispdy.h).
func Open(ctx context.Context, version ProtocolVersion, host string, port int, secure bool, opts ...Option) (*Connection, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var tlsConfig *tls.Config
	if secure {
		tlsConfig = &tls.Config{ServerName: host}
	}
	transport, negotiated, err := Dial(ctx, nil, "tcp", addr, tlsConfig, version)
	if err != nil {
		return nil, err
	}
	c := NewConnection(transport, negotiated, opts...)
	c.Run()
	return c, nil
}

// SetDelegate replaces the connection delegate. Only safe to call
// before Run, or from within a ConnectionDelegate/RequestDelegate
// callback; it is not routed through the command channel because
// there is no stream state it could race with.
func (c *Connection) SetDelegate(d ConnectionDelegate) { c.delegate = d }

// Closed reports whether the connection has torn down. Safe to call
// from any goroutine.
func (c *Connection) Closed() bool { return c.closed.Load() }

// Run starts the three goroutines that make up a live connection: the
// transport reader, the application callback executor, and the
// engine itself. Exactly one of each per Connection.
func (c *Connection) Run() {
	go c.readLoop()
	go c.runApplicationExecutor()
	go c.engineLoop()
}

// enqueue is the single entry point every Request method and Send use
// to reach the engine goroutine. It blocks only on channel backpressure,
// never on I/O.
func (c *Connection) enqueue(fn func(*Connection)) {
	c.commands <- fn
}

func (c *Connection) deliver(fn func()) {
	c.appCh <- fn
}

func (c *Connection) runApplicationExecutor() {
	for fn := range c.appCh {
		fn()
	}
}

func (c *Connection) closeAppExecutor() {
	c.appClosed.Do(func() { close(c.appCh) })
}

func (c *Connection) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.readCh <- chunk
		}
		if err != nil {
			c.readErrCh <- err
			return
		}
	}
}

func (c *Connection) engineLoop() {
	if c.version == V3 {
		c.framer.Clear()
		if err := c.framer.WriteSettingsInitialWindow(DefaultInitialWindowSize); err == nil {
			_ = c.writeBuf.WriteRaw(c.framer.Output())
		}
	}
	for {
		select {
		case cmd := <-c.commands:
			cmd(c)
		case chunk := <-c.readCh:
			c.handleInbound(chunk)
		case err := <-c.readErrCh:
			kind := TransportError
			if err == io.EOF {
				kind = ConnectionEnd
			}
			c.fail(newError(kind, err))
			return
		}
		if c.closed.Load() {
			return
		}
	}
}

// Send implements Connection::send (spec §6): assigns req a stream id
// and emits SYN_STREAM. req.connection is set here, synchronously,
// rather than inside the enqueued closure, so a second concurrent
// Send on the same *Request observes AlreadySent instead of racing to
// allocate two stream ids; callers are expected to call Send for a
// given Request from one goroutine, same as the reference
// implementation's single "start" entrypoint.
func (c *Connection) Send(req *Request) error {
	if req.connection != nil {
		return newError(AlreadySent, nil)
	}
	req.connection = c
	c.enqueue(func(c *Connection) { c.sendRequest(req) })
	return nil
}

func (c *Connection) sendRequest(req *Request) {
	if c.closed.Load() {
		req.connection = nil
		return
	}
	if c.nextStreamID > MaxStreamID {
		c.fail(newErrorf(ProtocolError, "stream id space exhausted"))
		return
	}
	id := c.nextStreamID
	c.nextStreamID += 2
	req.streamID = id
	req.windowIn = DefaultInitialWindowSize
	req.windowOut = c.initialPeerWindow
	c.streams.insert(req)
	c.activeStreams.Add(1)

	c.framer.Clear()
	if err := c.framer.WriteSynStream(id, req.Method, req.URL, req.Headers); err != nil {
		c.fail(newError(ProtocolError, err))
		return
	}
	if err := c.writeBuf.WriteRaw(c.framer.Output()); err != nil {
		c.fail(newError(TransportError, err))
		return
	}
	c.logger.Debug("sent SYN_STREAM", zap.Uint32("stream_id", id), zap.String("method", req.Method), zap.String("url", req.URL))
}

// writeData implements the outbound data path of spec §4.E. V2 has no
// flow control and always sends the full payload; V3 appends to the
// stream's data queue and immediately tries to drain it against
// window_out, which is equivalent to "send what the window allows, queue
// the rest" but shares its logic with WINDOW_UPDATE/SETTINGS-driven
// draining instead of duplicating it.
func (c *Connection) writeData(req *Request, data []byte) {
	if c.closed.Load() || req.connection == nil || req.closedByUs {
		return
	}
	if c.version == V2 {
		c.emitData(req, data, false)
		return
	}
	req.dataQueue = append(req.dataQueue, data)
	c.drainQueue(req)
}

func (c *Connection) drainQueue(req *Request) {
	for req.windowOut > 0 && len(req.dataQueue) > 0 {
		chunk := req.dataQueue[0]
		req.dataQueue = req.dataQueue[1:]
		send := chunk
		var remainder []byte
		if int64(len(chunk)) > req.windowOut {
			send = chunk[:req.windowOut]
			remainder = chunk[req.windowOut:]
		}
		req.windowOut -= int64(len(send))
		if len(remainder) > 0 {
			req.dataQueue = append([][]byte{remainder}, req.dataQueue...)
		}
		c.emitData(req, send, false)
		if c.closed.Load() {
			return
		}
	}
	c.maybeFirePendingClose(req)
}

func (c *Connection) emitData(req *Request, payload []byte, fin bool) {
	c.framer.Clear()
	if err := c.framer.WriteData(req.streamID, fin, payload); err != nil {
		c.fail(newError(ProtocolError, err))
		return
	}
	if err := c.writeBuf.WriteRaw(c.framer.Output()); err != nil {
		c.fail(newError(TransportError, err))
		return
	}
	if fin {
		req.closedByUs = true
		c.attemptTeardown(req)
	}
}

func (c *Connection) maybeFirePendingClose(req *Request) {
	if req.pendingClosedByUs && len(req.dataQueue) == 0 {
		req.pendingClosedByUs = false
		c.endRequest(req)
	}
}

// endRequest implements Request.End's engine-side half (spec §4.E): a
// graceful half-close that waits for any already-queued data to drain
// first.
func (c *Connection) endRequest(req *Request) {
	if c.closed.Load() || req.connection == nil || req.closedByUs || req.pendingClosedByUs {
		return
	}
	if len(req.dataQueue) > 0 {
		req.pendingClosedByUs = true
		return
	}
	c.emitData(req, nil, true)
}

// closeRequest implements Request.Close (spec §4.E, §5 "Cancellation"):
// a unilateral abort. RST_STREAM(CANCEL) is sent unless we already
// half-closed; the stream is removed from the table immediately either
// way, without waiting for the peer to acknowledge.
func (c *Connection) closeRequest(req *Request) {
	if c.closed.Load() || req.connection == nil {
		return
	}
	if !req.closedByUs {
		c.framer.Clear()
		if err := c.framer.WriteRstStream(req.streamID, StatusCancel); err != nil {
			c.fail(newError(ProtocolError, err))
			return
		}
		if err := c.writeBuf.WriteRaw(c.framer.Output()); err != nil {
			c.fail(newError(TransportError, err))
			return
		}
	}
	req.closedByUs = true
	req.closedByThem = true
	c.teardown(req)
}

func (c *Connection) attemptTeardown(req *Request) {
	if req.connection != nil && req.closedByUs && req.closedByThem {
		c.teardown(req)
	}
}

// teardown delivers the terminal "end" callback, clears the weak
// back-reference, and removes the stream from the table. Idempotent:
// a second call on an already-torn-down request is a no-op, which is
// what makes Request.Close safe to call twice (spec §8).
func (c *Connection) teardown(req *Request) {
	if req.connection == nil {
		return
	}
	req.connection = nil
	c.streams.remove(req.streamID)
	c.activeStreams.Add(-1)
	delegate := req.delegate
	c.deliver(func() {
		if delegate != nil {
			delegate.OnEnd()
		}
	})
}

func (c *Connection) afterFrame(fin bool, req *Request) {
	if fin && req.connection != nil {
		req.closedByThem = true
		c.attemptTeardown(req)
	}
}

// handleInbound feeds one transport read's worth of bytes through the
// parser and dispatches every frame event it produces, in order, even
// if the parser ultimately reports a fatal error after some of them.
func (c *Connection) handleInbound(chunk []byte) {
	events, err := c.parser.Execute(chunk)
	for _, ev := range events {
		c.dispatch(ev)
		if c.closed.Load() {
			return
		}
	}
	if err != nil {
		if spdyErr, ok := err.(*Error); ok {
			c.fail(spdyErr)
		} else {
			c.fail(newError(ProtocolError, err))
		}
	}
}

func (c *Connection) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *synReplyEvent:
		c.dispatchSynReply(e)
	case *dataEvent:
		c.dispatchData(e)
	case *rstStreamEvent:
		c.dispatchRstStream(e)
	case *windowUpdateEvent:
		c.dispatchWindowUpdate(e)
	case *settingsEvent:
		c.dispatchSettings(e)
	}
}

func (c *Connection) dispatchSynReply(e *synReplyEvent) {
	req, ok := c.streams.get(e.streamID)
	if !ok {
		c.unknownStream(e.streamID)
		return
	}
	if req.seenResponse {
		c.rstUnlocked(e.streamID, StatusProtocolError)
		delegate := req.delegate
		req.connection = nil
		c.streams.remove(req.streamID)
		c.activeStreams.Add(-1)
		c.deliver(func() {
			if delegate != nil {
				delegate.OnError(newError(DoubleResponse, nil))
			}
		})
		return
	}
	req.seenResponse = true
	headers := e.header
	delegate := req.delegate
	c.deliver(func() {
		if delegate != nil {
			delegate.OnResponse(headers)
		}
	})
	c.drainQueue(req)
	if c.closed.Load() {
		return
	}
	c.afterFrame(e.fin, req)
}

func (c *Connection) dispatchData(e *dataEvent) {
	req, ok := c.streams.get(e.streamID)
	if !ok {
		c.unknownStream(e.streamID)
		return
	}

	if c.version == V3 {
		req.windowIn -= int64(len(e.data))
		if req.windowIn <= 0 {
			delta := uint32(DefaultInitialWindowSize - req.windowIn)
			c.framer.Clear()
			if err := c.framer.WriteWindowUpdate(req.streamID, delta); err != nil {
				c.fail(newError(ProtocolError, err))
				return
			}
			if err := c.writeBuf.WriteRaw(c.framer.Output()); err != nil {
				c.fail(newError(TransportError, err))
				return
			}
			req.windowIn += int64(delta)
		}
	}

	if len(e.data) > 0 {
		payload := e.data
		delegate := req.delegate
		c.deliver(func() {
			if delegate != nil {
				delegate.OnData(payload)
			}
		})
	}
	c.afterFrame(e.fin, req)
}

func (c *Connection) dispatchRstStream(e *rstStreamEvent) {
	req, ok := c.streams.get(e.streamID)
	if !ok {
		return // never reply RST to RST (spec §4.E).
	}
	delegate := req.delegate
	req.connection = nil
	c.streams.remove(req.streamID)
	c.activeStreams.Add(-1)
	c.deliver(func() {
		if delegate != nil {
			delegate.OnError(newError(RstStream, nil))
			delegate.OnEnd()
		}
	})
}

func (c *Connection) dispatchWindowUpdate(e *windowUpdateEvent) {
	if c.version != V3 {
		return
	}
	req, ok := c.streams.get(e.streamID)
	if !ok {
		return
	}
	req.windowOut += int64(e.delta)
	if req.windowOut > 0 {
		c.drainQueue(req)
	}
}

// dispatchSettings applies a changed INITIAL_WINDOW_SIZE to every
// currently-live stream's window_out and to the baseline used for
// streams created afterward (spec §4.E, test scenario 6). SETTINGS
// carries no is_fin; it never affects any stream's half-close state
// (§9 Open Question, resolved conservatively).
func (c *Connection) dispatchSettings(e *settingsEvent) {
	if !e.hasInitialWindow {
		return
	}
	delta := int64(e.initialWindow) - c.initialPeerWindow
	c.initialPeerWindow = int64(e.initialWindow)
	c.streams.iter(func(req *Request) {
		req.windowOut += delta
		if req.windowOut > 0 {
			c.drainQueue(req)
		}
	})
}

// unknownStream handles a SYN_REPLY or DATA referencing a stream id
// that is not (or no longer) in the table: per spec §4.E this is
// fatal at the connection level, after an RST_STREAM(PROTOCOL_ERROR)
// is sent.
func (c *Connection) unknownStream(streamID uint32) {
	c.rstUnlocked(streamID, StatusProtocolError)
	c.fail(newErrorf(ProtocolError, "frame for unknown stream %d", streamID))
}

func (c *Connection) rstUnlocked(streamID uint32, status uint32) {
	c.framer.Clear()
	if err := c.framer.WriteRstStream(streamID, status); err != nil {
		return
	}
	_ = c.writeBuf.WriteRaw(c.framer.Output())
}

// fail tears down the connection exactly once: the transport is
// closed, every still-live stream receives one error callback
// followed by one end callback (in that order, within a single
// delivery so nothing can interleave between them), and the
// connection delegate receives exactly one OnConnectionError.
func (c *Connection) fail(protoErr *Error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	closeErr := c.transport.Close()
	logErr := errutil.Join(protoErr.Err, closeErr)
	c.logger.Error("connection closed",
		zap.String("kind", protoErr.Kind.String()),
		zap.Error(logErr),
		zap.Int("live_streams", c.streams.len()),
		zap.Int64("writes_out", c.writesOut.Get()),
	)

	c.streams.iter(func(req *Request) {
		req.connection = nil
		delegate := req.delegate
		c.deliver(func() {
			if delegate != nil {
				delegate.OnError(protoErr)
				delegate.OnEnd()
			}
		})
	})
	c.activeStreams.Set(0)
	c.streams = newStreamTable()

	if c.delegate != nil {
		d := c.delegate
		c.deliver(func() { d.OnConnectionError(protoErr) })
	}
	c.closeAppExecutor()
}
