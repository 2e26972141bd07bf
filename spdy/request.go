package spdy

import "net/http"

// RequestDelegate receives the stream-level callbacks named in spec
// §6. All four are posted from the connection's application
// executor (never inline, never from the engine goroutine).
type RequestDelegate interface {
	OnResponse(headers http.Header)
	OnData(data []byte)
	OnError(err *Error)
	OnEnd()
}

// Request is one logical stream, grounded on
// original_source/include/ispdy.h's ISpdyRequest (method/url/headers,
// closed_by_us/closed_by_them, write/end/close) and spec §3's data
// model. A Request is constructed inert; Connection.Send binds it to
// a connection and assigns its stream id.
type Request struct {
	Method  string
	URL     string
	Headers http.Header

	delegate RequestDelegate

	// connection is a weak back-reference: non-owning, cleared on
	// teardown so that calls arriving after teardown degrade to
	// no-ops instead of touching a torn-down connection (spec §9,
	// "Cyclic structures").
	connection *Connection
	streamID   uint32

	// Flow control (spec §3). windowOut is signed: a peer that lowers
	// its advertised initial window via SETTINGS after streams are
	// already open can drive it negative.
	windowIn  int64
	windowOut int64

	closedByUs        bool
	closedByThem      bool
	pendingClosedByUs bool
	seenResponse      bool

	dataQueue [][]byte
}

// NewRequest constructs an inert request; headers may be nil.
func NewRequest(method, url string, headers http.Header) *Request {
	if headers == nil {
		headers = make(http.Header)
	}
	return &Request{Method: method, URL: url, Headers: headers}
}

func (r *Request) SetDelegate(d RequestDelegate) { r.delegate = d }

// bound reports whether this request has already been sent.
func (r *Request) bound() bool { return r.connection != nil }

// Write queues bytes for this stream. A no-op if the stream has
// already been torn down (spec §5, "the engine checks the
// back-reference and drops no-ops").
func (r *Request) Write(data []byte) {
	if r.connection == nil || len(data) == 0 {
		return
	}
	r.connection.enqueue(func(c *Connection) { c.writeData(r, data) })
}

// End gracefully half-closes this stream from our side.
func (r *Request) End() {
	if r.connection == nil {
		return
	}
	r.connection.enqueue(func(c *Connection) { c.endRequest(r) })
}

// Close unilaterally aborts this stream.
func (r *Request) Close() {
	if r.connection == nil {
		return
	}
	r.connection.enqueue(func(c *Connection) { c.closeRequest(r) })
}
