// Package spdy implements a client-side multiplexer for the SPDY
// protocol, versions 2 and 3.
//
// A Connection owns one transport (typically a TLS connection) and
// multiplexes many concurrent Requests over it, each identified by an
// odd stream id. All protocol state is mutated on a single goroutine
// (the connection's "engine" loop, started by Connection.Run); every
// public method enqueues a command onto that loop rather than
// mutating state directly, so the engine never needs internal locks.
// Delegate callbacks (on_response, on_data, on_error, on_end) are
// posted to a second goroutine, so that slow or misbehaving
// application code cannot stall frame processing.
//
// Header compression, the frame wire format, and per-stream flow
// control are handled internally; callers interact with Connection
// and Request only.
package spdy
