package spdy

import "net/http"

// Frame event types emitted by Parser.Execute. Only the fields the
// connection engine's dispatch table (spec §4.E) actually needs are
// kept; priority, unused bits, and frame types the engine ignores
// (PING, GOAWAY, HEADERS, SYN_STREAM, CREDENTIAL, NOOP) never reach
// this layer at all — Parser silently skips them by length.

type synReplyEvent struct {
	streamID uint32
	header   http.Header
	fin      bool
}

type dataEvent struct {
	streamID uint32
	data     []byte
	fin      bool
}

type rstStreamEvent struct {
	streamID uint32
	status   uint32
}

type windowUpdateEvent struct {
	streamID uint32
	delta    uint32
}

type settingsEvent struct {
	hasInitialWindow bool
	initialWindow    uint32
}

func streamIDBytes(id uint32) [4]byte {
	id &= 0x7fffffff
	return [4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
}

func readStreamID(b []byte) uint32 {
	return (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) & 0x7fffffff
}

func readUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
