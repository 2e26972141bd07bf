package spdy

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Framer implements the serialization half of component 4.B: it
// builds outbound frames into a reusable scratch buffer. Clear resets
// the buffer; Output returns everything written since the last
// Clear. Callers (the connection engine) always bracket a frame's
// construction with Clear/Output so that exactly one frame's bytes
// ever sit in the buffer before being handed to the write
// buffer/scheduler (4.C) — this is what keeps frame boundaries intact
// in the outbound byte stream (invariant 6).
type Framer struct {
	version    ProtocolVersion
	compressor *headerCompressor
	scratch    bytes.Buffer
}

func newFramer(version ProtocolVersion, compressor *headerCompressor) *Framer {
	return &Framer{version: version, compressor: compressor}
}

func (f *Framer) Clear() { f.scratch.Reset() }

func (f *Framer) Output() []byte { return f.scratch.Bytes() }

func (f *Framer) controlHeader(frameType uint16, flags byte, length int) {
	version := uint16(f.version)
	f.scratch.WriteByte(byte(0x80 | byte(version>>8)))
	f.scratch.WriteByte(byte(version))
	f.scratch.WriteByte(byte(frameType >> 8))
	f.scratch.WriteByte(byte(frameType))
	f.scratch.WriteByte(flags)
	f.scratch.WriteByte(byte(length >> 16))
	f.scratch.WriteByte(byte(length >> 8))
	f.scratch.WriteByte(byte(length))
}

// WriteSynStream serializes a SYN_STREAM (spec §4.B). Priority is
// always sent as zero: this client never sends any other priority
// (Non-goal: "request prioritization beyond sending priority zero").
func (f *Framer) WriteSynStream(streamID uint32, method, rawURL string, headers http.Header) error {
	h, err := buildRequestHeaders(f.version, method, rawURL, headers)
	if err != nil {
		return newError(ProtocolError, err)
	}
	compressed, err := f.compressor.Compress(h)
	if err != nil {
		return err
	}

	length := 10 + len(compressed)
	f.controlHeader(frameTypeSynStream, 0, length)
	id := streamIDBytes(streamID)
	f.scratch.Write(id[:])
	f.scratch.Write([]byte{0, 0, 0, 0}) // associated stream id: always 0, no server push.
	f.scratch.WriteByte(0)              // priority (always 0) + unused.
	f.scratch.WriteByte(0)              // unused / slot byte.
	f.scratch.Write(compressed)
	return nil
}

// buildRequestHeaders folds method/url into the pseudo-headers SPDY
// expects: :method/:path/:version/:host/:scheme for V3, the
// unprefixed equivalents for V2 (spec §4.B).
func buildRequestHeaders(version ProtocolVersion, method, rawURL string, headers http.Header) (http.Header, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid request url %q", rawURL)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	h := make(http.Header, len(headers)+5)
	for name, values := range headers {
		h[name] = append([]string(nil), values...)
	}

	if version == V2 {
		h.Set("method", method)
		h.Set("url", path)
		h.Set("version", "HTTP/1.1")
		h.Set("host", u.Host)
		h.Set("scheme", scheme)
	} else {
		h.Set(":method", method)
		h.Set(":path", path)
		h.Set(":version", "HTTP/1.1")
		h.Set(":host", u.Host)
		h.Set(":scheme", scheme)
	}
	return h, nil
}

// WriteData serializes a DATA frame: an 8-byte header (31-bit stream
// id, flags, 24-bit length) followed by the payload, verbatim.
func (f *Framer) WriteData(streamID uint32, fin bool, payload []byte) error {
	if len(payload) > maxFrameSize-8 {
		return newErrorf(ProtocolError, "data frame too large: %d bytes", len(payload))
	}
	var flags byte
	if fin {
		flags = flagFin
	}
	id := streamIDBytes(streamID)
	f.scratch.Write(id[:])
	f.scratch.WriteByte(flags)
	length := len(payload)
	f.scratch.WriteByte(byte(length >> 16))
	f.scratch.WriteByte(byte(length >> 8))
	f.scratch.WriteByte(byte(length))
	f.scratch.Write(payload)
	return nil
}

// WriteRstStream serializes RST_STREAM(stream_id, status) — control
// type 3, an 8-byte body.
func (f *Framer) WriteRstStream(streamID uint32, status uint32) error {
	f.controlHeader(frameTypeRstStream, 0, 8)
	id := streamIDBytes(streamID)
	f.scratch.Write(id[:])
	f.scratch.WriteByte(byte(status >> 24))
	f.scratch.WriteByte(byte(status >> 16))
	f.scratch.WriteByte(byte(status >> 8))
	f.scratch.WriteByte(byte(status))
	return nil
}

// WriteWindowUpdate serializes WINDOW_UPDATE(stream_id, delta) —
// control type 9, V3 only; callers never invoke this on a V2
// connection (spec §4.B).
func (f *Framer) WriteWindowUpdate(streamID uint32, delta uint32) error {
	f.controlHeader(frameTypeWindowUpdate, 0, 8)
	id := streamIDBytes(streamID)
	f.scratch.Write(id[:])
	f.scratch.WriteByte(byte(delta >> 24))
	f.scratch.WriteByte(byte(delta >> 16))
	f.scratch.WriteByte(byte(delta >> 8))
	f.scratch.WriteByte(byte(delta))
	return nil
}

// WriteSettingsInitialWindow serializes a SETTINGS frame carrying a
// single INITIAL_WINDOW_SIZE (id 7) entry — used only to advertise
// our own initial window on connect for V3 (spec §4.E).
func (f *Framer) WriteSettingsInitialWindow(window uint32) error {
	f.controlHeader(frameTypeSettings, 0, 4+8)
	f.scratch.Write([]byte{0, 0, 0, 1}) // one setting.
	if f.version == V2 {
		// V2 encodes the 24-bit setting id byte-reversed; a quirk of
		// the original protocol draft carried by every V2 stack.
		f.scratch.WriteByte(byte(settingInitialWindowSize))
		f.scratch.WriteByte(0)
		f.scratch.WriteByte(0)
	} else {
		f.scratch.WriteByte(0)
		f.scratch.WriteByte(0)
		f.scratch.WriteByte(byte(settingInitialWindowSize))
	}
	f.scratch.WriteByte(0) // flags
	f.scratch.WriteByte(byte(window >> 24))
	f.scratch.WriteByte(byte(window >> 16))
	f.scratch.WriteByte(byte(window >> 8))
	f.scratch.WriteByte(byte(window))
	return nil
}
