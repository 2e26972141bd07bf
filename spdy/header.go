package spdy

import (
	"bytes"
	"compress/zlib"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// headerCompressor and headerDecompressor implement component 4.A,
// the header codec: a bidirectional zlib stream seeded with a
// version-specific dictionary, stateful across the life of the
// connection. One of each lives on every Connection; a gap or reorder
// of calls desynchronizes the peer's zlib state and is unrecoverable,
// which is why both types are exclusively owned by the connection
// engine (never called from more than one goroutine).
//
// Grounded on the reference implementation's common/compression.go:
// a persistent *zlib.Writer over a growing buffer on the compress
// side, and a persistent zlib reader over a growing buffer on the
// decompress side, so each call only has to report the bytes that
// particular call produced or consumed.
type headerCompressor struct {
	version ProtocolVersion
	buf     bytes.Buffer
	w       *zlib.Writer
}

func newHeaderCompressor(version ProtocolVersion) *headerCompressor {
	return &headerCompressor{version: version}
}

func dictionaryFor(version ProtocolVersion) []byte {
	if version == V2 {
		return dictionaryV2
	}
	return dictionaryV3
}

func lengthFieldWidth(version ProtocolVersion) int {
	if version == V2 {
		return 2
	}
	return 4
}

func putLength(buf *bytes.Buffer, version ProtocolVersion, n int) {
	if version == V2 {
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
		return
	}
	buf.WriteByte(byte(n >> 24))
	buf.WriteByte(byte(n >> 16))
	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n))
}

func readLength(r io.Reader, version ProtocolVersion) (int, error) {
	n := lengthFieldWidth(version)
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v, nil
}

// encodeHeaderBlock builds the uncompressed name/value pair block per
// spec §4.A: a pair count, then for each pair a length-prefixed name
// and a length-prefixed, NUL-joined value list. Names are sorted for
// determinism (the wire format doesn't require it, but it keeps
// compression output, and therefore tests, reproducible) and
// lower-cased, matching HTTP/SPDY's case-insensitive header names.
func encodeHeaderBlock(h http.Header, version ProtocolVersion) []byte {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	putLength(&buf, version, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		putLength(&buf, version, len(lower))
		buf.WriteString(lower)
		value := strings.Join(h[name], "\x00")
		putLength(&buf, version, len(value))
		buf.WriteString(value)
	}
	return buf.Bytes()
}

// Compress returns the compressed header block for h (just the
// compressed bytes; the caller is responsible for the enclosing
// frame). The returned slice is only valid until the next call.
func (c *headerCompressor) Compress(h http.Header) ([]byte, error) {
	uncompressed := encodeHeaderBlock(h, c.version)
	if c.w == nil {
		w, err := zlib.NewWriterLevelDict(&c.buf, zlib.BestCompression, dictionaryFor(c.version))
		if err != nil {
			return nil, newError(HeaderCompression, err)
		}
		c.w = w
	}
	start := c.buf.Len()
	if _, err := c.w.Write(uncompressed); err != nil {
		return nil, newError(HeaderCompression, err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, newError(HeaderCompression, err)
	}
	out := make([]byte, c.buf.Len()-start)
	copy(out, c.buf.Bytes()[start:])
	return out, nil
}

type headerDecompressor struct {
	version ProtocolVersion
	in      bytes.Buffer
	out     io.Reader
}

func newHeaderDecompressor(version ProtocolVersion) *headerDecompressor {
	return &headerDecompressor{version: version}
}

// Decompress feeds data (one header block's worth of compressed
// bytes) into the persistent zlib stream and decodes exactly one
// header map from it. A single gap or reorder of calls is fatal
// (HeaderCompression), same as the compress side.
func (d *headerDecompressor) Decompress(data []byte) (http.Header, error) {
	d.in.Write(data)
	if d.out == nil {
		r, err := zlib.NewReaderDict(&d.in, dictionaryFor(d.version))
		if err != nil {
			return nil, newError(HeaderCompression, err)
		}
		d.out = r
	}

	count, err := readLength(d.out, d.version)
	if err != nil {
		return nil, newError(HeaderCompression, errors.Wrap(err, "reading pair count"))
	}

	h := make(http.Header, count)
	for i := 0; i < count; i++ {
		name, err := readField(d.out, d.version)
		if err != nil {
			return nil, newError(HeaderCompression, errors.Wrap(err, "reading name"))
		}
		value, err := readField(d.out, d.version)
		if err != nil {
			return nil, newError(HeaderCompression, errors.Wrap(err, "reading value"))
		}
		// Names are stored verbatim (lower-case on the wire), not
		// canonicalized as http.Header.Add would.
		for _, v := range strings.Split(value, "\x00") {
			h[name] = append(h[name], v)
		}
	}
	return h, nil
}

func readField(r io.Reader, version ProtocolVersion) (string, error) {
	n, err := readLength(r, version)
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxFrameSize {
		return "", errors.Errorf("header field length out of range: %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
