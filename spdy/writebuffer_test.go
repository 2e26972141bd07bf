package spdy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// partialWriter accepts only the first max bytes of any single Write
// call, queuing the remainder on the caller like a socket buffer
// filling up would.
type partialWriter struct {
	max     int
	written []byte
	err     error
}

func (w *partialWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n := len(p)
	if w.max >= 0 && n > w.max {
		n = w.max
	}
	w.written = append(w.written, p[:n]...)
	return n, nil
}

func TestWriteBufferImmediateWrite(t *testing.T) {
	w := &partialWriter{max: -1}
	b := newWriteBuffer(w)

	require.NoError(t, b.WriteRaw([]byte("hello")))
	assert.Equal(t, []byte("hello"), w.written)
	assert.False(t, b.Pending())
}

func TestWriteBufferQueuesShortWrite(t *testing.T) {
	w := &partialWriter{max: 2}
	b := newWriteBuffer(w)

	require.NoError(t, b.WriteRaw([]byte("hello")))
	assert.Equal(t, []byte("he"), w.written)
	assert.True(t, b.Pending())

	w.max = -1
	require.NoError(t, b.Flush())
	assert.Equal(t, []byte("hello"), w.written)
	assert.False(t, b.Pending())
}

func TestWriteBufferAppendsBehindPendingQueue(t *testing.T) {
	w := &partialWriter{max: 0}
	b := newWriteBuffer(w)

	require.NoError(t, b.WriteRaw([]byte("ab")))
	assert.True(t, b.Pending())

	require.NoError(t, b.WriteRaw([]byte("cd")))
	assert.True(t, b.Pending())

	w.max = -1
	require.NoError(t, b.Flush())
	assert.Equal(t, []byte("abcd"), w.written)
	assert.False(t, b.Pending())
}

func TestWriteBufferFlushPartialDrain(t *testing.T) {
	w := &partialWriter{max: 1}
	b := newWriteBuffer(w)

	require.NoError(t, b.WriteRaw([]byte("a")))
	// The queue was empty, so "bc" was tried at once and only "b" went
	// out; "c" is left queued.
	require.NoError(t, b.WriteRaw([]byte("bc")))
	assert.True(t, b.Pending())

	// Flush keeps calling Write while the writer takes bytes, so the
	// one-byte-per-call writer drains the rest in a single Flush, and a
	// second Flush has nothing left to do.
	require.NoError(t, b.Flush())
	assert.Equal(t, []byte("abc"), w.written)
	assert.False(t, b.Pending())

	require.NoError(t, b.Flush())
	assert.Equal(t, []byte("abc"), w.written)
	assert.False(t, b.Pending())
}

func TestWriteBufferWriteErrorIsFatal(t *testing.T) {
	w := &partialWriter{err: assert.AnError}
	b := newWriteBuffer(w)

	err := b.WriteRaw([]byte("boom"))
	require.Error(t, err)
	spdyErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, TransportError, spdyErr.Kind)
}
