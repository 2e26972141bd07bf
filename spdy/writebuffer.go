package spdy

import "io"

// writeBuffer implements component 4.C: a single FIFO byte queue in
// front of the transport. WriteRaw attempts an immediate write when
// the queue is already empty (the common case — most frames go
// straight to the socket); whatever the transport doesn't take is
// queued and drained on the next Flush. Connection never calls Flush:
// its Transport is a blocking writer whose Write either takes the whole
// frame or fails, and a failed write is fatal to the connection. The
// scheduler never reorders bytes and
// never interleaves a frame mid-flight: WriteRaw is always called
// with one frame's bytes at a time by the connection engine, and
// either the whole call goes out contiguously or the remainder sits
// at the front of the queue ahead of anything queued after it.
//
// Grounded on DanielMorsing-spdy/outframer.go's writeFrame (write,
// classify the error, treat any failure as connection-fatal) and
// spdy3/io.go's send loop, simplified to a single queue since this
// client never prioritizes beyond priority zero (Non-goal).
type writeBuffer struct {
	w     io.Writer
	queue []byte
}

func newWriteBuffer(w io.Writer) *writeBuffer {
	return &writeBuffer{w: w}
}

// WriteRaw appends bytes to the queue, first trying to write directly
// when nothing is already queued.
func (b *writeBuffer) WriteRaw(p []byte) error {
	if len(b.queue) == 0 {
		n, err := b.w.Write(p)
		if err != nil && n == 0 {
			return newError(TransportError, err)
		}
		if err != nil {
			b.queue = append(b.queue, p[n:]...)
			return newError(TransportError, err)
		}
		if n < len(p) {
			b.queue = append(b.queue, p[n:]...)
		}
		return nil
	}
	b.queue = append(b.queue, p...)
	return nil
}

// Flush drains as much of the queue as the transport currently
// accepts, calling Write until the queue is empty, Write fails, or
// Write takes zero bytes.
func (b *writeBuffer) Flush() error {
	for len(b.queue) > 0 {
		n, err := b.w.Write(b.queue)
		if n > 0 {
			b.queue = b.queue[:copy(b.queue, b.queue[n:])]
		}
		if err != nil {
			return newError(TransportError, err)
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func (b *writeBuffer) Pending() bool { return len(b.queue) > 0 }
