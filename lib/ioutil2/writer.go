package ioutil2

import "io"

// NewCallbackWriter wraps w so onWrite fires once per Write call,
// regardless of how many bytes it carried.
func NewCallbackWriter(w io.Writer, onWrite func()) WriterFunc {
	return func(p []byte) (n int, err error) {
		onWrite()
		return w.Write(p)
	}
}
