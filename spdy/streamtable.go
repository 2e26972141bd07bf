package spdy

// streamTable implements component 4.D: a keyed lookup of live
// Requests by stream id. It is exclusively owned by the connection
// engine's goroutine — no lock is needed (spec §9 "avoid locks inside
// the engine"), matching the reference implementation's
// streams map[common.StreamID]common.Stream, minus its
// streamsLock, which exists there only because that implementation
// lets multiple stream goroutines touch the map directly.
type streamTable struct {
	streams map[uint32]*Request
}

func newStreamTable() *streamTable {
	return &streamTable{streams: make(map[uint32]*Request)}
}

func (t *streamTable) insert(req *Request) {
	t.streams[req.streamID] = req
}

func (t *streamTable) remove(id uint32) {
	delete(t.streams, id)
}

func (t *streamTable) get(id uint32) (*Request, bool) {
	req, ok := t.streams[id]
	return req, ok
}

// iter calls fn for every live request. Used when a SETTINGS frame
// changes the peer's advertised initial window and every stream's
// window_out must be adjusted by the signed delta (spec §4.E).
func (t *streamTable) iter(fn func(*Request)) {
	for _, req := range t.streams {
		fn(req)
	}
}

func (t *streamTable) len() int { return len(t.streams) }
