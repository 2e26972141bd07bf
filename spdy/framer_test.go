package spdy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness wires a Framer and a Parser sharing compatible header codec
// state for the same version, the way a Connection would.
type harness struct {
	framer *Framer
	parser *Parser
}

func newHarness(version ProtocolVersion) *harness {
	return &harness{
		framer: newFramer(version, newHeaderCompressor(version)),
		parser: newParser(version, newHeaderDecompressor(version)),
	}
}

func TestFramerParserSynStreamRoundTrip(t *testing.T) {
	for _, version := range []ProtocolVersion{V2, V3} {
		t.Run(version.String(), func(t *testing.T) {
			h := newHarness(version)
			headers := http.Header{"Accept": {"*/*"}}

			h.framer.Clear()
			require.NoError(t, h.framer.WriteSynStream(1, "GET", "https://example.com/a?b=c", headers))
			out := append([]byte(nil), h.framer.Output()...)

			events, err := h.parser.Execute(out)
			require.NoError(t, err)
			// SYN_STREAM is never surfaced as an event (spec §4.E ignores it
			// on the receive side; this client only sends it).
			assert.Empty(t, events)
		})
	}
}

func TestFramerParserDataRoundTrip(t *testing.T) {
	h := newHarness(V3)
	h.framer.Clear()
	require.NoError(t, h.framer.WriteData(3, true, []byte("hello")))
	out := h.framer.Output()

	events, err := h.parser.Execute(out)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0].(*dataEvent)
	assert.Equal(t, uint32(3), ev.streamID)
	assert.Equal(t, []byte("hello"), ev.data)
	assert.True(t, ev.fin)
}

func TestFramerParserDataByteAtATime(t *testing.T) {
	// The parser must resume across arbitrarily small reads: feed one
	// byte per Execute call and still recover the whole payload. DATA
	// bodies are streamed without buffering, so each payload byte comes
	// out as its own partial dataEvent.
	h := newHarness(V3)
	h.framer.Clear()
	require.NoError(t, h.framer.WriteData(5, false, []byte("abc")))
	out := h.framer.Output()

	var events []interface{}
	for _, b := range out {
		evs, err := h.parser.Execute([]byte{b})
		require.NoError(t, err)
		events = append(events, evs...)
	}
	require.Len(t, events, 3)
	var data []byte
	for _, e := range events {
		data = append(data, e.(*dataEvent).data...)
	}
	assert.Equal(t, []byte("abc"), data)
	assert.False(t, events[2].(*dataEvent).fin)
}

func TestFramerParserEmptyFinDataDoesNotStall(t *testing.T) {
	h := newHarness(V3)
	h.framer.Clear()
	require.NoError(t, h.framer.WriteData(7, true, nil))
	out := h.framer.Output()

	events, err := h.parser.Execute(out)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0].(*dataEvent)
	assert.Empty(t, ev.data)
	assert.True(t, ev.fin)
}

func TestFramerParserRstStreamRoundTrip(t *testing.T) {
	h := newHarness(V3)
	h.framer.Clear()
	require.NoError(t, h.framer.WriteRstStream(9, StatusCancel))
	events, err := h.parser.Execute(h.framer.Output())
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0].(*rstStreamEvent)
	assert.Equal(t, uint32(9), ev.streamID)
	assert.Equal(t, uint32(StatusCancel), ev.status)
}

func TestFramerParserWindowUpdateRoundTrip(t *testing.T) {
	h := newHarness(V3)
	h.framer.Clear()
	require.NoError(t, h.framer.WriteWindowUpdate(11, 1024))
	events, err := h.parser.Execute(h.framer.Output())
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0].(*windowUpdateEvent)
	assert.Equal(t, uint32(11), ev.streamID)
	assert.Equal(t, uint32(1024), ev.delta)
}

func TestFramerParserSettingsRoundTrip(t *testing.T) {
	for _, version := range []ProtocolVersion{V2, V3} {
		t.Run(version.String(), func(t *testing.T) {
			h := newHarness(version)
			require.NoError(t, h.framer.WriteSettingsInitialWindow(98765))
			events, err := h.parser.Execute(h.framer.Output())
			require.NoError(t, err)
			require.Len(t, events, 1)
			ev := events[0].(*settingsEvent)
			assert.True(t, ev.hasInitialWindow)
			assert.Equal(t, uint32(98765), ev.initialWindow)
		})
	}
}

func TestFramerMultipleFramesInOneBuffer(t *testing.T) {
	h := newHarness(V3)

	h.framer.Clear()
	require.NoError(t, h.framer.WriteData(1, false, []byte("ab")))
	first := append([]byte(nil), h.framer.Output()...)

	h.framer.Clear()
	require.NoError(t, h.framer.WriteRstStream(1, StatusCancel))
	second := append([]byte(nil), h.framer.Output()...)

	events, err := h.parser.Execute(append(first, second...))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []byte("ab"), events[0].(*dataEvent).data)
	assert.Equal(t, uint32(StatusCancel), events[1].(*rstStreamEvent).status)
}
