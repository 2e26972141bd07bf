package spdy

import (
	"bytes"

	"github.com/pkg/errors"
)

type parserState int

const (
	parserStateHeader parserState = iota
	parserStateControlBody
	parserStateDataBody
)

// Parser implements the parsing half of component 4.B: a byte-
// oriented, resumable state machine fed incrementally by Execute.
// It never blocks and never requires a whole frame to arrive in one
// call — callers (the connection engine) hand it whatever bytes the
// transport produced on one readable event and get back zero or more
// frame events, matching the resumable contract required by §5 (the
// connection executor never blocks on I/O).
type Parser struct {
	version      ProtocolVersion
	decompressor *headerDecompressor

	state parserState

	headerBuf [8]byte
	headerLen int

	isControl bool
	frameType uint16
	flags     byte
	length    int

	body bytes.Buffer

	dataStreamID  uint32
	dataFin       bool
	dataRemaining int
}

func newParser(version ProtocolVersion, decompressor *headerDecompressor) *Parser {
	return &Parser{version: version, decompressor: decompressor}
}

// Execute feeds data into the parser and returns every frame event
// that became complete as a result, plus one partial dataEvent for
// each piece of a DATA body that arrived without finishing the frame
// (DATA bodies are never buffered). A returned error is always fatal
// at the connection level (ProtocolError, spec §4.B).
func (p *Parser) Execute(data []byte) ([]interface{}, error) {
	var events []interface{}
	for len(data) > 0 {
		switch p.state {
		case parserStateHeader:
			n := copy(p.headerBuf[p.headerLen:], data)
			p.headerLen += n
			data = data[n:]
			if p.headerLen < 8 {
				continue
			}
			if err := p.parseHeader(); err != nil {
				return events, err
			}
			p.headerLen = 0
			ev, done, err := p.enterBody()
			if err != nil {
				return events, err
			}
			if done {
				if ev != nil {
					events = append(events, ev)
				}
				p.state = parserStateHeader
			}

		case parserStateControlBody:
			need := p.length - p.body.Len()
			take := need
			if take > len(data) {
				take = len(data)
			}
			p.body.Write(data[:take])
			data = data[take:]
			if p.body.Len() == p.length {
				ev, err := p.decodeControlFrame()
				if err != nil {
					return events, err
				}
				if ev != nil {
					events = append(events, ev)
				}
				p.state = parserStateHeader
			}

		case parserStateDataBody:
			take := p.dataRemaining
			if take > len(data) {
				take = len(data)
			}
			payload := append([]byte(nil), data[:take]...)
			data = data[take:]
			p.dataRemaining -= take
			if p.dataRemaining == 0 {
				events = append(events, &dataEvent{streamID: p.dataStreamID, data: payload, fin: p.dataFin})
				p.state = parserStateHeader
			} else if take > 0 {
				events = append(events, &dataEvent{streamID: p.dataStreamID, data: payload, fin: false})
			}
		}
	}
	return events, nil
}

func (p *Parser) parseHeader() error {
	b := p.headerBuf[:]
	p.isControl = b[0]&0x80 != 0
	if p.isControl {
		p.frameType = uint16(b[2])<<8 | uint16(b[3])
		p.flags = b[4]
		p.length = int(b[5])<<16 | int(b[6])<<8 | int(b[7])
	} else {
		p.dataStreamID = readStreamID(b[0:4])
		p.flags = b[4]
		p.dataFin = p.flags&flagFin != 0
		p.length = int(b[5])<<16 | int(b[6])<<8 | int(b[7])
	}
	if p.length > maxFrameSize {
		return newErrorf(ProtocolError, "frame too large: %d bytes", p.length)
	}
	return nil
}

// enterBody handles the Header->{ControlBody,DataBody} transition,
// including the zero-length case, which must resolve immediately
// without waiting for more bytes (an empty DATA(fin=1) frame, or a
// zero-length control frame body, would otherwise stall until the
// next Execute call).
func (p *Parser) enterBody() (event interface{}, done bool, err error) {
	if p.isControl {
		p.body.Reset()
		if p.length == 0 {
			ev, err := p.decodeControlFrame()
			return ev, true, err
		}
		p.state = parserStateControlBody
		return nil, false, nil
	}

	p.dataRemaining = p.length
	if p.length == 0 {
		return &dataEvent{streamID: p.dataStreamID, fin: p.dataFin}, true, nil
	}
	p.state = parserStateDataBody
	return nil, false, nil
}

func (p *Parser) decodeControlFrame() (interface{}, error) {
	body := p.body.Bytes()
	switch p.frameType {
	case frameTypeSynReply:
		if len(body) < 6 {
			return nil, newError(ProtocolError, errors.New("SYN_REPLY too short"))
		}
		streamID := readStreamID(body[0:4])
		header, err := p.decompressor.Decompress(body[6:])
		if err != nil {
			return nil, err
		}
		return &synReplyEvent{streamID: streamID, header: header, fin: p.flags&flagFin != 0}, nil

	case frameTypeRstStream:
		if len(body) < 8 {
			return nil, newError(ProtocolError, errors.New("RST_STREAM too short"))
		}
		return &rstStreamEvent{streamID: readStreamID(body[0:4]), status: readUint32(body[4:8])}, nil

	case frameTypeWindowUpdate:
		if len(body) < 8 {
			return nil, newError(ProtocolError, errors.New("WINDOW_UPDATE too short"))
		}
		return &windowUpdateEvent{streamID: readStreamID(body[0:4]), delta: readUint32(body[4:8]) & 0x7fffffff}, nil

	case frameTypeSettings:
		return p.decodeSettings(body)

	default:
		// SYN_STREAM, HEADERS, PING, GOAWAY, CREDENTIAL and anything
		// unrecognised: ignored, already consumed by length (spec §4.E).
		return nil, nil
	}
}

func (p *Parser) decodeSettings(body []byte) (interface{}, error) {
	if len(body) < 4 {
		return nil, newError(ProtocolError, errors.New("SETTINGS too short"))
	}
	num := int(readUint32(body[0:4]))
	entries := body[4:]
	if len(entries) != num*8 {
		return nil, newError(ProtocolError, errors.New("SETTINGS length mismatch"))
	}
	ev := &settingsEvent{}
	for i := 0; i < num; i++ {
		e := entries[i*8:]
		var id uint32
		if p.version == V2 {
			id = uint32(e[0]) | uint32(e[1])<<8 | uint32(e[2])<<16
		} else {
			id = uint32(e[0])<<16 | uint32(e[1])<<8 | uint32(e[2])
		}
		if id == settingInitialWindowSize {
			ev.hasInitialWindow = true
			ev.initialWindow = readUint32(e[4:8])
		}
	}
	if !ev.hasInitialWindow {
		return nil, nil
	}
	return ev, nil
}
