package framing

import (
	"errors"
	"io"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/wire"
)

// ErrMTUExceeded is returned by a sink's Send when body is larger than
// the MTU the sink was constructed with.
var ErrMTUExceeded = errors.New("ergot/framing: body exceeds interface mtu")

// PacketSink writes ergot frames to a packet-oriented transport -- a
// datagram socket, or any io.Writer whose Write calls already correspond
// to message boundaries -- as header bytes immediately followed by body
// bytes. It adds no length prefix or terminator of its own, since the
// transport already owns framing.
type PacketSink struct {
	w   io.Writer
	mtu int
	buf []byte
}

// NewPacketSink constructs a PacketSink whose scratch buffer holds a full
// header plus a body up to mtu bytes.
func NewPacketSink(w io.Writer, mtu int) *PacketSink {
	return &PacketSink{w: w, mtu: mtu, buf: make([]byte, ergot.MaxHeaderEncodedSize+mtu)}
}

// Send encodes hdr and body and writes them in a single Write call.
func (s *PacketSink) Send(hdr ergot.Header, body []byte) error {
	if len(body) > s.mtu {
		return ErrMTUExceeded
	}
	n, err := wire.Encode(s.buf, hdr)
	if err != nil {
		return err
	}
	n += copy(s.buf[n:], body)
	_, err = s.w.Write(s.buf[:n])
	return err
}

// CobsSink writes ergot frames to a byte-stream transport -- a serial
// port, with no inherent message boundaries -- by COBS-encoding the
// header+body as a single byte-stuffed, zero-delimited run. The receiving
// end recovers frames with an Accumulator.
type CobsSink struct {
	w       io.Writer
	mtu     int
	plain   []byte
	encoded []byte
}

// NewCobsSink constructs a CobsSink for frames whose body is at most mtu
// bytes.
func NewCobsSink(w io.Writer, mtu int) *CobsSink {
	plainCap := ergot.MaxHeaderEncodedSize + mtu
	return &CobsSink{
		w:       w,
		mtu:     mtu,
		plain:   make([]byte, plainCap),
		encoded: make([]byte, MaxEncodedLen(plainCap)),
	}
}

// Send encodes hdr and body, COBS-stuffs the result, and writes it
// followed by its zero delimiter in a single Write call.
func (s *CobsSink) Send(hdr ergot.Header, body []byte) error {
	if len(body) > s.mtu {
		return ErrMTUExceeded
	}
	n, err := wire.Encode(s.plain, hdr)
	if err != nil {
		return err
	}
	n += copy(s.plain[n:], body)
	encLen := Encode(s.encoded, s.plain[:n])
	_, err = s.w.Write(s.encoded[:encLen])
	return err
}
