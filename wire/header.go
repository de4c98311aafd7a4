// Package wire implements ergot's bit-exact on-wire header encoding: a
// compact, varint-backed codec for the Header every framing sink writes
// ahead of a body, plus the 2-byte body of a PROTOCOL_ERROR frame.
//
// The encoding style -- small accessor-free structs encoded/decoded with
// encoding/binary and manual flag bits -- follows the header codecs in
// lneto's ethernet/ipv4/tcp frame packages, adapted here to operate on a
// structured ergot.Header rather than an in-place byte-slice view, since
// ergot's dispatch and profile code need to inspect and rewrite addresses
// as Go values, not just forward opaque bytes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ergotnet/ergot"
)

// Flag bits in the header's leading flags byte.
const (
	flagHasAnyAll uint8 = 1 << iota
	flagHasNash
)

var (
	// ErrShortBuffer is returned by Decode when buf does not contain a
	// complete header.
	ErrShortBuffer = errors.New("ergot/wire: buffer too short for header")
	// ErrMissingSeqNo is returned by Encode when hdr has not yet been
	// stamped with a sequence number -- the wire format always carries one.
	ErrMissingSeqNo = errors.New("ergot/wire: header has no sequence number")
)

// Encode writes hdr's wire encoding to the front of buf, returning the
// number of bytes written. buf must have length at least
// ergot.MaxHeaderEncodedSize.
func Encode(buf []byte, hdr ergot.Header) (int, error) {
	if hdr.SeqNo == nil {
		return 0, ErrMissingSeqNo
	}
	if len(buf) < ergot.MaxHeaderEncodedSize {
		return 0, fmt.Errorf("ergot/wire: buffer shorter than MaxHeaderEncodedSize (%d)", ergot.MaxHeaderEncodedSize)
	}
	var flags uint8
	if hdr.AnyAll != nil {
		flags |= flagHasAnyAll
		if hdr.AnyAll.Nash != nil {
			flags |= flagHasNash
		}
	}
	n := 1
	buf[0] = flags
	n += putAddress(buf[n:], hdr.Src)
	n += putAddress(buf[n:], hdr.Dst)
	n += binary.PutUvarint(buf[n:], uint64(*hdr.SeqNo))
	buf[n] = uint8(hdr.Kind)
	n++
	buf[n] = hdr.TTL
	n++
	if hdr.AnyAll != nil {
		n += copy(buf[n:], hdr.AnyAll.Key[:])
		if hdr.AnyAll.Nash != nil {
			n += copy(buf[n:], hdr.AnyAll.Nash[:])
		}
	}
	return n, nil
}

// Decode parses a Header from the front of buf, returning the header and
// the number of bytes consumed.
func Decode(buf []byte) (ergot.Header, int, error) {
	var hdr ergot.Header
	if len(buf) < 1 {
		return hdr, 0, ErrShortBuffer
	}
	flags := buf[0]
	n := 1

	src, used, err := getAddress(buf[n:])
	if err != nil {
		return hdr, 0, err
	}
	n += used

	dst, used, err := getAddress(buf[n:])
	if err != nil {
		return hdr, 0, err
	}
	n += used

	seq, used := binary.Uvarint(buf[n:])
	if used <= 0 {
		return hdr, 0, ErrShortBuffer
	}
	n += used
	if n+2 > len(buf) {
		return hdr, 0, ErrShortBuffer
	}
	kind := ergot.FrameKind(buf[n])
	n++
	ttl := buf[n]
	n++

	hdr.Src = src
	hdr.Dst = dst
	seq16 := uint16(seq)
	hdr.SeqNo = &seq16
	hdr.Kind = kind
	hdr.TTL = ttl

	if flags&flagHasAnyAll != 0 {
		if n+8 > len(buf) {
			return hdr, 0, ErrShortBuffer
		}
		var apdx ergot.AnyAllAppendix
		copy(apdx.Key[:], buf[n:n+8])
		n += 8
		if flags&flagHasNash != 0 {
			if n+8 > len(buf) {
				return hdr, 0, ErrShortBuffer
			}
			var nash ergot.NameHash
			copy(nash[:], buf[n:n+8])
			apdx.Nash = &nash
			n += 8
		}
		hdr.AnyAll = &apdx
	}
	return hdr, n, nil
}

func putAddress(buf []byte, a ergot.Address) int {
	n := binary.PutUvarint(buf, uint64(a.NetworkID))
	buf[n] = a.NodeID
	buf[n+1] = a.PortID
	return n + 2
}

func getAddress(buf []byte) (ergot.Address, int, error) {
	netID, n := binary.Uvarint(buf)
	if n <= 0 {
		return ergot.Address{}, 0, ErrShortBuffer
	}
	if n+2 > len(buf) {
		return ergot.Address{}, 0, ErrShortBuffer
	}
	a := ergot.Address{
		NetworkID: uint16(netID),
		NodeID:    buf[n],
		PortID:    buf[n+1],
	}
	return a, n + 2, nil
}

// ProtocolErrorCode is the on-wire 16-bit payload of a frame whose Kind is
// ergot.FrameKindProtocolError. It replaces the serialized body entirely.
type ProtocolErrorCode uint16

// Protocol error codes. Each maps 1:1 onto a routing/delivery/interface
// error kind from package ergot, so a PROTOCOL_ERROR frame can carry the
// failure back to the originating socket via recv_err.
const (
	ProtoErrNoRoute ProtocolErrorCode = iota + 1
	ProtoErrAnyPortMissingKey
	ProtoErrAllPortMissingKey
	ProtoErrAnyPortNotUnique
	ProtoErrWrongPortKind
	ProtoErrNoSpace
	ProtoErrDeserFailed
	ProtoErrTypeMismatch
	ProtoErrNoRouteToDest
	ProtoErrInterfaceFull
	ProtoErrTTLExpired
)

var protoErrNames = map[ProtocolErrorCode]string{
	ProtoErrNoRoute:           "no-route",
	ProtoErrAnyPortMissingKey: "any-port-missing-key",
	ProtoErrAllPortMissingKey: "all-port-missing-key",
	ProtoErrAnyPortNotUnique:  "any-port-not-unique",
	ProtoErrWrongPortKind:     "wrong-port-kind",
	ProtoErrNoSpace:           "no-space",
	ProtoErrDeserFailed:       "deser-failed",
	ProtoErrTypeMismatch:      "type-mismatch",
	ProtoErrNoRouteToDest:     "no-route-to-dest",
	ProtoErrInterfaceFull:     "interface-full",
	ProtoErrTTLExpired:        "ttl-expired",
}

func (c ProtocolErrorCode) String() string {
	if s, ok := protoErrNames[c]; ok {
		return s
	}
	return fmt.Sprintf("protocol-error(%d)", uint16(c))
}

// EncodeProtocolError writes code as the 2-byte body of a PROTOCOL_ERROR
// frame.
func EncodeProtocolError(buf []byte, code ProtocolErrorCode) (int, error) {
	if len(buf) < 2 {
		return 0, ErrShortBuffer
	}
	binary.BigEndian.PutUint16(buf, uint16(code))
	return 2, nil
}

// DecodeProtocolError reads a PROTOCOL_ERROR frame's 2-byte body.
func DecodeProtocolError(buf []byte) (ProtocolErrorCode, error) {
	if len(buf) < 2 {
		return 0, ErrShortBuffer
	}
	return ProtocolErrorCode(binary.BigEndian.Uint16(buf)), nil
}

// ErrorToProtocolCode maps a routing/delivery/interface sentinel error from
// package ergot to its on-wire protocol error code. Unrecognized errors
// map to the zero code, which callers should treat as "unspecified".
func ErrorToProtocolCode(err error) ProtocolErrorCode {
	switch {
	case errors.Is(err, ergot.ErrNoRoute):
		return ProtoErrNoRoute
	case errors.Is(err, ergot.ErrAnyPortMissingKey):
		return ProtoErrAnyPortMissingKey
	case errors.Is(err, ergot.ErrAllPortMissingKey):
		return ProtoErrAllPortMissingKey
	case errors.Is(err, ergot.ErrAnyPortNotUnique):
		return ProtoErrAnyPortNotUnique
	case errors.Is(err, ergot.ErrWrongPortKind):
		return ProtoErrWrongPortKind
	case errors.Is(err, ergot.ErrNoSpace):
		return ProtoErrNoSpace
	case errors.Is(err, ergot.ErrDeserFailed):
		return ProtoErrDeserFailed
	case errors.Is(err, ergot.ErrTypeMismatch):
		return ProtoErrTypeMismatch
	case errors.Is(err, ergot.ErrNoRouteToDest):
		return ProtoErrNoRouteToDest
	case errors.Is(err, ergot.ErrInterfaceFull):
		return ProtoErrInterfaceFull
	case errors.Is(err, ergot.ErrTTLExpired):
		return ProtoErrTTLExpired
	default:
		return 0
	}
}

// ProtocolCodeToError is ErrorToProtocolCode's inverse, used by an
// interface's receive worker to reconstruct the sentinel error carried by
// an incoming PROTOCOL_ERROR frame so it can be redelivered to the local
// socket that originated the failed send.
func ProtocolCodeToError(code ProtocolErrorCode) error {
	switch code {
	case ProtoErrNoRoute:
		return ergot.ErrNoRoute
	case ProtoErrAnyPortMissingKey:
		return ergot.ErrAnyPortMissingKey
	case ProtoErrAllPortMissingKey:
		return ergot.ErrAllPortMissingKey
	case ProtoErrAnyPortNotUnique:
		return ergot.ErrAnyPortNotUnique
	case ProtoErrWrongPortKind:
		return ergot.ErrWrongPortKind
	case ProtoErrNoSpace:
		return ergot.ErrNoSpace
	case ProtoErrDeserFailed:
		return ergot.ErrDeserFailed
	case ProtoErrTypeMismatch:
		return ergot.ErrTypeMismatch
	case ProtoErrNoRouteToDest:
		return ergot.ErrNoRouteToDest
	case ProtoErrInterfaceFull:
		return ergot.ErrInterfaceFull
	case ProtoErrTTLExpired:
		return ergot.ErrTTLExpired
	default:
		return fmt.Errorf("ergot/wire: %v", code)
	}
}
