// Package framing implements ergot's two wire framing strategies: a
// length-agnostic PacketSink for transports that already preserve
// message boundaries (a datagram socket, a length-prefixed stream), and
// a COBS byte-stuffing Accumulator for transports that only offer a raw
// byte stream (a serial port).
package framing

import "errors"

var errOverflow = errors.New("ergot/framing: accumulator buffer overflow")

// FeedKind identifies which branch of FeedResult a Feed call produced. It
// is the Go rendition of cobs-acc's FeedResult enum -- ported field for
// field, rather than collapsed into a single error return, since each
// branch carries different remaining-input semantics a caller must
// handle differently.
type FeedKind uint8

const (
	// FeedConsumed means the input was entirely absorbed into the
	// accumulator's buffer; no message boundary was reached yet.
	FeedConsumed FeedKind = iota
	// FeedOverFull means the accumulator's buffer filled before a frame
	// delimiter was seen. The message in progress is lost; Remaining
	// holds whatever of the input was not yet consumed.
	FeedOverFull
	// FeedDecodeError means a frame delimiter was reached but the bytes
	// preceding it did not decode as valid COBS.
	FeedDecodeError
	// FeedSuccess means a complete frame decoded successfully, entirely
	// out of the accumulator's own buffer (the message spanned more than
	// one Feed call). Data aliases the accumulator's internal buffer and
	// is only valid until the next Feed call.
	FeedSuccess
	// FeedSuccessInput means a complete frame decoded successfully
	// without ever touching the accumulator's buffer, because it arrived
	// whole within a single Feed call. Data aliases the input slice
	// passed to Feed.
	FeedSuccessInput
)

// FeedResult is the outcome of one Accumulator.Feed call.
type FeedResult struct {
	Kind FeedKind
	// Data holds the decoded frame body when Kind is FeedSuccess or
	// FeedSuccessInput. It is nil otherwise.
	Data []byte
	// Remaining holds whatever of the fed input followed the frame
	// delimiter that produced this result, to be fed back into the next
	// Feed call (or this one, in a loop, until Remaining is empty).
	Remaining []byte
}

// Accumulator reassembles COBS-framed messages out of an arbitrarily
// chunked byte stream. Ported from original_source's cobs-acc crate: the
// same idx/inOverflow state machine, generalized from a fixed boxed slice
// to any caller-sized buffer.
type Accumulator struct {
	buf        []byte
	idx        int
	inOverflow bool
}

// NewAccumulator constructs an Accumulator whose buffer can hold a
// message up to bufSize encoded bytes, including its frame delimiter.
func NewAccumulator(bufSize int) *Accumulator {
	return &Accumulator{buf: make([]byte, bufSize)}
}

// Feed appends input to the accumulator and attempts to decode a
// complete frame. Callers should loop, re-feeding Remaining, until
// Remaining is empty -- a single Feed call only ever resolves the first
// frame boundary found in input.
func (a *Accumulator) Feed(input []byte) FeedResult {
	if len(input) == 0 {
		return FeedResult{Kind: FeedConsumed}
	}

	zeroPos := -1
	for i, b := range input {
		if b == 0 {
			zeroPos = i
			break
		}
	}

	if zeroPos < 0 {
		if a.inOverflow {
			return FeedResult{Kind: FeedOverFull}
		}
		if err := a.push(input); err != nil {
			a.inOverflow = true
			return FeedResult{Kind: FeedOverFull}
		}
		return FeedResult{Kind: FeedConsumed}
	}

	take := input[:zeroPos+1]
	release := input[zeroPos+1:]

	if a.inOverflow {
		a.inOverflow = false
		return FeedResult{Kind: FeedOverFull, Remaining: release}
	}

	if a.idx == 0 {
		n, err := cobsDecodeInPlace(take)
		if err != nil {
			return FeedResult{Kind: FeedDecodeError, Remaining: release}
		}
		return FeedResult{Kind: FeedSuccessInput, Data: take[:n], Remaining: release}
	}

	used, err := a.pushReset(take)
	if err != nil {
		return FeedResult{Kind: FeedOverFull, Remaining: release}
	}
	n, err := cobsDecodeInPlace(used)
	if err != nil {
		return FeedResult{Kind: FeedDecodeError, Remaining: release}
	}
	return FeedResult{Kind: FeedSuccess, Data: used[:n], Remaining: release}
}

func (a *Accumulator) push(data []byte) error {
	newEnd := a.idx + len(data)
	if newEnd > len(a.buf) {
		a.idx = 0
		return errOverflow
	}
	copy(a.buf[a.idx:newEnd], data)
	a.idx = newEnd
	return nil
}

// pushReset appends data to the buffer and always resets idx to 0
// afterward -- whether or not it fit -- since reaching this call means a
// frame delimiter was just seen, clearing whatever partial state existed.
func (a *Accumulator) pushReset(data []byte) ([]byte, error) {
	oldIdx := a.idx
	newEnd := oldIdx + len(data)
	a.idx = 0
	if newEnd > len(a.buf) {
		return nil, errOverflow
	}
	copy(a.buf[oldIdx:newEnd], data)
	return a.buf[:newEnd], nil
}
