// Package ring implements a byte ring buffer used as the storage substrate
// for borrow sockets.
package ring

import (
	"errors"
	"io"
)

var (
	errRingBufferFull = errors.New("ergot/ring: buffer full")
	errRingNoData     = errors.New("ergot/ring: empty write")
)

// Ring implements basic ring buffer functionality over a fixed backing array.
// The zero value is an empty ring of zero capacity; call Reset to size it.
type Ring struct {
	// Buf stores data written with Write and read back in order with Read.
	Buf []byte
	// Off is the start of readable data, indexing into Buf.
	Off int
	// End is the end of readable data, non-inclusive. End==0 means empty.
	End int
}

// Reset flushes all buffered data, optionally resizing the backing array.
// A nil buf keeps the existing backing array.
func (r *Ring) Reset(buf []byte) {
	if buf != nil {
		r.Buf = buf
	}
	r.Off = 0
	r.End = 0
}

// Size returns the capacity of the ring buffer.
func (r *Ring) Size() int { return len(r.Buf) }

// Buffered returns the amount of bytes ready to read.
func (r *Ring) Buffered() int { return r.Size() - r.Free() }

// Free returns the amount of bytes that can still be written.
func (r *Ring) Free() int {
	if r.End == 0 || r.Off == 0 {
		return len(r.Buf) - r.End
	}
	if r.Off < r.End {
		return r.Off + (len(r.Buf) - r.End)
	}
	return r.Off - r.End
}

func (r *Ring) isFull() bool {
	return r.End != 0 && (r.End == r.Off || (r.End == len(r.Buf) && r.Off == 0))
}

func (r *Ring) midFree() int {
	if r.End >= r.Off || r.End == 0 {
		return 0
	}
	return r.Off - r.End
}

// Write appends data to the ring buffer, returning errRingBufferFull if it
// does not fit in one call.
func (r *Ring) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errRingNoData
	}
	if r.isFull() || len(b) > r.Free() {
		return 0, errRingBufferFull
	}
	if mf := r.midFree(); mf > 0 {
		n := copy(r.Buf[r.End:r.Off], b)
		r.End += n
		return n, nil
	}
	if r.End == 0 {
		r.End = r.Off
	}
	n := copy(r.Buf[r.End:], b)
	r.End += n
	if n < len(b) {
		n2 := copy(r.Buf, b[n:])
		r.End = n2
		n += n2
	}
	return n, nil
}

// Read reads up to len(b) bytes, advancing the read pointer.
func (r *Ring) Read(b []byte) (int, error) {
	n, err := r.read(b)
	if err != nil {
		return n, err
	}
	r.onReadEnd(n)
	return n, nil
}

// ReadPeek reads up to len(b) bytes without advancing the read pointer,
// so a caller can inspect a length prefix before deciding how much to
// consume with ReadDiscard.
func (r *Ring) ReadPeek(b []byte) (int, error) {
	return r.read(b)
}

// ReadDiscard advances the read pointer by n bytes without copying data.
func (r *Ring) ReadDiscard(n int) error {
	if n <= 0 {
		return errors.New("ergot/ring: invalid discard amount")
	}
	buffered := r.Buffered()
	switch {
	case n > buffered:
		return errors.New("ergot/ring: discard exceeds buffered data")
	case n == buffered:
		r.Off, r.End = 0, 0
	default:
		r.Off = r.addOff(r.Off, n)
	}
	return nil
}

func (r *Ring) read(b []byte) (int, error) {
	if r.Buffered() == 0 {
		return 0, io.EOF
	}
	if r.End > r.Off {
		return copy(b, r.Buf[r.Off:r.End]), nil
	}
	n := copy(b, r.Buf[r.Off:])
	if n < len(b) {
		n += copy(b[n:], r.Buf[:r.End])
	}
	return n, nil
}

func (r *Ring) onReadEnd(totalRead int) {
	newOff := r.addOff(r.Off, totalRead)
	if newOff == r.End {
		r.Off, r.End = 0, 0
	} else if newOff == len(r.Buf) {
		r.Off = 0
	} else {
		r.Off = newOff
	}
}

func (r *Ring) addOff(a, b int) int {
	result := a + b
	if result > len(r.Buf) {
		result -= len(r.Buf)
	}
	return result
}
