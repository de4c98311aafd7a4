package framing

import "errors"

var (
	errCobsZeroByte = errors.New("ergot/framing: unexpected zero byte in cobs payload")
	errCobsOverrun  = errors.New("ergot/framing: cobs code overruns buffer")
)

// MaxEncodedLen returns an upper bound on the COBS encoding of n bytes,
// including the trailing zero frame delimiter.
func MaxEncodedLen(n int) int {
	return n + n/254 + 2
}

// Encode writes the COBS encoding of data to dst, followed by a single
// zero delimiter byte, and returns the number of bytes written. dst must
// have length at least MaxEncodedLen(len(data)).
func Encode(dst []byte, data []byte) int {
	codeIdx := 0
	writeIdx := 1
	code := byte(1)
	for _, b := range data {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = writeIdx
			writeIdx++
			code = 1
			continue
		}
		dst[writeIdx] = b
		writeIdx++
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			codeIdx = writeIdx
			writeIdx++
			code = 1
		}
	}
	dst[codeIdx] = code
	dst[writeIdx] = 0
	writeIdx++
	return writeIdx
}

// cobsDecodeInPlace decodes a COBS-encoded span in place, overwriting enc
// with the decoded bytes and returning the decoded length. Decoding stops
// at the first zero byte (the frame delimiter), if enc holds one; a span
// with no code byte before that point is an error. It never reads or
// writes past enc, since a COBS decoder's write cursor never overtakes
// its read cursor.
func cobsDecodeInPlace(enc []byte) (int, error) {
	n := len(enc)
	for i, b := range enc {
		if b == 0 {
			n = i
			break
		}
	}
	if n == 0 {
		return 0, errCobsZeroByte
	}
	readIdx, writeIdx := 0, 0
	for readIdx < n {
		code := int(enc[readIdx])
		if code == 0 {
			return 0, errCobsZeroByte
		}
		readIdx++
		end := readIdx + code - 1
		if end > n {
			return 0, errCobsOverrun
		}
		for readIdx < end {
			enc[writeIdx] = enc[readIdx]
			writeIdx++
			readIdx++
		}
		if code != 0xFF && readIdx < n {
			enc[writeIdx] = 0
			writeIdx++
		}
	}
	return writeIdx, nil
}
