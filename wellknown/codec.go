package wellknown

import (
	"encoding/binary"
	"encoding/json"
)

// marshalUint32/unmarshalUint32 encode the ping endpoint's request and
// response bodies the same way package wire encodes a PROTOCOL_ERROR
// frame's 2-byte code -- big-endian via encoding/binary -- since a bare uint32 gains
// nothing from a structured encoding.
func marshalUint32(v any) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v.(uint32))
	return buf, nil
}

func unmarshalUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errShortBody
	}
	return binary.BigEndian.Uint32(b), nil
}

// The remaining well-known messages carry optional fields and nested
// slices that encoding/binary has no natural answer for, and no
// postcard-equivalent structured binary codec appears anywhere in the
// pack's dependency graph; encoding/json is the stdlib fallback used
// here, scoped to this package's handful of small control-plane records.
//
// marshalJSON takes any rather than being generic like unmarshalJSON
// since it is handed to NetStack.SendTy as a func(any) ([]byte, error);
// unmarshalJSON stays generic because socket.NewOwned wants its concrete
// func([]byte) (T, error) shape.
func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }

func unmarshalJSON[T any](b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
