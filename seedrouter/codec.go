package seedrouter

import (
	"encoding/json"
	"errors"
)

var (
	errTokenMismatch = errors.New("ergot/seedrouter: token mismatch")
	errUnknownNetID  = errors.New("ergot/seedrouter: no record of that network id")
)

// marshalJSON takes any rather than being generic, since it is handed to
// NetStack.SendTy as a func(any) ([]byte, error) -- see
// ergot/wellknown's codec.go for why a generic function cannot fill
// that shape.
func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }

func unmarshalJSON[T any](b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
