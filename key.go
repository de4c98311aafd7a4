package ergot

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Key is an 8-byte content hash of a schema plus path identifying the
// abstract message type of a request, response, or topic message. Two
// sockets may share a key only when at most one of them is discoverable;
// any-cast dispatch relies on that invariant to stay unambiguous.
type Key [8]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether k is the zero key (never assigned to a real type).
func (k Key) IsZero() bool { return k == Key{} }

// NameHash is an 8-byte hash of a human-readable socket name, used to
// disambiguate identically-keyed sockets at any-cast or broadcast time.
type NameHash [8]byte

func (n NameHash) String() string { return hex.EncodeToString(n[:]) }

// NewKey derives the on-wire identifier for an endpoint or topic from its
// schema descriptor and path, the Go stand-in for postcard_rpc's
// schema-hash-derived Key: schema is a short, stable description of the
// message's shape (its Go type name is normally enough; it only needs to
// change when the wire-incompatible shape does), and path is the
// human-readable "ergot/..." identifier a well-known service is declared
// under. Two endpoints sharing both inputs collide by design -- that's
// how a client resolves the same endpoint on a socket/query reply as the
// one it dialed directly.
func NewKey(schema, path string) Key {
	h := xxhash.New()
	h.WriteString(schema)
	h.Write([]byte{0})
	h.WriteString(path)
	var k Key
	binary.BigEndian.PutUint64(k[:], h.Sum64())
	return k
}

// NewNameHash derives the disambiguating hash for a socket's human name.
func NewNameHash(name string) NameHash {
	var n NameHash
	binary.BigEndian.PutUint64(n[:], xxhash.Sum64String(name))
	return n
}
