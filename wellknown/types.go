package wellknown

import "github.com/google/uuid"

// DeviceInfo announces what a node is, the Go rendition of well_known.rs's
// OwnedDeviceInfo (the "std" variant that owns its strings, since a hosted
// Go node has no reason to borrow from a fixed buffer the way the no_std
// DeviceInfo<'a> does).
type DeviceInfo struct {
	Name        string
	Description string
	UniqueID    uint64
}

// LogRecord is one formatted log line carried by the fmt topic, the
// owned-string rendition of ErgotFmtRxOwned.
type LogRecord struct {
	Level   string
	Message string
}

// SocketQuery asks a node to list its attached sockets, optionally
// filtered to those matching Key, and optionally restricted to broadcast
// listeners only.
type SocketQuery struct {
	Key       *[8]byte
	Broadcast bool
}

// SocketQueryResult describes one socket a query matched.
type SocketQueryResult struct {
	Port      uint8
	Kind      uint8
	Key       [8]byte
	Name      string
	Broadcast bool
}

// SocketQueryResponse is the reply to a SocketQuery.
type SocketQueryResponse struct {
	Sockets []SocketQueryResult
}

// SeedRouterRequest is sent by a target with no assigned network id.
type SeedRouterRequest struct{}

// SeedRouterAssignment is the seed router's reply to a request or a
// successful refresh: the network id assigned to the requester, and an
// opaque token it must present on every subsequent refresh.
type SeedRouterAssignment struct {
	NetID uint16
	Token uuid.UUID
}

// SeedRouterRefresh rebinds a previously assigned net id under the same
// token. A mismatched token fails closed -- the seed router never
// silently reassigns a net id to a party that cannot prove it was the one
// originally assigned it.
type SeedRouterRefresh struct {
	NetID uint16
	Token uuid.UUID
}
