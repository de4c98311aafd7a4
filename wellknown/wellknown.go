// Package wellknown implements the handful of endpoints and topics every
// ergot stack carries regardless of application: a liveness ping, a
// formatted-log topic, device self-announcement, and socket discovery.
// It is the Go rendition of ergot's own well_known.rs, minus the
// postcard_rpc `endpoint!`/`topic!` macros -- their role (deriving a
// stable on-wire Key from a path and schema, and generating
// request/response socket pairs) is played here by ergot.NewKey plus the
// small per-service types in this package.
//
// The seed-router net-id assignment protocol's wire types and paths live
// here too, since they are still well-known identifiers every stack
// agrees on, but its client and server logic lives in
// ergot/seedrouter -- that protocol has no well_known.rs counterpart at
// all, so it gets its own package rather than being folded into this
// one's ping/device-info/socket-query/fmt-log grouping.
package wellknown

// Well-known paths. The seed-router paths have no well_known.rs
// counterpart (see the package doc); the others follow well_known.rs's
// endpoint!/topic! declarations.
const (
	PathPing                    = "ergot/.well-known/ping"
	PathFmt                     = "ergot/.well-known/fmt"
	PathDeviceInfo              = "ergot/.well-known/device-info"
	PathDeviceInfoInterrogation = "ergot/.well-known/device-info/interrogation"
	PathSocketQuery             = "ergot/.well-known/socket/query"
	PathSocketQueryResponse     = "ergot/.well-known/socket/query/response"
	PathSeedRouterRequest       = "ergot/.well-known/seed-router/request"
	PathSeedRouterRefresh       = "ergot/.well-known/seed-router/refresh"
)

// defaultTTL bounds a well-known request to a small number of hops --
// these are control-plane messages exchanged between directly or
// near-directly connected nodes, never expected to traverse a long chain
// of interfaces.
const defaultTTL = 8
