package wellknown

import "github.com/ergotnet/ergot"

// Keys, one per well-known endpoint/topic. Computed once at package init
// via ergot.NewKey -- the Go stand-in for the schema-hash a Rust build
// derives at compile time through postcard_rpc's Endpoint/Topic traits.
var (
	KeyPing                    = ergot.NewKey("ping-echo-u32", PathPing)
	KeyFmt                     = ergot.NewKey("fmt-log-record", PathFmt)
	KeyDeviceInfo              = ergot.NewKey("device-info", PathDeviceInfo)
	KeyDeviceInfoInterrogation = ergot.NewKey("device-info-interrogation-address", PathDeviceInfoInterrogation)
	KeySocketQuery             = ergot.NewKey("socket-query", PathSocketQuery)
	KeySocketQueryResponse     = ergot.NewKey("socket-query-response", PathSocketQueryResponse)
	KeySeedRouterRequest       = ergot.NewKey("seed-router-request", PathSeedRouterRequest)
	KeySeedRouterRefresh       = ergot.NewKey("seed-router-refresh", PathSeedRouterRefresh)
)
