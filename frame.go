package ergot

// FrameKind tags what a Header's body represents.
type FrameKind uint8

// Frame kinds. Values above FrameKindReserved0 are reserved for future use
// and must round-trip through the wire codec unchanged even if unknown to
// this build.
const (
	FrameKindEndpointRequest  FrameKind = iota + 1 // endpoint-request
	FrameKindEndpointResponse                     // endpoint-response
	FrameKindTopicMessage                         // topic-message
	FrameKindProtocolError                        // protocol-error
	FrameKindReserved0                            // reserved0
	FrameKindReserved1                             // reserved1
)

func (k FrameKind) String() string {
	switch k {
	case FrameKindEndpointRequest:
		return "endpoint-request"
	case FrameKindEndpointResponse:
		return "endpoint-response"
	case FrameKindTopicMessage:
		return "topic-message"
	case FrameKindProtocolError:
		return "protocol-error"
	default:
		return "reserved"
	}
}
