package iface

import (
	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/wire"
)

// NetIDProvider supplies the network id a Receiver should stamp onto an
// incoming frame's source address when it arrives unset. EdgeProfile
// satisfies it; the transport packages wrap the fixed net id a
// RouterProfile assigned to a link in a small type of their own.
type NetIDProvider interface {
	NetID() (uint16, bool)
}

// netIDFunc adapts a closure to NetIDProvider.
type netIDFunc func() (uint16, bool)

func (f netIDFunc) NetID() (uint16, bool) { return f() }

// Receiver decodes ergot frames out of reassembled wire bytes and routes
// them into a Stack, following StdTcpRecvHdl::run_inner's per-frame
// handling -- minus the read loop itself, which a transport package owns,
// since the two byte-stream reassembly strategies (packet boundaries vs.
// COBS) differ there but converge once a single frame's bytes are known.
type Receiver struct {
	stack Stack
	netID NetIDProvider
}

// NewReceiver constructs a Receiver delivering into stack, stamping an
// unset source network id using netID.
func NewReceiver(stack Stack, netID NetIDProvider) *Receiver {
	return &Receiver{stack: stack, netID: netID}
}

// Deliver decodes one complete frame's wire bytes -- a header followed by
// its body -- and routes it into the stack. It is called once per frame
// that a framing.Accumulator has reassembled out of one or more
// byte-stream reads (transport/tcp and transport/serial alike).
func (r *Receiver) Deliver(frame []byte) error {
	hdr, n, err := wire.Decode(frame)
	if err != nil {
		return err
	}
	body := frame[n:]

	if hdr.Src.NetworkID == 0 {
		// A source net id of zero means the frame originated locally on
		// the far end of the link, which this end must not mistake for
		// its own local traffic.
		id, ok := r.netID.NetID()
		if !ok {
			return ergot.ErrNoRouteToDest
		}
		hdr.Src.NetworkID = id
	}

	if hdr.Kind == ergot.FrameKindProtocolError {
		code, err := wire.DecodeProtocolError(body)
		if err != nil {
			return err
		}
		return r.stack.SendErr(hdr, wire.ProtocolCodeToError(code))
	}
	return r.stack.SendRaw(hdr, body)
}
