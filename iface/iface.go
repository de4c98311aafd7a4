// Package iface implements ergot's interface profiles: the two ways a
// NetStack's Profile forwards a frame across a process boundary instead
// of dispatching it to a local socket.
//
// EdgeProfile is a point-to-point client of exactly one link, addressed
// by whatever network id the other end of the link assigns it. RouterProfile
// is the other end of potentially many such links, assigning each one
// its own network id and routing by destination network id alone -- a
// frame received on one attached interface and addressed to another's
// network id is sent on out through that interface.
//
// Both profiles separate the address-rewrite decision (each profile's
// SendRaw) from the actual byte transfer, which they hand off to a
// Sink -- the interface boundary a transport package (transport/tcp,
// transport/serial) implements over a concrete connection.
package iface

import "github.com/ergotnet/ergot"

// Sink is the write side of an attached link: whatever framing strategy
// and transport a transport package wires up. Send need not be safe to
// call concurrently with itself -- profiles serialize their own calls into
// a Sink under a mutex.
type Sink interface {
	Send(hdr ergot.Header, body []byte) error
}

// Stack is the subset of *netstack.NetStack a receive worker needs to
// hand decoded frames back into the router. Expressed as an interface so
// package iface never imports package netstack, keeping the dependency
// pointing the way ergot-base's crates do: net_stack depends on
// interface_manager, not the reverse.
type Stack interface {
	SendRaw(hdr ergot.Header, body []byte) error
	SendErr(hdr ergot.Header, srcErr error) error
}
