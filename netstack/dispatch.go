package netstack

import (
	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/socket"
)

// SendTy dispatches a decoded value, trying the interface profile first
// (unless src and dst are both unaddressed, the "local bypass" shortcut)
// and falling back to local socket dispatch. marshal is used only if the
// frame needs to cross an interface; it may be nil for sockets that are
// never reachable remotely.
//
// Broadcast destinations (ergot.PortBroadcast) are delivered to every
// matching local broadcast socket AND offered to the interface profile,
// since a broadcast is not an either/or choice the way unicast is.
func (n *NetStack) SendTy(hdr ergot.Header, val any, marshal func(any) ([]byte, error)) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if hdr.Dst.IsBroadcastPort() {
		errLocal := n.sendAllLocal(hdr, val)
		errRemote := n.forwardTy(hdr, val, marshal)
		if errLocal == nil || errRemote == nil {
			n.reportResult("ok")
			return nil
		}
		n.reportResult("no-route")
		return ergot.ErrNoRoute
	}

	ifaceErr := n.forwardTy(hdr, val, marshal)
	if ifaceErr == nil {
		n.reportResult("ok")
		return nil
	}
	if ifaceErr != ergot.ErrDestinationLocal {
		n.reportResult("interface-error")
		return ifaceErr
	}

	var err error
	if hdr.Dst.IsAnyPort() {
		err = n.sendAnyLocal(hdr, val)
	} else {
		err = n.sendOneLocal(hdr, val)
	}
	if err != nil {
		n.reportResult("no-route")
	} else {
		n.reportResult("ok")
	}
	return err
}

// forwardTy offers hdr/val to the interface profile, returning
// ergot.ErrDestinationLocal when there is no profile, no marshal
// function, or the local-bypass shortcut applies -- the signal that the
// caller should fall through to local dispatch instead.
func (n *NetStack) forwardTy(hdr ergot.Header, val any, marshal func(any) ([]byte, error)) error {
	if ergot.LocalBypass(hdr.Src, hdr.Dst) {
		return ergot.ErrDestinationLocal
	}
	if n.profile == nil || marshal == nil {
		return ergot.ErrDestinationLocal
	}
	body, err := marshal(val)
	if err != nil {
		return err
	}
	hdr = hdr.WithSeqNo(n.nextSeq())
	return n.profile.SendRaw(hdr, body)
}

func (n *NetStack) sendOneLocal(hdr ergot.Header, val any) error {
	s, ok := n.byPort[hdr.Dst.PortID]
	if !ok {
		return ergot.ErrNoRoute
	}
	if s.Kind != hdr.Kind {
		return ergot.ErrWrongPortKind
	}
	return n.sendToSocket(s, val, hdr)
}

func (n *NetStack) sendAnyLocal(hdr ergot.Header, val any) error {
	if hdr.AnyAll == nil {
		return ergot.ErrAnyPortMissingKey
	}
	var match *socket.Header
	for _, s := range n.byPort {
		if s.Kind != hdr.Kind {
			continue
		}
		if !s.MatchesKey(hdr.AnyAll.Key, hdr.AnyAll.Nash) {
			continue
		}
		if match != nil {
			return ergot.ErrAnyPortNotUnique
		}
		match = s
	}
	if match == nil {
		return ergot.ErrNoRoute
	}
	return n.sendToSocket(match, val, hdr)
}

func (n *NetStack) sendAllLocal(hdr ergot.Header, val any) error {
	if hdr.AnyAll == nil {
		return ergot.ErrAllPortMissingKey
	}
	anyFound := false
	for _, s := range n.broadcast {
		if s.Kind != hdr.Kind {
			continue
		}
		if !s.MatchesKey(hdr.AnyAll.Key, hdr.AnyAll.Nash) {
			continue
		}
		if n.sendToSocket(s, val, hdr) == nil {
			anyFound = true
		}
	}
	if !anyFound {
		return ergot.ErrNoRoute
	}
	return nil
}

func (n *NetStack) sendToSocket(s *socket.Header, val any, hdr ergot.Header) error {
	hdr = hdr.WithSeqNo(n.nextSeq())
	vt := s.VTable
	if vt.RecvOwned != nil {
		return vt.RecvOwned(val, hdr)
	}
	if vt.RecvBorrowed != nil {
		return vt.RecvBorrowed(val, hdr)
	}
	return ergot.WhatTheHell()
}

// SendRaw dispatches an already-serialized frame, as received from an
// interface's receive worker. It matches the first attached socket
// (unicast or broadcast) whose port equals hdr.Dst.PortID, or whose key
// matches when PortID is ergot.PortAny -- mirroring ergot-base's
// send_raw, which does not fan a raw any-cast/broadcast send out to every
// match the way the typed send path does, since a raw frame's body has
// already been serialized once for a specific destination.
func (n *NetStack) SendRaw(hdr ergot.Header, body []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var ifaceErr error
	if !ergot.LocalBypass(hdr.Src, hdr.Dst) && n.profile != nil {
		ifaceErr = n.profile.SendRaw(hdr.WithSeqNo(n.nextSeq()), body)
	} else {
		ifaceErr = ergot.ErrDestinationLocal
	}
	if ifaceErr == nil {
		n.reportResult("ok")
		return nil
	}
	if ifaceErr != ergot.ErrDestinationLocal {
		n.reportResult("interface-error")
		return ifaceErr
	}

	for _, s := range n.byPort {
		if err, done := n.tryRawMatch(s, hdr, body); done {
			return err
		}
	}
	for _, s := range n.broadcast {
		if err, done := n.tryRawMatch(s, hdr, body); done {
			return err
		}
	}
	n.reportResult("no-route")
	return ergot.ErrNoRoute
}

// SendErr delivers a PROTOCOL_ERROR frame to the local socket addressed by
// hdr.Dst, as reported by an interface's receive worker when the remote
// side of the link could not route or deliver a frame this stack sent.
// Unlike SendTy/SendRaw, there is no local-vs-remote branch: a protocol
// error always targets a socket that lives on this stack.
func (n *NetStack) SendErr(hdr ergot.Header, srcErr error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.byPort[hdr.Dst.PortID]
	if !ok || s.VTable.RecvErr == nil {
		n.reportResult("no-route")
		return ergot.ErrNoRoute
	}
	s.VTable.RecvErr(hdr, srcErr)
	n.reportResult("ok")
	return nil
}

func (n *NetStack) tryRawMatch(s *socket.Header, hdr ergot.Header, body []byte) (error, bool) {
	if s.Kind != hdr.Kind {
		if hdr.Dst.PortID != ergot.PortAny && hdr.Dst.PortID == s.Port {
			n.reportResult("wrong-port-kind")
			return ergot.ErrWrongPortKind, true
		}
		return nil, false
	}
	keyMatch := hdr.Dst.IsAnyPort() && hdr.AnyAll != nil && s.MatchesKey(hdr.AnyAll.Key, hdr.AnyAll.Nash)
	if s.Port != hdr.Dst.PortID && !keyMatch {
		return nil, false
	}
	stamped := hdr.WithSeqNo(n.nextSeq())
	err := s.VTable.RecvRaw(body, stamped)
	if err != nil {
		n.reportResult("socket-error")
	} else {
		n.reportResult("ok")
	}
	return err, true
}
