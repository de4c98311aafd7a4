package iface

import (
	"errors"
	"sort"
	"sync"

	"github.com/ergotnet/ergot"
)

// routerOwnNodeID is the address a RouterProfile always answers to on
// every attached link -- grounded on StdTcpIm's hard-coded assumption
// that "we" are always node_id==1.
const routerOwnNodeID = ergot.NodeIDController

// ErrOutOfNetIDs is returned by RouterProfile.Attach once every network
// id in the 1..65534 range is allocated to a live link.
var ErrOutOfNetIDs = errors.New("ergot/iface: out of network ids")

type routerLink struct {
	netID  uint16
	sink   Sink
	closed bool
}

// RouterProfile implements netstack.Profile for the controller side of a
// star of point-to-point links: one network id per attached link. A frame
// that arrives on one link addressed to another link's network id goes
// back out through SendRaw on that link. It is the Go analogue of ergot-base's
// StdTcpIm, minus the tokio-specific tx_worker/WaitQueue plumbing --
// a RouterProfile is just the network-id table and the address-rewrite
// logic; the transport package that owns each net.Conn calls Attach,
// Detach, and eventually SendRaw as the router dispatches through it.
type RouterProfile struct {
	mu        sync.Mutex
	links     []*routerLink // kept sorted by netID, mirroring the teacher's binary_search_by_key table
	anyClosed bool
}

// NewRouterProfile constructs an empty RouterProfile.
func NewRouterProfile() *RouterProfile {
	return &RouterProfile{}
}

// NetIDs returns the network ids currently assigned to live links, in
// ascending order.
func (r *RouterProfile) NetIDs() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint16, len(r.links))
	for i, l := range r.links {
		out[i] = l.netID
	}
	return out
}

// Attach allocates the lowest unused network id for sink and returns it.
// Closed links are garbage-collected on the same call that needs the
// space they freed, exactly as StdTcpImInner::alloc_intfc defers its
// retain() sweep -- a RouterProfile never walks its link table purely to
// clean up; it only does so when allocating demands it.
func (r *RouterProfile) Attach(sink Sink) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.links) == 0 {
		r.links = append(r.links, &routerLink{netID: 1, sink: sink})
		return 1, nil
	}

	if r.anyClosed {
		kept := r.links[:0]
		for _, l := range r.links {
			if !l.closed {
				kept = append(kept, l)
			}
		}
		r.links = kept
		r.anyClosed = false
	}
	if len(r.links) >= 65534 {
		return 0, ErrOutOfNetIDs
	}

	netID := uint16(1)
	for _, l := range r.links {
		if l.netID > netID {
			break
		}
		netID++
	}

	r.links = append(r.links, &routerLink{netID: netID, sink: sink})
	sort.Slice(r.links, func(i, j int) bool { return r.links[i].netID < r.links[j].netID })
	return netID, nil
}

// Detach marks the link holding netID closed, to be collected on the next
// Attach call.
func (r *RouterProfile) Detach(netID uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.netID == netID {
			l.closed = true
			r.anyClosed = true
			return
		}
	}
}

func (r *RouterProfile) find(netID uint16) (*routerLink, bool) {
	i := sort.Search(len(r.links), func(i int) bool { return r.links[i].netID >= netID })
	if i < len(r.links) && r.links[i].netID == netID && !r.links[i].closed {
		return r.links[i], true
	}
	return nil, false
}

// SendRaw implements netstack.Profile. It looks up the link whose network
// id matches hdr.Dst.NetworkID by binary search -- a RouterProfile only
// ever routes to a directly attached link, never through one link to
// reach another -- and rewrites addresses following StdTcpIm::common_send.
func (r *RouterProfile) SendRaw(hdr ergot.Header, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.find(hdr.Dst.NetworkID)
	if !ok {
		return ergot.ErrNoRouteToDest
	}
	if hdr.Dst.NetworkID == link.netID && hdr.Dst.NodeID == routerOwnNodeID {
		return ergot.ErrDestinationLocal
	}

	hdr = hdr.Clone()
	if err := hdr.DecrementTTL(); err != nil {
		return err
	}
	if hdr.Src.IsAny() {
		hdr.Src.NetworkID = link.netID
		hdr.Src.NodeID = routerOwnNodeID
	}
	if hdr.RequiresAppendix() && hdr.AnyAll == nil {
		return ergot.ErrAnyPortMissingKey
	}

	if err := link.sink.Send(hdr, body); err != nil {
		return ergot.ErrInterfaceFull
	}
	return nil
}
