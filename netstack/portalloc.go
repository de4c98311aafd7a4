package netstack

import "math/bits"

// allocPort implements the cache-bank port allocator from ergot-base's
// NetStackInner::alloc_port, ported bit for bit: it remembers 32 ports at
// a time in pcacheBits, starting at pcacheStart (always a multiple of
// 32), so that allocating from the current bank never has to walk the
// socket table. Only when the current bank is exhausted does it scan for
// a bank with room, rebuilding the bitmap from n.byPort.
//
// Port 0 is reserved (ergot.PortAny) and port 255 is reserved
// (ergot.PortBroadcast); both are pre-marked taken in whichever bank they
// fall into.
func (n *NetStack) allocPort() (uint8, bool) {
	if n.pcacheStart == 0 {
		n.pcacheBits |= 1
	}

	if n.pcacheBits != ^uint32(0) {
		ldg := bits.TrailingZeros32(^n.pcacheBits)
		n.pcacheBits |= 1 << uint(ldg)
		return n.pcacheStart + uint8(ldg), true
	}

	oldStart := n.pcacheStart
	for base := 0; base < 8; base++ {
		start := uint8(base * 32)
		if start == oldStart {
			continue
		}
		n.pcacheStart = start
		n.pcacheBits = 0
		if n.pcacheStart == 0 {
			n.pcacheBits |= 1
		}
		if n.pcacheStart == 0b111_00000 {
			n.pcacheBits |= 1 << 31
		}

		for port := range n.byPort {
			pupper := port &^ (32 - 1)
			plower := port & (32 - 1)
			if pupper == n.pcacheStart {
				n.pcacheBits |= 1 << uint(plower)
			}
		}

		if n.pcacheBits != ^uint32(0) {
			ldg := bits.TrailingZeros32(^n.pcacheBits)
			n.pcacheBits |= 1 << uint(ldg)
			return n.pcacheStart + uint8(ldg), true
		}
	}

	return 0, false
}

// freePort clears port's bit in the cache bank if it currently falls
// within the cached range. A port freed outside the cached bank is
// naturally picked up the next time allocPort has to rescan.
func (n *NetStack) freePort(port uint8) {
	pupper := port &^ (32 - 1)
	plower := port & (32 - 1)
	if pupper == n.pcacheStart {
		n.pcacheBits &^= 1 << uint(plower)
	}
}
