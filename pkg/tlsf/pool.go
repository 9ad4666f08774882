package tlsf

import "unsafe"

// addPool carves a single free block plus a sentinel out of a raw memory
// region [mem, mem+size) and inserts that block into fl. size must
// already be a multiple of wordSize; callers round
// down before calling. The returned block is the pool's root: store it
// so the pool can later be located for removePool or for Destroy.
//
// The root block's struct starts at mem itself -- never one word before
// it. A C TLSF header can borrow the tail word of whatever preceded the
// pool as phantom storage for prev_phys_block, since that borrow is
// never dereferenced, only its address computed; Go's unsafe.Pointer
// rules make forming a pointer before the start of an allocation unwise
// even when it is never read through. poolOverhead is 3 words rather
// than 2 to pay for keeping the root fully in-bounds: one word is
// absorbed by the root's own header the usual way, and the other two
// are the sentinel's header footprint at the far end of the region.
// isPool marks the root block as one that originated from a growth-time
// Source.Map call, which is the only kind removePool/Free may later hand
// back via Source.Unmap; pools registered through AddPool are caller-owned
// memory and must never carry this bit.
//
// The returned capacity is the pool's usable payload span (size minus
// poolOverhead), fixed for the pool's whole lifetime regardless of later
// splits and merges: callers record it so Check can later verify P7
// (free_size + used_size = total_size) against a value that was not
// itself derived from the blocks being checked.
func addPool(fl *freeList, mem unsafe.Pointer, size uintptr, isPool bool) (root *block, capacity uintptr) {
	if size < poolOverhead+blockSizeMin {
		panic(Fault{Op: "addPool", Msg: "region too small for a pool"})
	}

	poolSize := size - poolOverhead
	if poolSize > blockSizeMax {
		panic(Fault{Op: "addPool", Msg: "region too large for a single pool"})
	}

	root = (*block)(mem)
	root.prevPhys = nil
	root.setSize(poolSize)
	root.setPoolBit(isPool)
	root.setPrevFreeBit(false)

	sentinel := linkNext(root)
	sentinel.setSize(0)
	sentinel.setPoolBit(false)
	sentinel.setFreeBit(false)
	sentinel.setPrevFreeBit(true)

	setFree(root, true)
	fl.blockInsert(root)

	return root, poolSize
}

// poolIsEmpty reports whether root is still a single untouched free block
// spanning its whole pool (followed immediately by the sentinel) -- the
// only state in which it is safe to hand the backing region back to a
// Source.
func poolIsEmpty(root *block) bool {
	return root.isFree() && blockNext(root).isLast()
}

// removePool unlinks a pool's root block from fl and returns true if the
// whole pool is still a single untouched free block. Use this only when
// root is currently linked into fl; Free's own reclaim path checks
// poolIsEmpty directly instead, since the block it just freed has not
// been inserted into any free list yet. Leaves fl untouched and returns
// false when the pool is not empty.
func removePool(fl *freeList, root *block) bool {
	if !poolIsEmpty(root) {
		return false
	}

	fl.blockRemove(root)

	return true
}

// poolRegionSize returns the number of raw bytes a pool must span to
// guarantee usable bytes of useful free space after paying pool and
// block overhead, rounded up to a whole number of words.
func poolRegionSize(usable uintptr) uintptr {
	total := usable + poolOverhead
	if rem := total % wordSize; rem != 0 {
		total += wordSize - rem
	}

	return total
}
