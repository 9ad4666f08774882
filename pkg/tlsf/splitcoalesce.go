package tlsf

// split breaks b into a leading block of exactly size bytes and a
// trailing remainder, wiring the physical list back together. b must
// already have been checked with canSplit. The remainder is returned
// marked free but is NOT linked into any free-list class -- callers
// decide whether to insert it, absorb it into a neighbor first, or use
// it immediately.
func split(b *block, size uintptr) *block {
	wasFree := b.isFree()
	remainSize := b.size() - size - blockOverhead

	b.setSize(size)

	remaining := linkNext(b)
	remaining.setSize(remainSize)
	remaining.setPoolBit(false)
	remaining.setPrevFreeBit(wasFree)
	setFree(remaining, true)

	return remaining
}

// absorb merges the physically-next block next into prev, which must be
// its immediate predecessor. next must already be unlinked from every
// free list; the caller is responsible for that. prev keeps whatever
// free/used state it had.
func absorb(prev, next *block) {
	prev.setSize(prev.size() + next.size() + blockOverhead)
	linkNext(prev)
}

// mergePrev folds b into its physical predecessor if that predecessor is
// free, removing the predecessor from fl first. It returns whichever
// block now represents the merged region.
func mergePrev(fl *freeList, b *block) *block {
	if !b.isPrevFree() {
		return b
	}

	prev := blockPrev(b)
	fl.blockRemove(prev)
	absorb(prev, b)

	return prev
}

// mergeNext folds the physical successor of b into b if that successor
// is free and not the pool sentinel, removing the successor from fl
// first. It returns b.
func mergeNext(fl *freeList, b *block) *block {
	next := blockNext(b)
	if next.isLast() || !next.isFree() {
		return b
	}

	fl.blockRemove(next)
	absorb(b, next)

	return b
}

// trimFree splits b, a free block, down to exactly size bytes and
// reinserts the remainder into fl when b is at least size+blockStructSize
// bytes long; otherwise it leaves b whole. b is left with its free bit unchanged; the caller is about to hand it
// out and must call setFree(b, false) itself once it is done (that call
// also fixes up the remainder's is_prev_free bit). Used after locating a
// free block big enough to satisfy a request.
func trimFree(fl *freeList, b *block, size uintptr) {
	if !canSplit(b, size) {
		return
	}

	remaining := split(b, size)
	fl.blockInsert(remaining)
}

// trimUsed splits a used block b down to exactly size bytes, merging the
// freed tail forward into its physical successor when possible before
// reinserting it into fl. Used when Realloc shrinks an in-place
// allocation.
func trimUsed(fl *freeList, b *block, size uintptr) {
	if !canSplit(b, size) {
		return
	}

	remaining := split(b, size)
	remaining = mergeNext(fl, remaining)
	fl.blockInsert(remaining)
}
