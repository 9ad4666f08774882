package tlsf

// freeList is the two-tier segregated free-list index. Every empty list
// points at blockNull rather than being nil, so insert/remove never need
// a null check on the list head -- the same trick the reference
// implementation uses.
type freeList struct {
	flBitmap uint32
	slBitmap [flIndexCount]uint32
	blocks   [flIndexCount][slIndexCount]*block
	null     block
}

func (fl *freeList) init() {
	fl.null.nextFree = &fl.null
	fl.null.prevFree = &fl.null

	for i := range fl.blocks {
		for j := range fl.blocks[i] {
			fl.blocks[i][j] = &fl.null
		}
	}
}

// insert pushes b at the head of list (l, s) and marks both bitmaps.
func (fl *freeList) insert(b *block, l, s int) {
	current := fl.blocks[l][s]
	b.nextFree = current
	b.prevFree = &fl.null
	current.prevFree = b

	fl.blocks[l][s] = b
	fl.flBitmap |= 1 << uint(l)
	fl.slBitmap[l] |= 1 << uint(s)
}

// remove splices b out of list (l, s), clearing bitmaps if the list
// becomes empty.
func (fl *freeList) remove(b *block, l, s int) {
	prev := b.prevFree
	next := b.nextFree
	next.prevFree = prev
	prev.nextFree = next

	if fl.blocks[l][s] == b {
		fl.blocks[l][s] = next

		if next == &fl.null {
			fl.slBitmap[l] &^= 1 << uint(s)

			if fl.slBitmap[l] == 0 {
				fl.flBitmap &^= 1 << uint(l)
			}
		}
	}
}

// search finds the smallest non-empty class able to satisfy (l, s),
// writing back the class it actually found. Returns nil if the index is
// exhausted.
func (fl *freeList) search(l, s int) (*block, int, int) {
	slMap := fl.slBitmap[l] & (^uint32(0) << uint(s))
	if slMap == 0 {
		flMap := fl.flBitmap & (^uint32(0) << uint(l+1))
		if flMap == 0 {
			return nil, l, s
		}

		l = ffs32(flMap)
		slMap = fl.slBitmap[l]
	}

	s = ffs32(slMap)

	return fl.blocks[l][s], l, s
}

// blockRemove removes a block using its own size to re-derive its class.
func (fl *freeList) blockRemove(b *block) {
	l, s := mappingInsert(b.size())
	fl.remove(b, l, s)
}

// blockInsert inserts a block using its own size to derive its class.
func (fl *freeList) blockInsert(b *block) {
	l, s := mappingInsert(b.size())
	fl.insert(b, l, s)
}
