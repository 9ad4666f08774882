package tlsf

import "unsafe"

// block is the header of a pool region, free or used.
//
// prevPhys is meaningful only when the physical predecessor is free: it is
// physically stored inside that predecessor's trailing payload bytes, not
// in space reserved by this block. header packs size/is_free/is_prev_free/
// is_pool into one machine word. nextFree/prevFree are valid only while
// the block is linked into a free list.
type block struct {
	prevPhys *block
	header   uintptr
	nextFree *block
	prevFree *block
}

const (
	blockOverhead   = wordSize                             // size of the header word alone
	blockStartOff   = unsafe.Sizeof(block{}.prevPhys) + unsafe.Sizeof(block{}.header)
	blockStructSize = unsafe.Sizeof(block{})
	blockSizeMin    = blockStructSize - unsafe.Sizeof((*block)(nil)) // full record minus prevPhys
	// poolOverhead is the bookkeeping cost of one pool: one header word
	// absorbed by the root block itself, plus two for the sentinel's
	// header footprint at the far end of the region. See addPool in
	// pool.go for why this is one word more than the block header alone.
	poolOverhead = 3 * blockOverhead
)

func (b *block) size() uintptr    { return b.header & sizeMask }
func (b *block) isFree() bool     { return b.header&flagFree != 0 }
func (b *block) isPrevFree() bool { return b.header&flagPrevFree != 0 }
func (b *block) isPool() bool     { return b.header&flagPool != 0 }
func (b *block) isLast() bool     { return b.size() == 0 }

func (b *block) setSize(s uintptr) {
	if s&^sizeMask != 0 {
		panic(Fault{Op: "setSize", Msg: "size exceeds header field width"})
	}
	b.header = (b.header &^ sizeMask) | s
}

func (b *block) setFreeBit(v bool)     { setFlag(&b.header, flagFree, v) }
func (b *block) setPrevFreeBit(v bool) { setFlag(&b.header, flagPrevFree, v) }
func (b *block) setPoolBit(v bool)     { setFlag(&b.header, flagPool, v) }

func setFlag(h *uintptr, bit uintptr, v bool) {
	if v {
		*h |= bit
	} else {
		*h &^= bit
	}
}

// blockFromPtr recovers the header of the block that owns a user pointer.
func blockFromPtr(ptr unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(ptr) - blockStartOff))
}

// blockToPtr returns the user pointer owned by a block: immediately after
// the header word.
func blockToPtr(b *block) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + blockStartOff)
}

// blockNext returns the physically-next block. b must not be the sentinel.
func blockNext(b *block) *block {
	return (*block)(unsafe.Pointer(uintptr(blockToPtr(b)) + b.size() - blockOverhead))
}

// blockPrev returns the physically-previous block. Only valid when
// b.isPrevFree().
func blockPrev(b *block) *block {
	return b.prevPhys
}

// linkNext stitches b into the prevPhys slot of its physical successor and
// returns that successor. Call after any size or boundary change.
func linkNext(b *block) *block {
	next := blockNext(b)
	next.prevPhys = b
	return next
}

func canSplit(b *block, size uintptr) bool {
	return b.size() >= blockStructSize+size
}

// setFree updates b's free bit and mirrors it into the successor's
// is_prev_free bit.
func setFree(b *block, free bool) {
	b.setFreeBit(free)
	linkNext(b).setPrevFreeBit(free)
}
