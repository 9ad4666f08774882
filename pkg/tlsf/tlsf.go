package tlsf

import "unsafe"

// T is a TLSF allocator instance: a free-list index over zero or more
// pools, each a contiguous region either added directly with AddPool or
// obtained from a Source on demand. The zero T is not usable; construct
// one with Create.
//
// A *T is not safe for concurrent use; see the package doc comment.
type T struct {
	fl freeList

	source          Source
	growthIncrement uintptr
	assertOnCheck   bool

	poolRoots    []*block
	sourceOwned  map[*block]bool
	poolCapacity map[*block]uintptr

	mallocCount uint64
	freeCount   uint64
}

// Create builds an empty instance. With no WithSource option the
// instance only ever serves memory added via AddPool; with one, Alloc
// transparently grows by calling Source.Map when every existing pool is
// exhausted.
func Create(opts ...Option) (*T, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	t := &T{
		source:          cfg.Source,
		growthIncrement: cfg.GrowthIncrement,
		assertOnCheck:   cfg.AssertOnCheck,
	}
	t.fl.init()

	return t, nil
}

// AddPool registers a caller-owned memory region as a pool. mem must be
// wordSize-aligned; size is rounded down to a whole number of words.
// Panics with a Fault if the region is too small to host even one
// minimum-sized block.
func (t *T) AddPool(mem unsafe.Pointer, size uintptr) {
	if uintptr(mem)%wordSize != 0 {
		panic(Fault{Op: "AddPool", Msg: "region is not word-aligned"})
	}

	size -= size % wordSize

	root, capacity := addPool(&t.fl, mem, size, false)
	t.poolRoots = append(t.poolRoots, root)
	t.recordCapacity(root, capacity)
}

// Destroy releases every pool this instance obtained from its Source,
// including ones still holding live allocations -- callers that want the
// stricter "everything must already be freed" contract should call
// Check first and act on its report. Pools added with AddPool are the
// caller's own memory and are left untouched; Destroy simply forgets
// about them.
func (t *T) Destroy() {
	if t.source != nil {
		for _, root := range t.poolRoots {
			if !t.sourceOwned[root] {
				continue
			}

			region := unsafe.Pointer(root)
			t.source.Unmap(region, t.poolCapacity[root]+poolOverhead)
		}
	}

	t.poolRoots = nil
	t.sourceOwned = nil
	t.poolCapacity = nil
	t.fl = freeList{}
}

// recordCapacity remembers a pool's fixed usable-byte span, keyed by its
// root block, for later P7 verification in Check.
func (t *T) recordCapacity(root *block, capacity uintptr) {
	if t.poolCapacity == nil {
		t.poolCapacity = make(map[*block]uintptr)
	}

	t.poolCapacity[root] = capacity
}

// adjustSize rounds a requested payload size up to a word boundary and
// up to the minimum block size -- including a request of 0, which still
// yields a valid, freeable minimum-sized block rather than being turned
// away.
func adjustSize(size uintptr) uintptr {
	adjusted := alignUp(size, wordSize)
	if adjusted < blockSizeMin {
		adjusted = blockSizeMin
	}

	return adjusted
}

func alignUp(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}

// Alloc returns a pointer to at least size usable bytes, or ErrOOM if no
// existing pool can satisfy the request and growth (if a Source is
// configured) also failed. Alloc(0) still succeeds, returning a valid,
// freeable pointer to a minimum-sized block.
func (t *T) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size >= blockSizeMax {
		panic(Fault{Op: "Alloc", Msg: "requested size exceeds the maximum block size"})
	}

	adjusted := adjustSize(size)

	b := t.findFit(adjusted)
	if b == nil {
		if !t.grow(adjusted) {
			return nil, ErrOOM{Size: size}
		}

		b = t.findFit(adjusted)
		if b == nil {
			return nil, ErrOOM{Size: size}
		}
	}

	trimFree(&t.fl, b, adjusted)
	setFree(b, false)
	t.mallocCount++

	return blockToPtr(b), nil
}

// findFit removes and returns a free block able to hold size bytes, or
// nil if the index has nothing suitable. Panics with a Fault if size is
// close enough to blockSizeMax that mappingSearch's own round-up carries
// it past the top first-level class -- the oversize-request contract
// violation from the package doc, not a recoverable out-of-memory
// condition, even though the raw, pre-adjustment size passed Alloc's own
// blockSizeMax guard.
func (t *T) findFit(size uintptr) *block {
	fl, sl := mappingSearch(size)
	if fl < 0 || fl >= flIndexCount {
		panic(Fault{Op: "Alloc", Msg: "requested size exceeds the maximum block size"})
	}

	b, fl, sl := t.fl.search(fl, sl)
	if b == nil {
		return nil
	}

	t.fl.remove(b, fl, sl)

	return b
}

// grow asks the Source for at least needed additional usable bytes and
// adds the result as a new pool. It returns false if there is no
// Source, or the Source failed, or returned too little memory to be
// useful.
func (t *T) grow(needed uintptr) bool {
	if t.source == nil {
		return false
	}

	// Size the pool for the class mappingSearch will look in, not just for
	// needed itself, so Alloc's retry of findFit finds the new block.
	usable := needed
	if usable >= smallBlockSize {
		usable += (uintptr(1) << (uintptr(flsUintptr(usable)) - slIndexCountShift)) - 1
	}

	request := poolRegionSize(usable)
	if t.growthIncrement > request {
		request = t.growthIncrement
	}

	size := request

	mem, err := t.source.Map(&size)
	if err != nil || mem == nil {
		return false
	}

	size -= size % wordSize
	if size <= poolOverhead+blockSizeMin {
		t.source.Unmap(mem, size)
		return false
	}

	root, capacity := addPool(&t.fl, mem, size, true)
	t.poolRoots = append(t.poolRoots, root)
	t.recordCapacity(root, capacity)

	if t.sourceOwned == nil {
		t.sourceOwned = make(map[*block]bool)
	}
	t.sourceOwned[root] = true

	return true
}

// Free releases a pointer previously returned by Alloc, Calloc, or
// Realloc. Free(nil) is a no-op. Passing any other pointer is a Fault
// the implementation cannot detect and will corrupt the pool.
func (t *T) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	b := blockFromPtr(ptr)
	b = mergePrev(&t.fl, b)
	b = mergeNext(&t.fl, b)

	setFree(b, true)
	t.freeCount++

	if b.isPool() && t.source != nil && poolIsEmpty(b) {
		t.reclaimPool(b)
		return
	}

	t.fl.blockInsert(b)
}

// reclaimPool hands a fully-free, growth-time pool back to the Source and
// forgets about it. b must not be linked into any free list: Free's
// reclaim path calls this before ever inserting the just-freed block.
func (t *T) reclaimPool(root *block) {
	t.source.Unmap(unsafe.Pointer(root), t.poolCapacity[root]+poolOverhead)
	delete(t.sourceOwned, root)
	delete(t.poolCapacity, root)

	for i, r := range t.poolRoots {
		if r == root {
			t.poolRoots = append(t.poolRoots[:i], t.poolRoots[i+1:]...)
			break
		}
	}
}

// Realloc resizes a previous allocation, preserving its contents up to
// the smaller of the old and new sizes. Realloc(nil, n) behaves like
// Alloc(n); Realloc(ptr, 0) behaves like Free(ptr) and returns (nil,
// nil). When growing, Realloc first tries to absorb a free physical
// neighbor in place before falling back to allocate-copy-free.
func (t *T) Realloc(ptr unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if ptr == nil {
		return t.Alloc(size)
	}

	if size == 0 {
		t.Free(ptr)
		return nil, nil
	}

	if size >= blockSizeMax {
		panic(Fault{Op: "Realloc", Msg: "requested size exceeds the maximum block size"})
	}

	adjusted := adjustSize(size)
	cur := blockFromPtr(ptr)
	curSize := cur.size()

	if adjusted <= curSize {
		trimUsed(&t.fl, cur, adjusted)
		return ptr, nil
	}

	next := blockNext(cur)
	if next.isFree() && adjusted <= curSize+blockOverhead+next.size() {
		t.fl.blockRemove(next)
		absorb(cur, next)
		setFree(cur, false)
		trimUsed(&t.fl, cur, adjusted)

		return ptr, nil
	}

	newPtr, err := t.Alloc(size)
	if err != nil {
		return nil, err
	}

	copyMemory(newPtr, ptr, curSize)
	t.Free(ptr)

	return newPtr, nil
}

// Calloc allocates space for n elements of size bytes each, zeroed.
// Panics with a Fault on overflow of n*size.
func (t *T) Calloc(n, size uintptr) (unsafe.Pointer, error) {
	if n == 0 || size == 0 {
		return t.Alloc(0)
	}

	if size > (^uintptr(0))/n {
		panic(Fault{Op: "Calloc", Msg: "n*size overflows uintptr"})
	}

	total := n * size

	ptr, err := t.Alloc(total)
	if err != nil || ptr == nil {
		return ptr, err
	}

	zeroMemory(ptr, total)

	return ptr, nil
}

func copyMemory(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

func zeroMemory(ptr unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	clear(unsafe.Slice((*byte)(ptr), n))
}
