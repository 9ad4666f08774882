package backing

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
)

var _ tlsf.Source = (*Heap)(nil)

// Heap is a tlsf.Source backed by ordinary make([]byte, n) allocations,
// kept alive and at a fixed address with a runtime.Pinner. It works on
// every platform Go supports and is the right choice for tests or for
// embedding an allocator inside a normal Go process without reaching
// for an OS mapping.
type Heap struct {
	mu      sync.Mutex
	regions map[unsafe.Pointer]*pinnedRegion
}

type pinnedRegion struct {
	buf []byte
	pin runtime.Pinner
}

// NewHeap returns a ready-to-use Heap source.
func NewHeap() *Heap {
	return &Heap{regions: make(map[unsafe.Pointer]*pinnedRegion)}
}

// Map allocates and pins a region of at least *requestedSize bytes.
func (h *Heap) Map(requestedSize *uintptr) (unsafe.Pointer, error) {
	size := *requestedSize
	if size == 0 {
		return nil, fmt.Errorf("backing: Heap.Map requested zero bytes")
	}

	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])

	region := &pinnedRegion{buf: buf}
	region.pin.Pin(&buf[0])

	h.mu.Lock()
	h.regions[ptr] = region
	h.mu.Unlock()

	*requestedSize = size

	return ptr, nil
}

// Unmap unpins and forgets a region previously returned by Map. The
// underlying memory becomes eligible for garbage collection once no
// other reference to it remains.
func (h *Heap) Unmap(ptr unsafe.Pointer, _ uintptr) {
	h.mu.Lock()
	region, ok := h.regions[ptr]
	if ok {
		delete(h.regions, ptr)
	}
	h.mu.Unlock()

	if ok {
		region.pin.Unpin()
	}
}
