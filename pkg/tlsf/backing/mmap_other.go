//go:build !unix

package backing

// Mmap is unavailable outside unix targets; NewMmap falls back to the
// portable Heap source so callers that always ask for "the fastest
// native source" still get something that works.
type Mmap = Heap

func NewMmap() *Mmap {
	return NewHeap()
}
