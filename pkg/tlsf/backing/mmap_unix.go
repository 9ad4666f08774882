//go:build unix

package backing

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
)

var _ tlsf.Source = (*Mmap)(nil)

// Mmap is a tlsf.Source backed by anonymous, private mmap regions. Each
// Map call rounds the request up to a whole number of pages.
type Mmap struct {
	mu      sync.Mutex
	regions map[unsafe.Pointer]uintptr
}

// NewMmap returns a ready-to-use Mmap source.
func NewMmap() *Mmap {
	return &Mmap{regions: make(map[unsafe.Pointer]uintptr)}
}

func (m *Mmap) Map(requestedSize *uintptr) (unsafe.Pointer, error) {
	size := pageRound(*requestedSize)

	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("backing: mmap %d bytes: %w", size, err)
	}

	ptr := unsafe.Pointer(&buf[0])

	m.mu.Lock()
	m.regions[ptr] = size
	m.mu.Unlock()

	*requestedSize = size

	return ptr, nil
}

func (m *Mmap) Unmap(ptr unsafe.Pointer, size uintptr) {
	m.mu.Lock()
	delete(m.regions, ptr)
	m.mu.Unlock()

	buf := unsafe.Slice((*byte)(ptr), size)
	_ = unix.Munmap(buf)
}

func pageRound(n uintptr) uintptr {
	pageSize := uintptr(unix.Getpagesize())

	if rem := n % pageSize; rem != 0 {
		n += pageSize - rem
	}

	return n
}
