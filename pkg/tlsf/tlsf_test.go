package tlsf

import (
	"testing"
	"unsafe"
)

func newTestInstance(t *testing.T, poolBytes int) *T {
	t.Helper()

	inst, err := Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	arena := newTestArena(t, poolBytes/int(wordSize))
	inst.AddPool(arena, uintptr(poolBytes))

	return inst
}

func TestAllocFreeBasic(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Alloc(128)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if ptr == nil {
		t.Fatal("Alloc returned nil with no error")
	}

	buf := unsafe.Slice((*byte)(ptr), 128)
	for i := range buf {
		buf[i] = byte(i)
	}

	for i, v := range buf {
		if v != byte(i) {
			t.Fatalf("byte %d corrupted: got %d", i, v)
		}
	}

	inst.Free(ptr)

	if err := inst.Check(); err != nil {
		t.Fatalf("Check after Free: %v", err)
	}
}

func TestAllocZeroYieldsAFreeableBlock(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Alloc(0)
	if err != nil || ptr == nil {
		t.Fatalf("Alloc(0) = (%p, %v), want a valid pointer and no error", ptr, err)
	}

	inst.Free(ptr)

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	inst := newTestInstance(t, 1<<16)
	inst.Free(nil)

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestAllocOOMWithoutSource(t *testing.T) {
	inst := newTestInstance(t, 1<<12)

	var ptrs []unsafe.Pointer

	var oomErr error

	for i := 0; i < 10000; i++ {
		ptr, err := inst.Alloc(64)
		if err != nil {
			oomErr = err
			break
		}

		ptrs = append(ptrs, ptr)
	}

	if oomErr == nil {
		t.Fatal("expected ErrOOM once the pool filled up")
	}

	if _, ok := oomErr.(ErrOOM); !ok {
		t.Fatalf("error type = %T, want ErrOOM", oomErr)
	}

	for _, ptr := range ptrs {
		inst.Free(ptr)
	}

	if err := inst.Check(); err != nil {
		t.Fatalf("Check after draining: %v", err)
	}
}

func TestFragmentationThenCoalesce(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	const n = 16

	var ptrs [n]unsafe.Pointer

	for i := range ptrs {
		ptr, err := inst.Alloc(256)
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}

		ptrs[i] = ptr
	}

	for i := 0; i < n; i += 2 {
		inst.Free(ptrs[i])
	}

	for i := 1; i < n; i += 2 {
		inst.Free(ptrs[i])
	}

	if err := inst.Check(); err != nil {
		t.Fatalf("Check after freeing every block: %v", err)
	}

	stats := inst.Stats()
	if stats.UsedSize != 0 {
		t.Fatalf("UsedSize = %d, want 0 after freeing everything", stats.UsedSize)
	}
}

func TestReallocGrowInPlace(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := unsafe.Slice((*byte)(ptr), 64)
	for i := range buf {
		buf[i] = byte(i + 1)
	}

	grown, err := inst.Realloc(ptr, 4096)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	if grown != ptr {
		t.Fatal("growing into a free successor should not move the block")
	}

	grownBuf := unsafe.Slice((*byte)(grown), 64)
	for i, v := range grownBuf {
		if v != byte(i+1) {
			t.Fatalf("byte %d lost across Realloc: got %d", i, v)
		}
	}

	inst.Free(grown)

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestReallocShrink(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Alloc(4096)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	shrunk, err := inst.Realloc(ptr, 32)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	if shrunk != ptr {
		t.Fatal("shrinking Realloc should not move the block")
	}

	ptr2, err := inst.Alloc(2048)
	if err != nil {
		t.Fatalf("Alloc after shrink should reuse the reclaimed tail: %v", err)
	}

	inst.Free(shrunk)
	inst.Free(ptr2)

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestReallocNilIsAlloc(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Realloc(nil, 128)
	if err != nil || ptr == nil {
		t.Fatalf("Realloc(nil, 128) = (%p, %v)", ptr, err)
	}

	inst.Free(ptr)
}

func TestReallocZeroIsFree(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Alloc(128)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	out, err := inst.Realloc(ptr, 0)
	if err != nil || out != nil {
		t.Fatalf("Realloc(ptr, 0) = (%p, %v), want (nil, nil)", out, err)
	}

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCallocZeroesMemory(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	ptr, err := inst.Calloc(16, 32)
	if err != nil {
		t.Fatalf("Calloc: %v", err)
	}

	buf := unsafe.Slice((*byte)(ptr), 16*32)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}

	inst.Free(ptr)
}

func TestCallocOverflowPanics(t *testing.T) {
	inst := newTestInstance(t, 1<<16)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on n*size overflow")
		}
	}()

	inst.Calloc(^uintptr(0), 2)
}

func TestOOMPreservesExistingAllocations(t *testing.T) {
	inst := newTestInstance(t, 1<<12)

	ptr, err := inst.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := unsafe.Slice((*byte)(ptr), 64)
	for i := range buf {
		buf[i] = 0xAB
	}

	for {
		_, err := inst.Alloc(256)
		if err != nil {
			break
		}
	}

	for _, v := range buf {
		if v != 0xAB {
			t.Fatal("existing allocation was corrupted while the pool was exhausted")
		}
	}

	inst.Free(ptr)
}

type fakeSource struct {
	maps   int
	unmaps int
	fail   bool
	bytes  uintptr
}

func (f *fakeSource) Map(requestedSize *uintptr) (unsafe.Pointer, error) {
	if f.fail {
		return nil, errFakeSourceFailed
	}

	f.maps++

	size := *requestedSize
	buf := make([]uintptr, size/wordSize+1)
	f.bytes += size
	*requestedSize = size

	return unsafe.Pointer(&buf[0]), nil
}

func (f *fakeSource) Unmap(unsafe.Pointer, uintptr) { f.unmaps++ }

var errFakeSourceFailed = fakeSourceError{}

type fakeSourceError struct{}

func (fakeSourceError) Error() string { return "fake source exhausted" }

func TestGrowthFromSource(t *testing.T) {
	src := &fakeSource{}

	inst, err := Create(WithSource(src), WithGrowthIncrement(4096))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 64; i++ {
		if _, err := inst.Alloc(256); err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
	}

	if src.maps == 0 {
		t.Fatal("expected at least one pool grown from the source")
	}

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestGrowthSourceFailureReturnsOOM(t *testing.T) {
	src := &fakeSource{fail: true}

	inst, err := Create(WithSource(src))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := inst.Alloc(256); err == nil {
		t.Fatal("expected ErrOOM when the source always fails")
	}
}

func TestDestroyUnmapsGrownPools(t *testing.T) {
	src := &fakeSource{}

	inst, err := Create(WithSource(src), WithGrowthIncrement(4096))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := inst.Alloc(256); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	inst.Destroy()

	if src.unmaps != 1 {
		t.Fatalf("Unmap calls = %d, want 1 for the single grown pool", src.unmaps)
	}

	if len(inst.poolRoots) != 0 {
		t.Fatal("Destroy did not forget its pools")
	}
}

func TestFreeReclaimsEmptiedGrownPool(t *testing.T) {
	src := &fakeSource{}

	inst, err := Create(WithSource(src), WithGrowthIncrement(4096))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ptr, err := inst.Alloc(256)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if got := inst.Stats().PoolCount; got != 1 {
		t.Fatalf("PoolCount before free = %d, want 1", got)
	}

	inst.Free(ptr)

	if src.unmaps == 0 {
		t.Fatal("expected the emptied grown pool to be returned via Unmap")
	}

	if got := inst.Stats().PoolCount; got != 0 {
		t.Fatalf("PoolCount after reclaiming the only pool = %d, want 0", got)
	}
}

func TestDestroyLeavesAddPoolMemoryUntouched(t *testing.T) {
	src := &fakeSource{}

	inst, err := Create(WithSource(src))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	arena := newTestArena(t, 4096/int(wordSize))
	inst.AddPool(arena, 4096)

	if _, err := inst.Alloc(64); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	inst.Destroy()

	if src.unmaps != 0 {
		t.Fatal("Destroy must not call Unmap on memory registered via AddPool")
	}
}

func TestMinEngineVersionConstraint(t *testing.T) {
	if _, err := Create(WithMinEngineVersion(">2.0.0")); err == nil {
		t.Fatal("expected Create to reject an unsatisfiable engine constraint")
	}

	if _, err := Create(WithMinEngineVersion(">=1.0.0")); err != nil {
		t.Fatalf("Create rejected a satisfiable constraint: %v", err)
	}
}
