package tlsf_test

import (
	"testing"
	"unsafe"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
	"github.com/tlsfgo/tlsfgo/pkg/tlsf/backing"
)

func TestInstanceGrowsFromHeapSource(t *testing.T) {
	src := backing.NewHeap()

	inst, err := tlsf.Create(tlsf.WithSource(src), tlsf.WithGrowthIncrement(1<<16))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const count = 2000

	live := make([]unsafe.Pointer, 0, count)

	for i := 0; i < count; i++ {
		ptr, err := inst.Alloc(128)
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}

		live = append(live, ptr)
	}

	if err := inst.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}

	stats := inst.Stats()
	if stats.PoolCount < 2 {
		t.Fatalf("PoolCount = %d, want at least 2 pools after growth", stats.PoolCount)
	}

	if stats.MallocCount != count {
		t.Fatalf("MallocCount = %d, want %d", stats.MallocCount, count)
	}

	for _, ptr := range live {
		inst.Free(ptr)
	}

	if got := inst.Stats().PoolCount; got != 0 {
		t.Fatalf("PoolCount after draining every grown pool = %d, want 0", got)
	}

	inst.Destroy()
}

func TestPoolGrowthThenReclaim(t *testing.T) {
	src := backing.NewHeap()

	inst, err := tlsf.Create(tlsf.WithSource(src), tlsf.WithGrowthIncrement(512))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := inst.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if got := inst.Stats().PoolCount; got != 1 {
		t.Fatalf("PoolCount after first allocation = %d, want 1", got)
	}

	second, err := inst.Alloc(4096)
	if err != nil {
		t.Fatalf("Alloc requiring a second pool: %v", err)
	}

	if got := inst.Stats().PoolCount; got != 2 {
		t.Fatalf("PoolCount after growth = %d, want 2", got)
	}

	inst.Free(second)

	if got := inst.Stats().PoolCount; got != 1 {
		t.Fatalf("PoolCount after freeing the grown pool's only block = %d, want 1", got)
	}

	inst.Free(first)

	if got := inst.Stats().PoolCount; got != 0 {
		t.Fatalf("PoolCount after draining the initial pool = %d, want 0", got)
	}

	inst.Destroy()
}
