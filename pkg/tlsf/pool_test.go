package tlsf

import "testing"

func TestAddPoolProducesOneFreeBlock(t *testing.T) {
	arena := newTestArena(t, 4096/int(wordSize))

	var fl freeList
	fl.init()

	root, capacity := addPool(&fl, arena, 4096, true)

	if !root.isFree() {
		t.Fatal("pool root is not free")
	}

	if root.isPrevFree() {
		t.Fatal("pool root has no predecessor; is_prev_free must be false")
	}

	next := blockNext(root)
	if !next.isLast() {
		t.Fatal("expected the sentinel immediately after a freshly added pool")
	}

	if !next.isPrevFree() {
		t.Fatal("sentinel's is_prev_free must mirror the root's free state")
	}

	if got := root.size(); got != 4096-poolOverhead {
		t.Fatalf("root.size() = %d, want %d", got, 4096-poolOverhead)
	}

	if capacity != 4096-poolOverhead {
		t.Fatalf("capacity = %d, want %d", capacity, 4096-poolOverhead)
	}
}

func TestAddPoolTooSmallPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an undersized pool region")
		}
	}()

	arena := newTestArena(t, 4)

	var fl freeList
	fl.init()

	_, _ = addPool(&fl, arena, poolOverhead, true)
}

func TestRemovePoolRejectsNonemptyPool(t *testing.T) {
	arena := newTestArena(t, 4096/int(wordSize))

	var fl freeList
	fl.init()

	root, _ := addPool(&fl, arena, 4096, true)
	fl.blockRemove(root)
	trimFree(&fl, root, smallBlockSize)
	setFree(root, false)

	if removePool(&fl, root) {
		t.Fatal("removePool accepted a pool with a live allocation")
	}
}

func TestRemovePoolAcceptsUntouchedPool(t *testing.T) {
	arena := newTestArena(t, 4096/int(wordSize))

	var fl freeList
	fl.init()

	root, _ := addPool(&fl, arena, 4096, true)

	if !removePool(&fl, root) {
		t.Fatal("removePool rejected a fully free, untouched pool")
	}

	l, s := mappingInsert(root.size())
	if got, _, _ := fl.search(l, s); got == root {
		t.Fatal("removePool left the root block in the free-list index")
	}
}
