package tlsf

import (
	"fmt"
	"strings"
)

// Stats is a point-in-time snapshot of an instance's pools.
type Stats struct {
	FreeSize  uintptr
	UsedSize  uintptr
	TotalSize uintptr

	PoolCount int

	MallocCount uint64
	FreeCount   uint64
}

// Stats walks every pool's physical block list and totals free versus
// used bytes. It never mutates the instance and is safe to call at any
// time between Alloc/Free calls.
func (t *T) Stats() Stats {
	s := Stats{
		PoolCount:   len(t.poolRoots),
		MallocCount: t.mallocCount,
		FreeCount:   t.freeCount,
	}

	for _, root := range t.poolRoots {
		for b := root; !b.isLast(); b = blockNext(b) {
			if b.isFree() {
				s.FreeSize += b.size()
			} else {
				s.UsedSize += b.size()
			}
		}
	}

	s.TotalSize = s.FreeSize + s.UsedSize

	return s
}

// CheckError collects every integrity violation Check found in a single
// pass, rather than stopping at the first one.
type CheckError struct {
	Problems []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("tlsf: %d integrity violation(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Check walks every pool's physical block list and every (fl, sl) slot of
// the free-list index, verifying the invariants this package depends on:
//
//   - every block is word-sized and word-aligned (invariant 5);
//   - no two physically-adjacent blocks are both free, since eager
//     coalescing should already have merged them (P1);
//   - every block's is_prev_free bit agrees with its predecessor's actual
//     free state (P2);
//   - every block linked into free-list class (fl, sl) is actually free,
//     is at least blockSizeMin, and maps back to that exact (fl, sl) via
//     mappingInsert -- and, conversely, that every block the physical walk
//     found free is indexed somewhere in the free-list (P3);
//   - slBitmap[fl] bit sl is set iff list (fl, sl) is non-empty, and
//     flBitmap bit fl is set iff any of slBitmap[fl] is set (P4);
//   - each pool's free_size + used_size still equals the capacity
//     recorded when the pool was added, not a value re-derived from the
//     same walk being checked (P7).
//
// It also checks the supplemented free_count <= malloc_count bookkeeping
// invariant.
//
// With Config.AssertOnCheck set, Check panics with a Fault on the first
// violation instead of collecting a report; otherwise it returns every
// violation found as a single *CheckError, or nil if none were found.
func (t *T) Check() error {
	var problems []string

	record := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if t.assertOnCheck {
			panic(Fault{Op: "Check", Msg: msg})
		}

		problems = append(problems, msg)
	}

	if t.freeCount > t.mallocCount {
		record("free count %d exceeds malloc count %d", t.freeCount, t.mallocCount)
	}

	physicalFree := make(map[*block]bool)
	physicalFreeBytes := uintptr(0)

	for i, root := range t.poolRoots {
		if root.isPrevFree() {
			record("pool %d: root block has is_prev_free set", i)
		}

		prevFree := false
		nodeCount := 0
		sumSizes := uintptr(0)

		for b := root; ; {
			nodeCount++
			sumSizes += b.size()

			if b.size()%wordSize != 0 {
				record("pool %d: block at %p has misaligned size %d", i, b, b.size())
			}

			if b.isFree() {
				physicalFree[b] = true
				physicalFreeBytes += b.size()

				if prevFree {
					record("pool %d: two physically-adjacent free blocks were not coalesced", i)
				}
			}

			if b.isLast() {
				break
			}

			next := blockNext(b)
			if next.isPrevFree() != b.isFree() {
				record("pool %d: is_prev_free mismatch between a block and its successor", i)
			}

			prevFree = b.isFree()
			b = next
		}

		// nodeCount includes the zero-size sentinel; every split beyond
		// the pool's original single block consumes one blockOverhead
		// word from its capacity for the new block's header (see
		// splitcoalesce.go's split), so capacity is recoverable from the
		// current blocks only by adding that overhead back in per split.
		realBlocks := nodeCount - 1

		want := sumSizes + uintptr(realBlocks-1)*blockOverhead
		if capacity := t.poolCapacity[root]; want != capacity {
			record("pool %d: free_size + used_size reconstructs to %d, want recorded capacity %d", i, want, capacity)
		}
	}

	listFree := 0
	listFreeBytes := uintptr(0)

	for fl := 0; fl < flIndexCount; fl++ {
		flNonEmpty := false

		for sl := 0; sl < slIndexCount; sl++ {
			head := t.fl.blocks[fl][sl]
			nonEmpty := head != &t.fl.null
			bitSet := t.fl.slBitmap[fl]&(1<<uint(sl)) != 0

			if bitSet != nonEmpty {
				record("free list (%d,%d): slBitmap bit is %v but list non-empty is %v", fl, sl, bitSet, nonEmpty)
			}

			if nonEmpty {
				flNonEmpty = true
			}

			for b := head; b != &t.fl.null; b = b.nextFree {
				listFree++
				listFreeBytes += b.size()

				if !b.isFree() {
					record("free list (%d,%d): linked block at %p is not marked free", fl, sl, b)
				}

				if b.size() < blockSizeMin {
					record("free list (%d,%d): linked block at %p has size %d below blockSizeMin", fl, sl, b, b.size())
				}

				if gotFl, gotSl := mappingInsert(b.size()); gotFl != fl || gotSl != sl {
					record("free list (%d,%d): block at %p of size %d maps to (%d,%d) via mappingInsert", fl, sl, b, b.size(), gotFl, gotSl)
				}

				if !physicalFree[b] {
					record("free list (%d,%d): block at %p is indexed but was not found free in any pool's physical walk", fl, sl, b)
				}
			}
		}

		flBitSet := t.fl.flBitmap&(1<<uint(fl)) != 0
		if flBitSet != flNonEmpty {
			record("flBitmap bit %d is %v but first-level class %d has a non-empty second-level list: %v", fl, flBitSet, fl, flNonEmpty)
		}
	}

	if listFree != len(physicalFree) {
		record("free-list index holds %d blocks but the physical walk found %d free blocks", listFree, len(physicalFree))
	}

	if listFreeBytes != physicalFreeBytes {
		record("free-list index totals %d free bytes but the physical walk found %d", listFreeBytes, physicalFreeBytes)
	}

	if len(problems) == 0 {
		return nil
	}

	return &CheckError{Problems: problems}
}
