package commands

import (
	"flag"
	"fmt"
	"math/rand"
	"time"
	"unsafe"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
	"github.com/tlsfgo/tlsfgo/pkg/tlsf/backing"
)

// BenchCommand runs a synthetic randomized alloc/free workload against a
// single in-process instance and reports throughput plus a final Stats
// snapshot.
type BenchCommand struct {
	*BaseCommand
}

// NewBenchCommand creates the bench command handler.
func NewBenchCommand() *BenchCommand {
	return &BenchCommand{
		BaseCommand: NewBaseCommand(
			"Run a synthetic allocation workload",
			"usage: tlsfctl bench [-pool bytes] [-ops n] [-max bytes]",
		),
	}
}

// Execute runs the workload described by args.
func (c *BenchCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	poolSize := fs.Int("pool", 16<<20, "bytes in the initial pool")
	ops := fs.Int("ops", 200000, "number of alloc/free operations to run")
	maxSize := fs.Int("max", 4096, "maximum single allocation size")

	if err := fs.Parse(args); err != nil {
		return err
	}

	inst, err := tlsf.Create(tlsf.WithSource(backing.NewHeap()), tlsf.WithGrowthIncrement(uintptr(*poolSize)))
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var live []unsafe.Pointer

	start := time.Now()

	for i := 0; i < *ops; i++ {
		if len(live) == 0 || rng.Intn(2) == 0 {
			size := uintptr(1 + rng.Intn(*maxSize))

			ptr, err := inst.Alloc(size)
			if err != nil {
				continue
			}

			live = append(live, ptr)
		} else {
			idx := rng.Intn(len(live))
			inst.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}

	elapsed := time.Since(start)

	for _, ptr := range live {
		inst.Free(ptr)
	}

	stats := inst.Stats()

	fmt.Printf("ops=%d elapsed=%s ops/sec=%.0f malloc=%d free=%d pools=%d\n",
		*ops, elapsed, float64(*ops)/elapsed.Seconds(), stats.MallocCount, stats.FreeCount, stats.PoolCount)

	return nil
}
