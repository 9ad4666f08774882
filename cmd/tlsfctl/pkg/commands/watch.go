package commands

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/tlsfgo/tlsfgo/devtool/heapwatch"
	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
	"github.com/tlsfgo/tlsfgo/pkg/tlsf/backing"
)

// WatchCommand runs a fresh instance under a heapwatch.Watcher until
// interrupted, so an operator can drop *.dumpreq trigger files into the
// watched directory and read back a Stats/Check snapshot.
type WatchCommand struct {
	*BaseCommand
}

// NewWatchCommand creates the watch command handler.
func NewWatchCommand() *WatchCommand {
	return &WatchCommand{
		BaseCommand: NewBaseCommand(
			"Watch a directory for *.dumpreq trigger files",
			"usage: tlsfctl watch -dir path [-pool bytes]",
		),
	}
}

// Execute runs the watch loop described by args until SIGINT
// (os.Interrupt).
func (c *WatchCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory to watch for *.dumpreq trigger files")
	poolSize := fs.Int("pool", 1<<20, "bytes in the initial pool")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dir == "" {
		return fmt.Errorf("watch: -dir is required")
	}

	inst, err := tlsf.Create(tlsf.WithSource(backing.NewHeap()), tlsf.WithGrowthIncrement(uintptr(*poolSize)))
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	if _, err := inst.Alloc(128); err != nil {
		return fmt.Errorf("probe allocation: %w", err)
	}

	w, err := heapwatch.New(inst, *dir)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	fmt.Fprintf(os.Stderr, "tlsfctl watch: watching %s for *.dumpreq triggers\n", w.Dir())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	for {
		select {
		case <-sig:
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}

			fmt.Fprintf(os.Stderr, "tlsfctl watch: %v\n", err)
		}
	}
}
