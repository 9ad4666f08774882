// Command tlsfctl is a small operator CLI around the tlsf package: a
// throughput benchmark, a one-shot instance inspector, a heapwatch
// dump-on-trigger watcher and an HTTP/3 stats server, dispatched
// with the same flat switch-on-os.Args style the rest of this module's
// tooling uses rather than a third-party CLI framework.
package main

import (
	"fmt"
	"os"

	"github.com/tlsfgo/tlsfgo/cmd/tlsfctl/pkg/commands"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var handler commands.Handler

	switch sub {
	case "help", "-h", "--help":
		usage()
		return
	case "bench":
		handler = commands.NewBenchCommand()
	case "inspect":
		handler = commands.NewInspectCommand()
	case "watch":
		handler = commands.NewWatchCommand()
	case "statsd":
		handler = commands.NewStatsdCommand()
	default:
		fmt.Fprintf(os.Stderr, "tlsfctl: unknown command %q\n", sub)
		usage()
		os.Exit(1)
	}

	if err := handler.Execute(args); err != nil {
		fmt.Fprintf(os.Stderr, "tlsfctl %s: %v\n", sub, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `tlsfctl - operator tools for the tlsf allocator

Usage:
  tlsfctl bench    [-pool bytes] [-ops n] [-max bytes]
  tlsfctl inspect  [-pool bytes]
  tlsfctl watch    -dir path [-pool bytes]
  tlsfctl statsd   -addr host:port -cert f -key f [-pool bytes]
  tlsfctl help`)
}
