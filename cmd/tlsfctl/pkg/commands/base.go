// Package commands implements the tlsfctl subcommands: bench (a
// synthetic alloc/free workload), inspect (a one-shot Stats/Check dump
// against a fresh in-process instance), watch (a heapwatch.Watcher
// front-end), and statsd (a statsexport.Server front-end).
package commands

import (
	"fmt"
	"os"
)

// BaseCommand provides the description/usage plumbing shared by every
// subcommand.
type BaseCommand struct {
	description string
	usage       string
}

// NewBaseCommand creates a base command with the given description and
// usage text.
func NewBaseCommand(description, usage string) *BaseCommand {
	return &BaseCommand{description: description, usage: usage}
}

func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

func (c *BaseCommand) PrintUsage() {
	fmt.Fprintf(os.Stderr, "%s\n", c.usage)
}

// Handler is implemented by every subcommand.
type Handler interface {
	Description() string
	Usage() string
	Execute(args []string) error
}
