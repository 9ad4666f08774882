package commands

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
	"github.com/tlsfgo/tlsfgo/pkg/tlsf/backing"
	"github.com/tlsfgo/tlsfgo/statsexport"
)

// StatsdCommand runs a fresh instance behind an HTTP/3 statsexport.Server
// until interrupted, serving its Stats/Check snapshot at GET /stats.
type StatsdCommand struct {
	*BaseCommand
}

// NewStatsdCommand creates the statsd command handler.
func NewStatsdCommand() *StatsdCommand {
	return &StatsdCommand{
		BaseCommand: NewBaseCommand(
			"Serve a Stats/Check snapshot over HTTP/3",
			"usage: tlsfctl statsd -addr host:port -cert f -key f [-pool bytes]",
		),
	}
}

// Execute starts the server described by args and blocks until
// SIGINT (os.Interrupt) or a fatal serve error.
func (c *StatsdCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("statsd", flag.ContinueOnError)
	addr := fs.String("addr", ":4443", "address to bind the HTTP/3 listener")
	certFile := fs.String("cert", "", "TLS certificate file (required)")
	keyFile := fs.String("key", "", "TLS key file (required)")
	poolSize := fs.Int("pool", 1<<20, "bytes in the initial pool")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *certFile == "" || *keyFile == "" {
		return fmt.Errorf("statsd: -cert and -key are required")
	}

	cert, err := tls.LoadX509KeyPair(*certFile, *keyFile)
	if err != nil {
		return fmt.Errorf("statsd: load TLS keypair: %w", err)
	}

	inst, err := tlsf.Create(tlsf.WithSource(backing.NewHeap()), tlsf.WithGrowthIncrement(uintptr(*poolSize)))
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	if _, err := inst.Alloc(128); err != nil {
		return fmt.Errorf("probe allocation: %w", err)
	}

	srv := statsexport.New(*addr, &tls.Config{Certificates: []tls.Certificate{cert}}, inst)

	realAddr, err := srv.Start()
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "tlsfctl statsd: serving /stats on %s\n", realAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case <-sig:
	case err := <-srv.Error():
		fmt.Fprintf(os.Stderr, "tlsfctl statsd: %v\n", err)
	}

	return srv.Stop()
}
