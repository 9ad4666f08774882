// Package heapwatch watches a directory for dump-request trigger files
// and, for each one, writes a JSON snapshot of a tlsf instance's Stats
// and Check report next to it. It is meant for attaching to a
// long-running process during development: drop an empty
// "<anything>.dumpreq" file into the watched directory and a
// "<anything>.dump.json" report appears a moment later.
package heapwatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
)

const triggerSuffix = ".dumpreq"

// Snapshotter is the subset of *tlsf.T this package depends on, so tests
// can substitute a fake instance.
type Snapshotter interface {
	Stats() tlsf.Stats
	Check() error
}

// Report is the JSON document written for each trigger file.
type Report struct {
	Stats    tlsf.Stats `json:"stats"`
	Problems []string   `json:"problems,omitempty"`
}

// Watcher monitors one directory for trigger files: one fsnotify.Watcher,
// a background loop, and a buffered error channel the caller drains at
// its own pace.
type Watcher struct {
	w      *fsnotify.Watcher
	target Snapshotter
	dir    string
	errC   chan error
	done   chan struct{}
}

// New starts watching dir for files named "*.dumpreq". target supplies
// the Stats/Check data written into each report.
func New(target Snapshotter, dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("heapwatch: %w", err)
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("heapwatch: watching %s: %w", dir, err)
	}

	hw := &Watcher{
		w:      w,
		target: target,
		dir:    dir,
		errC:   make(chan error, 8),
		done:   make(chan struct{}),
	}

	go hw.loop()

	return hw, nil
}

func (hw *Watcher) loop() {
	for {
		select {
		case ev, ok := <-hw.w.Events:
			if !ok {
				return
			}

			if ev.Op&fsnotify.Create == 0 || !strings.HasSuffix(ev.Name, triggerSuffix) {
				continue
			}

			if err := hw.dump(ev.Name); err != nil {
				hw.reportErr(err)
			}
		case err, ok := <-hw.w.Errors:
			if !ok {
				return
			}

			hw.reportErr(err)
		case <-hw.done:
			return
		}
	}
}

func (hw *Watcher) reportErr(err error) {
	select {
	case hw.errC <- err:
	default:
	}
}

func (hw *Watcher) dump(trigger string) error {
	report := Report{Stats: hw.target.Stats()}

	if err := hw.target.Check(); err != nil {
		var ce *tlsf.CheckError
		if asCheckError(err, &ce) {
			report.Problems = ce.Problems
		} else {
			report.Problems = []string{err.Error()}
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("heapwatch: marshal report: %w", err)
	}

	out := strings.TrimSuffix(trigger, triggerSuffix) + ".dump.json"
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("heapwatch: write %s: %w", out, err)
	}

	return os.Remove(trigger)
}

func asCheckError(err error, target **tlsf.CheckError) bool {
	ce, ok := err.(*tlsf.CheckError)
	if ok {
		*target = ce
	}

	return ok
}

// Errors returns the channel of errors observed while watching or
// writing reports. The caller must drain it to avoid missing future
// errors once the buffer fills.
func (hw *Watcher) Errors() <-chan error { return hw.errC }

// Dir returns the directory being watched.
func (hw *Watcher) Dir() string { return filepath.Clean(hw.dir) }

// Close stops the watcher.
func (hw *Watcher) Close() error {
	close(hw.done)
	return hw.w.Close()
}
