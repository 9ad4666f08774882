// Package backing provides concrete tlsf.Source implementations: Heap,
// a portable fallback built on ordinary Go allocations, and Mmap, an
// anonymous-mapping source backed by golang.org/x/sys/unix on unix
// targets (falling back to Heap elsewhere).
package backing
