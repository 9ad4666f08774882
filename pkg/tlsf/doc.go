// Package tlsf implements a Two-Level Segregated Fit (TLSF) memory
// allocator: O(1) allocate/free/realloc over one or more pools obtained
// lazily from an external backing Source, with eager coalescing and a
// two-tier segregated free-list index.
//
// WARNING: a *T is NOT safe for concurrent use. All calls against a given
// instance must be serialized by the caller.
package tlsf
