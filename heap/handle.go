// Package heap implements a handle-indirected mark-sweep garbage
// collector for row and name (REF) values (§3.8, §4.6). Frames and
// other heap payloads never hold raw pointers into the heap; they hold
// Handle references, so the collector is free to compact and relocate
// payload storage.
package heap

import (
	"fmt"

	"github.com/a68/mode"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// StatusFlags are the per-handle bits (§3.8).
type StatusFlags uint8

const (
	// NoSweepMask is user-settable: it pins a handle that is retained
	// externally (e.g. reachable only via a reference the transput
	// library is holding onto across collections), so sweep must never
	// reclaim it regardless of reachability from the root set.
	NoSweepMask StatusFlags = 1 << iota
	// markBit is set by the collector's mark phase on every handle
	// reached while walking ownership edges from the root set; the
	// next mark phase clears it on every busy handle before walking
	// again. Not to be confused with
	// NoSweepMask (§4.6 "Mark").
	markBit
)

// Handle indirects a heap-allocated object (§3.8): a payload area, its
// size and mode, status flags, and the busy/free list links.
type Handle struct {
	Payload []byte
	Mode    mode.ModeId
	Flags   StatusFlags

	// Stowed reports whether Payload itself contains nested handle
	// references (a row of structured elements that contain REFs), so
	// the mark phase must walk element-by-element rather than treating
	// Payload as opaque bytes (§4.6 "Stowed values").
	Stowed bool
	Refs   []*Handle // nested handles reachable from this one, when Stowed

	id int
}

func (h *Handle) String() string {
	return fmt.Sprintf("<handle#%d mode=%d size=%d>", h.id, h.Mode, len(h.Payload))
}

// Pin sets the user-settable NO_SWEEP_MASK bit, so the handle survives
// collection regardless of reachability (§4.6).
func (h *Handle) Pin() {
	h.Flags |= NoSweepMask
}

// Unpin clears the user-settable NO_SWEEP_MASK bit.
func (h *Handle) Unpin() {
	h.Flags &^= NoSweepMask
}

func (h *Handle) pinned() bool {
	return h.Flags&NoSweepMask != 0
}

func (h *Handle) marked() bool {
	return h.Flags&markBit != 0
}

func (h *Handle) mark() {
	h.Flags |= markBit
}

func (h *Handle) unmark() {
	h.Flags &^= markBit
}
