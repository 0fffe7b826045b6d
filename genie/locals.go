package genie

import (
	"github.com/a68/core"
	"github.com/a68/frame"
	"github.com/a68/heap"
)

// Locals is the out-of-band value store keyed by (frame, owning tree
// node) pairs. frame.Frame (§3.7) carries only the activation-record
// links; the safer design spec.md's DESIGN NOTES calls for under
// "Activation records" ("each frame prefix is accessed through a
// small typed view") is implemented here as a side table of typed
// Values, the same out-of-band idiom check.Annotations uses for the
// read-only core.Node (§6.1). The owning node is either a declared
// identifier's defining occurrence (symtab.Tag.Decl) or, for an
// anonymous LOC generator, the generator node itself.
type Locals struct {
	frames map[*frame.Frame]map[core.Node]*Value
}

// NewLocals creates an empty value store.
func NewLocals() *Locals {
	return &Locals{frames: make(map[*frame.Frame]map[core.Node]*Value)}
}

// Cell returns the storage cell owner occupies within f, creating an
// empty one (zero Value) on first access.
func (l *Locals) Cell(f *frame.Frame, owner core.Node) *Value {
	byOwner, ok := l.frames[f]
	if !ok {
		byOwner = make(map[core.Node]*Value)
		l.frames[f] = byOwner
	}
	v, ok := byOwner[owner]
	if !ok {
		v = &Value{}
		byOwner[owner] = v
	}
	return v
}

// Forget discards every cell belonging to f, called when f is closed
// (§4.5 "Closing a frame") so a popped frame's cells neither leak
// memory nor keep reporting stale roots to the heap's mark phase.
func (l *Locals) Forget(f *frame.Frame) {
	delete(l.frames, f)
}

// Roots implements the heap.Heap.Roots hook (§4.6 "Root set: every ...
// frame whose declared mode contains a REF or ROW"): every live cell
// in every still-open frame is walked for heap handles it reaches.
func (l *Locals) Roots() []*heap.Handle {
	var out []*heap.Handle
	for _, byOwner := range l.frames {
		for _, v := range byOwner {
			collectHandles(*v, &out)
		}
	}
	return out
}

// collectHandles appends every heap.Handle reachable from v to out,
// recursing into row elements, struct fields and union payloads. A
// name value's Cell is deliberately not followed: the storage it
// points at is either another frame cell (already a root of its own)
// or heap-backed (already reachable via Handle), so following Cell too
// would only duplicate work, not extend reachability.
func collectHandles(v Value, out *[]*heap.Handle) {
	if v.Handle != nil {
		*out = append(*out, v.Handle)
	}
	if v.Row != nil {
		for _, e := range v.Row.Elems {
			collectHandles(e, out)
		}
	}
	if v.Struct != nil {
		for _, f := range v.Struct.Fields {
			collectHandles(f, out)
		}
	}
	if v.Union != nil {
		collectHandles(v.Union.Payload, out)
	}
}

// heapStore is the payload store for heap-allocated names: heap.Handle
// (§3.8) carries only raw Payload bytes plus Refs for mark, so the
// evaluator keeps the actual typed Value a handle denotes in its own
// side table, the same pattern Locals uses for frame cells.
type heapStore struct {
	values map[*heap.Handle]*Value
}

func newHeapStore() *heapStore {
	return &heapStore{values: make(map[*heap.Handle]*Value)}
}

// Get returns h's storage cell, creating an empty one on first access.
func (s *heapStore) Get(h *heap.Handle) *Value {
	v, ok := s.values[h]
	if !ok {
		v = &Value{}
		s.values[h] = v
	}
	return v
}
