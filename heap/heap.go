package heap

import (
	"github.com/a68/mode"
	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// Thresholds for the preemptive collection trigger (§4.6): a scan at
// allocation time schedules a collection at the next frame-open once
// either crosses its mark.
const (
	OccupancyHighWater = 0.80 // heap occupancy at or above this triggers a scheduled collection
	FreeHandleLowWater = 0.20 // free/total handle ratio at or below this triggers one
)

// Heap is the collected store of row and name values (§3.8, §4.6). All
// access goes through Handle references; Payload pointers are never
// handed out across a potential collection point.
type Heap struct {
	busy *doublylinkedlist.List // *Handle, currently reachable or assumed reachable
	free *doublylinkedlist.List // *Handle, reclaimed and available for reuse

	totalBytes int
	usedBytes  int
	nextID     int

	guard GCGuard

	// scheduled is set by a preemptive trigger check and consumed by
	// the next Collect call from a frame-open hook.
	scheduled bool

	// Roots supplies the current root set (§4.6 "Root set: every byte
	// in every live frame whose declared mode contains a REF or ROW"),
	// wired up by whatever owns both the Heap and the frame stack.
	Roots func() []*Handle
}

// NewHeap creates an empty heap with the given total byte budget.
func NewHeap(totalBytes int) *Heap {
	h := &Heap{
		busy:       doublylinkedlist.New(),
		free:       doublylinkedlist.New(),
		totalBytes: totalBytes,
	}
	return h
}

// Alloc reserves size bytes for a value of mode m, returning a fresh
// handle on the busy list. stowed marks payloads that themselves
// contain nested handle references (§4.6 "Stowed values").
func (h *Heap) Alloc(m mode.ModeId, size int, stowed bool) *Handle {
	h.checkPreemptiveTrigger()
	h.nextID++
	handle := &Handle{Payload: make([]byte, size), Mode: m, Stowed: stowed, id: h.nextID}
	h.busy.Add(handle)
	h.usedBytes += size
	T().P("handle", handle.String()).Debugf("allocated %d bytes", size)
	return handle
}

// checkPreemptiveTrigger samples occupancy and the free/total handle
// ratio, scheduling a collection at the next frame-open if either
// crosses its threshold (§4.6 "Preemptive trigger").
func (h *Heap) checkPreemptiveTrigger() {
	if h.totalBytes > 0 && float64(h.usedBytes)/float64(h.totalBytes) >= OccupancyHighWater {
		h.scheduled = true
		return
	}
	total := h.busy.Size() + h.free.Size()
	if total > 0 && float64(h.free.Size())/float64(total) <= FreeHandleLowWater {
		h.scheduled = true
	}
}

// MaybeCollect runs Collect if a previous allocation scheduled one; it
// is the hook installed as frame.Stack.HeapCheck so collection happens
// only at a frame-open suspension point (§4.6, §5 "Suspension points").
func (h *Heap) MaybeCollect() {
	if !h.scheduled {
		return
	}
	h.scheduled = false
	h.Collect()
}

// Collect runs one mark-sweep pass (§4.6). It is a no-op while the
// reentrancy guard is held, deferring to the next suspension point
// instead (§4.6 "Reentrancy lock").
func (h *Heap) Collect() {
	if h.guard.blocked() {
		h.scheduled = true
		return
	}
	T().Debugf("collection starting: %d busy, %d free handles", h.busy.Size(), h.free.Size())
	h.mark()
	h.sweep()
	T().Debugf("collection finished: %d busy, %d free handles", h.busy.Size(), h.free.Size())
}

func (h *Heap) mark() {
	it := h.busy.Iterator()
	for it.Next() {
		it.Value().(*Handle).unmark()
	}
	if h.Roots == nil {
		return
	}
	for _, root := range h.Roots() {
		h.markFrom(root)
	}
}

// markFrom follows ownership edges from a single root handle,
// recursing into stowed elements (§4.6 "Mark", "Stowed values").
func (h *Heap) markFrom(handle *Handle) {
	if handle == nil || handle.marked() {
		return
	}
	handle.mark()
	if handle.Stowed {
		for _, ref := range handle.Refs {
			h.markFrom(ref)
		}
	}
}

// sweep unlinks every unmarked, unpinned busy handle, moving it to the
// free list and releasing its payload bytes from the occupancy count
// (§4.6 "Sweep").
func (h *Heap) sweep() {
	survivors := doublylinkedlist.New()
	it := h.busy.Iterator()
	for it.Next() {
		handle := it.Value().(*Handle)
		if handle.marked() || handle.pinned() {
			survivors.Add(handle)
			continue
		}
		h.usedBytes -= len(handle.Payload)
		handle.Payload = nil
		h.free.Add(handle)
	}
	h.busy = survivors
}

// Stats reports the handle counts and byte occupancy, mostly useful
// for tests and diagnostics.
func (h *Heap) Stats() (busy, freeN, usedBytes int) {
	return h.busy.Size(), h.free.Size(), h.usedBytes
}
