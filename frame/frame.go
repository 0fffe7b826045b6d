// Package frame implements the activation-record stack (§3.7, §4.5):
// a chain of frames linked by static link (lexical enclosure), dynamic
// link (call chain) and parameters link (actual-parameter frame for a
// PROC call). Per-identifier storage lives out-of-band, keyed by frame
// and declaring node; see genie.Locals.
package frame

import (
	"fmt"

	"github.com/a68/core"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// Frame is one activation record: the header links the evaluator walks
// for non-local access and non-local jumps (§4.5). Identifier values
// are not stored here; the evaluator keeps them in genie.Locals, keyed
// by (frame, declaring node).
type Frame struct {
	Name string

	StaticLink     *Frame // enclosing lexical frame; defines non-local access (§4.5)
	DynamicLink    *Frame // caller's frame; restored on close
	ParametersLink *Frame // frame holding the actual parameters of a PROC call

	Node core.Node // tree node that opened this frame (routine text, closed clause, loop...)

	Number         int // unique, monotonically increasing per stack
	Level          int // lexical level (§3.3/§4.2)
	ParameterLevel int // lexical level of the innermost enclosing PROC

	IsProcedureFrame bool
	ThreadID         int // which PAR arm opened this frame; 0 on the main thread

	// Labels are the jump targets declared directly in this frame's
	// range. A non-local JUMP unwinds the dynamic-link chain until it
	// finds a frame whose Labels contains the target name, then the
	// evaluator resumes at that label's node (§4.5 "Non-local jumps").
	Labels map[string]core.Node
}

func newFrame(name string, node core.Node, level int) *Frame {
	return &Frame{
		Name:   name,
		Node:   node,
		Level:  level,
		Labels: make(map[string]core.Node),
	}
}

func (f *Frame) String() string {
	return fmt.Sprintf("<frame %s#%d@%d>", f.Name, f.Number, f.Level)
}

// IsRoot reports whether this is the outermost (global) frame.
func (f *Frame) IsRoot() bool {
	return f.DynamicLink == nil
}

// DeclareLabel records name as a valid non-local jump target landing in
// this frame, pointing at the label's tree node.
func (f *Frame) DeclareLabel(name string, node core.Node) {
	f.Labels[name] = node
}

// CatchLabel reports whether name is a jump target declared in this
// frame's own range, returning the label's node if so.
func (f *Frame) CatchLabel(name string) (core.Node, bool) {
	n, ok := f.Labels[name]
	return n, ok
}
