package frame

import (
	"github.com/a68/core"
	"github.com/a68/diag"
)

// DefaultMaxDepth bounds the number of simultaneously open frames
// before the stack reports a fatal "program too complex" condition
// (§4.5 "a low-stack check raises a fatal ... if either frame or
// expression stack is near its limit").
const DefaultMaxDepth = 100000

// Stack is a contiguous chain of activation records (§4.5). It is the
// evaluator's call stack: frames are opened on entry to any
// range-introducing construct (closed clause, routine call, loop
// iteration) and closed on exit.
type Stack struct {
	base *Frame
	tos  *Frame

	nextNumber int
	depth      int
	MaxDepth   int

	// HeapCheck is called on every frame open, giving the heap package
	// a chance to run a preemptive collection before the new frame
	// commits (§4.5 "a preemptive heap check may trigger garbage
	// collection"). Left nil, no check is performed.
	HeapCheck func()
}

// NewStack creates an empty frame stack.
func NewStack() *Stack {
	return &Stack{MaxDepth: DefaultMaxDepth}
}

// Current returns the top-of-stack (innermost) frame.
func (st *Stack) Current() *Frame {
	if st.tos == nil {
		panic("frame: attempt to access frame from empty stack")
	}
	return st.tos
}

// Globals returns the outermost frame, holding the standard environ
// and global declarations.
func (st *Stack) Globals() *Frame {
	if st.base == nil {
		panic("frame: attempt to access global frame from empty stack")
	}
	return st.base
}

// Depth reports the number of currently open frames.
func (st *Stack) Depth() int {
	return st.depth
}

// Open pushes a new static frame (closed clause, loop body, collateral
// range...) at the given lexical level. Its static link is computed by
// walking the current frame's static-link chain back to the frame at
// level-1 (the enclosing range), or left nil when level is 0 (opening
// the global scope itself). Returns a stack-overflow RuntimeError
// instead of opening the frame if the depth limit is reached (§4.5).
func (st *Stack) Open(name string, node core.Node, level int) (*Frame, error) {
	if st.HeapCheck != nil {
		st.HeapCheck()
	}
	if st.depth >= st.MaxDepth {
		return nil, diag.NewRuntimeError(node, diag.KeyStackOverflow, "program too complex: frame stack exhausted")
	}
	f := newFrame(name, node, level)
	f.DynamicLink = st.tos
	if st.tos == nil {
		st.base = f
	} else {
		f.StaticLink = st.findEnclosingStatic(level)
		f.ParameterLevel = st.tos.ParameterLevel
	}
	st.push(f)
	return f, nil
}

// OpenProcedureFrame pushes a new frame for a PROC invocation. Its
// static link is the routine's *captured* environ (the frame active
// when the routine value was formed) rather than the caller's frame,
// per §4.5 "Opening a procedure frame: static link is the callee's
// environ ... rather than the caller".
func (st *Stack) OpenProcedureFrame(name string, node core.Node, level int, capturedEnviron, params *Frame) (*Frame, error) {
	if st.HeapCheck != nil {
		st.HeapCheck()
	}
	if st.depth >= st.MaxDepth {
		return nil, diag.NewRuntimeError(node, diag.KeyStackOverflow, "program too complex: frame stack exhausted")
	}
	f := newFrame(name, node, level)
	f.DynamicLink = st.tos
	f.StaticLink = capturedEnviron
	f.ParametersLink = params
	f.IsProcedureFrame = true
	f.ParameterLevel = level
	if st.tos != nil {
		f.ThreadID = st.tos.ThreadID
	}
	st.push(f)
	return f, nil
}

func (st *Stack) push(f *Frame) {
	st.nextNumber++
	f.Number = st.nextNumber
	st.tos = f
	st.depth++
	T().P("frame", f.Name).Debugf("opening frame #%d at level %d", f.Number, f.Level)
}

// Close pops and returns the current frame, restoring the frame
// pointer from its dynamic link (§4.5 "Closing a frame").
func (st *Stack) Close() *Frame {
	if st.tos == nil {
		panic("frame: attempt to close frame from empty stack")
	}
	popped := st.tos
	T().Debugf("closing frame [%s]", popped.Name)
	st.tos = popped.DynamicLink
	st.depth--
	return popped
}

// findEnclosingStatic walks the current frame's static-link chain
// looking for the frame one level up from level, i.e. the frame a
// fresh range at level should nest under. When the current frame is
// already at level-1 it is returned directly.
func (st *Stack) findEnclosingStatic(level int) *Frame {
	f := st.tos
	for f != nil {
		if f.Level == level-1 {
			return f
		}
		f = f.StaticLink
	}
	return st.tos
}

// FindFrameForLevel walks the static-link chain from the current frame
// to find the frame whose lexical level equals L, per §4.5 "Non-local
// access: given a reference at lexical level L ... walk static-link
// chain from current frame until a frame of level L is found".
func (st *Stack) FindFrameForLevel(level int) *Frame {
	f := st.tos
	for f != nil {
		if f.Level == level {
			return f
		}
		f = f.StaticLink
	}
	return nil
}

// FindLabelFrame walks the dynamic-link chain from the current frame
// looking for a frame that declares name as a jump target, per §4.5
// "Non-local jumps ... a JUMP unwinds the dynamic-link chain until a
// frame whose lexical level matches the label's level is found".
func (st *Stack) FindLabelFrame(name string) (*Frame, core.Node, bool) {
	f := st.tos
	for f != nil {
		if node, ok := f.CatchLabel(name); ok {
			return f, node, true
		}
		f = f.DynamicLink
	}
	return nil, nil, false
}

// UnwindTo pops frames down to and including every frame above target,
// leaving target as the new top-of-stack. This is the frame-stack side
// of performing a non-local JUMP: the evaluator resumes execution at
// the label's node once the stack is back at the catching frame.
func (st *Stack) UnwindTo(target *Frame) {
	for st.tos != nil && st.tos != target {
		st.Close()
	}
}
