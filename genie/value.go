// Package genie implements the tree-walking evaluator (§4.7 of the
// specification, historically "the genie"): a recursive descent over
// an already mode-checked, scope-checked tree that consumes the
// check.Annotations side table the analyser produced and drives the
// frame.Stack and heap.Heap collaborators.
package genie

import (
	"fmt"

	"github.com/a68/core"
	"github.com/a68/frame"
	"github.com/a68/heap"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

// Bound is one dimension's lower/upper index of a row value (§3.5).
type Bound struct {
	Lower, Upper int64
}

// RowValue is the runtime representation of a ROW/FLEX value: the
// element mode, dimensionality, per-dimension bounds, and the flat
// element storage (§3.5 "Descriptor": element size, bounds, strides,
// payload, here strides are implicit since Elems is already flat and
// row-major, there being no raw byte payload to stride over).
type RowValue struct {
	ElemMode mode.ModeId
	Dim      int
	Bounds   []Bound
	Elems    []Value
}

// StructValue is the runtime representation of a STRUCT value: field
// values parallel to the owning mode's Fields pack, by position.
type StructValue struct {
	Fields []Value
}

// UnionValue is the runtime representation of a UNION value: the
// ModeId of the alternative actually held, plus its payload. Held is
// set by the uniting coercion; no evaluator path compares it against a
// specifier's mode (evalCaseClause selects a branch by integer
// position).
type UnionValue struct {
	Held    mode.ModeId
	Payload Value
}

// Routine is the runtime representation of a PROC value: either a
// closure over a user RoutineText (Node/Params/Closure set, Native
// nil) or a standard-environ primitive (Native set, Node/Params/
// Closure unused).
type Routine struct {
	Node    core.Node     // the RoutineText node; its last child is the body
	Mode    mode.ModeId   // the PROC mode
	Params  []*symtab.Tag // formal-parameter tags, in declaration order
	Closure *frame.Frame  // frame active when the routine value was formed (§4.5 "static link is the callee's environ")

	Native func(e *Evaluator, args []Value) (Value, error)
}

// Value is the genie's universal runtime value: a small tagged union
// covering every Algol 68 mode kind. Only the fields relevant to
// Mode's Kind are meaningful; the rest sit at their zero value. Cell,
// when non-nil, marks this Value as a name (REF mode): the storage it
// refers to, which may live in a frame's local table (stack-lifetime,
// reclaimed automatically when the frame is forgotten) or in the heap
// store (Handle also set, tracked by heap.Heap's mark-sweep collector,
// §4.6). This unifies "a pointer into a frame slot" and "a pointer
// into heap-allocated storage" behind one representation, since both
// are simply a stable *Value the evaluator can read or overwrite.
type Value struct {
	Mode mode.ModeId

	Int  int64
	Real float64
	Bool bool
	Char rune
	Bits uint64

	Cell   *Value
	Handle *heap.Handle

	Row    *RowValue
	Struct *StructValue
	Union  *UnionValue
	Proc   *Routine
	Sema   *Semaphore
}

// Semaphore is the runtime value of a SEMA, a buffered channel of
// permits standing in for the original's counting semaphore (§5 "PAR
// clause", §9 DESIGN NOTES "Global mutable state" generalised to a
// per-value resource instead of a single global).
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a semaphore initialised with level permits.
func NewSemaphore(level int) *Semaphore {
	s := &Semaphore{permits: make(chan struct{}, level)}
	for i := 0; i < level; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Down acquires one permit, blocking until one is available.
func (s *Semaphore) Down() { <-s.permits }

// Up releases one permit.
func (s *Semaphore) Up() { s.permits <- struct{}{} }

func (v Value) String() string {
	switch {
	case v.Cell != nil:
		return fmt.Sprintf("<name mode=%d>", v.Mode)
	case v.Row != nil:
		return fmt.Sprintf("<row mode=%d len=%d>", v.Mode, len(v.Row.Elems))
	case v.Struct != nil:
		return fmt.Sprintf("<struct mode=%d>", v.Mode)
	case v.Union != nil:
		return fmt.Sprintf("<union mode=%d held=%d>", v.Mode, v.Union.Held)
	case v.Proc != nil:
		return fmt.Sprintf("<proc mode=%d>", v.Mode)
	default:
		return fmt.Sprintf("<value mode=%d int=%d real=%g bool=%t char=%q>", v.Mode, v.Int, v.Real, v.Bool, v.Char)
	}
}

// Zero builds the default value of mode m, used to initialise a
// variable declaration with no initialiser and the backing storage of
// a generator (§4.7 "Generators"). Scalar modes default to their Go
// zero value; STRUCT eagerly zeroes every field (a struct is never
// "uninitialised" as a whole, only field by field); every other
// composite kind (ROW, REF, PROC, UNION) starts out with its payload
// pointer nil, an explicit "uninitialised" state: dereferencing such a
// name or slicing such a row reports diag.KeyUninitialisedAccess, and
// calling or deproceduring such a PROC reports diag.KeyNilAccess.
func Zero(m mode.ModeId, table *mode.Table) Value {
	md := table.Get(m)
	if md.Kind == mode.Struct {
		fields := make([]Value, len(md.Fields))
		for i, f := range md.Fields {
			fields[i] = Zero(f.Mode, table)
		}
		return Value{Mode: m, Struct: &StructValue{Fields: fields}}
	}
	return Value{Mode: m}
}
