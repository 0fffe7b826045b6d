package genie

import (
	"sync"

	"github.com/a68/check"
	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/frame"
	"github.com/a68/heap"
	"github.com/a68/mode"
	"github.com/a68/symtab"
	"github.com/a68/transput"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// Evaluator is the tree-walking genie (§4.7): it wires a mode table, a
// scope tree, the checker's Annotations, a frame stack and a heap
// together, and recursively evaluates a mode-checked, scope-checked
// tree under its own dispatch loop, grounded on terex/eval.go's
// Eval(Element, *Environment)-style recursive switch.
type Evaluator struct {
	Modes  *mode.Table
	Scopes *symtab.ScopeTree
	Binder *symtab.Binder
	Bag    *diag.Bag
	Ann    *check.Annotations

	Frames *frame.Stack
	Heap   *heap.Heap
	Locals *Locals
	Props  *Propagators

	// Transput is the injected transput collaborator (§6.2) that
	// InstallTransput's bootstrap "print"/"read" procedures delegate
	// to. Left nil, those procedures are a no-op rather than a panic,
	// so an evaluator built without I/O still runs any program that
	// never calls them.
	Transput transput.Library

	heap_ *heapStore

	// ScopeOf and Declarers are the same side channels check.Checker
	// uses (§4.2): ScopeOf returns the *symtab.Scope a range-
	// introducing node owns, Declarers resolves a declarer subtree to
	// the ModeId it denotes.
	ScopeOf   func(core.Node) *symtab.Scope
	Declarers func(core.Node) mode.ModeId

	// parMu coarsens every PAR arm's access to Frames/Heap/Locals to
	// one at a time (§5): true concurrency is limited to goroutine
	// scheduling interleaving at suspension points, not simultaneous
	// frame-stack mutation, since frame.Stack and heap.Heap are not
	// otherwise safe for concurrent access.
	parMu sync.Mutex
}

// NewEvaluator creates an evaluator over an already mode-checked tree.
// heapBytes is the simulated heap's total byte budget (§4.6).
func NewEvaluator(modes *mode.Table, scopes *symtab.ScopeTree, binder *symtab.Binder, bag *diag.Bag, ann *check.Annotations, heapBytes int) *Evaluator {
	e := &Evaluator{
		Modes:  modes,
		Scopes: scopes,
		Binder: binder,
		Bag:    bag,
		Ann:    ann,
		Frames: frame.NewStack(),
		Heap:   heap.NewHeap(heapBytes),
		Locals: NewLocals(),
		heap_:  newHeapStore(),
		Props:  NewPropagators(),
	}
	e.Heap.Roots = e.Locals.Roots
	e.Frames.HeapCheck = e.Heap.MaybeCollect
	return e
}

// scopeFor mirrors check.Checker.scopeFor: walk Parent links until
// ScopeOf returns a scope, falling back to the global scope.
func (e *Evaluator) scopeFor(node core.Node) *symtab.Scope {
	if e.ScopeOf == nil {
		return e.Scopes.Globals()
	}
	for n := node; n != nil; n = n.Parent() {
		if s := e.ScopeOf(n); s != nil {
			return s
		}
	}
	return e.Scopes.Globals()
}

func (e *Evaluator) lookupTag(node core.Node, name string) *symtab.Tag {
	scope := e.scopeFor(node)
	if tg := scope.Table.Resolve(core.Identifiers, name); tg != nil {
		return tg
	}
	return e.Binder.Resolve(scope, core.Identifiers, name, node)
}

func childrenOf(node core.Node) []core.Node {
	var out []core.Node
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, c)
	}
	return out
}

func lastChild(node core.Node) core.Node {
	var last core.Node
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		last = c
	}
	return last
}

func frameName(node core.Node) string {
	if s := node.Symbol(); s != "" {
		return s
	}
	return "range"
}

// Eval is the evaluator's single entry point: it consults the
// propagator cache before falling back to dispatch (§9 "Propagator
// caching").
func (e *Evaluator) Eval(node core.Node) (Value, error) {
	if node == nil {
		return Value{}, nil
	}
	if prop, ok := e.Props.Cached(node); ok {
		return prop(e, node)
	}
	v, prop, err := e.dispatch(node)
	if prop != nil {
		e.Props.Cache(node, prop)
	}
	return v, err
}

// coercedValue applies the coercion chain check.CheckUnit recorded for
// node, if any (§4.3.2).
func (e *Evaluator) coercedValue(node core.Node, v Value) (Value, error) {
	ann, ok := e.Ann.Lookup(node)
	if !ok || len(ann.Coercions) == 0 {
		return v, nil
	}
	return e.applyCoercions(node, v, ann.Coercions)
}

// dispatch deduces and evaluates node, dispatching on its grammatical
// attribute, and returns an optional specialised propagator to cache
// for subsequent evaluations of the same node.
func (e *Evaluator) dispatch(node core.Node) (Value, Propagator, error) {
	switch node.Attr() {
	case core.Denotation:
		v, err := e.evalDenotation(node)
		if err != nil {
			return Value{}, nil, err
		}
		return v, func(e *Evaluator, n core.Node) (Value, error) { return v, nil }, nil

	case core.Identifier:
		v, err := e.evalIdentifier(node)
		return v, nil, err

	case core.Cast:
		v, err := e.evalCast(node)
		return v, nil, err

	case core.Assignation:
		v, err := e.evalAssignation(node)
		return v, nil, err

	case core.IdentityRelation:
		v, err := e.evalIdentityRelation(node)
		return v, nil, err

	case core.Formula, core.MonadicFormula:
		v, err := e.evalFormula(node)
		return v, nil, err

	case core.ClosedClause:
		v, err := e.evalClosedClause(node)
		return v, nil, err

	case core.CollateralClause:
		v, err := e.evalCollateralClause(node)
		return v, nil, err

	case core.ConditionalClause:
		v, err := e.evalConditionalClause(node)
		return v, nil, err

	case core.CaseClause, core.ConformityClause:
		v, err := e.evalCaseClause(node)
		return v, nil, err

	case core.LoopClause:
		v, err := e.evalLoopClause(node)
		return v, nil, err

	case core.Call:
		v, err := e.evalCall(node)
		return v, nil, err

	case core.Slice:
		v, err := e.evalSlice(node)
		return v, nil, err

	case core.FieldSelection, core.Selection:
		v, err := e.evalFieldSelection(node)
		return v, nil, err

	case core.Generator:
		v, err := e.evalGenerator(node)
		return v, nil, err

	case core.RoutineText:
		v, err := e.evalRoutineText(node)
		return v, nil, err

	case core.ParallelClause:
		v, err := e.evalParallelClause(node)
		return v, nil, err

	case core.Jump:
		return Value{}, nil, &JumpSignal{Label: node.Symbol(), Origin: node}

	case core.IdentityDeclaration, core.ProcedureDeclaration:
		v, err := e.evalIdentityDeclaration(node)
		return v, nil, err

	case core.VariableDeclaration:
		v, err := e.evalVariableDeclaration(node)
		return v, nil, err

	case core.ModeDeclaration, core.OperatorDeclaration, core.PriorityDeclaration:
		// Purely static bookkeeping, already folded into mode.Table and
		// symtab by the analyser; nothing happens at evaluation time.
		return Value{Mode: e.Modes.Void}, nil, nil

	case core.SkipToken:
		return Value{Mode: mode.NoMode}, nil, nil

	case core.NihilToken:
		return Value{Mode: e.Modes.Void, Cell: nil}, nil, nil

	case core.Label:
		return Value{Mode: e.Modes.Void}, nil, nil

	default:
		return Value{Mode: e.Modes.Void}, nil, nil
	}
}

func (e *Evaluator) evalDenotation(node core.Node) (Value, error) {
	m := e.Ann.ModeOf(node)
	if m == mode.NoMode {
		m = e.Modes.Standard("INT", 0)
	}
	return parseDenotation(e.Modes, m, node.Symbol()), nil
}

func (e *Evaluator) evalIdentifier(node core.Node) (Value, error) {
	var tg *symtab.Tag
	if ann, ok := e.Ann.Lookup(node); ok && ann.Tag != nil {
		tg = ann.Tag
	} else {
		tg = e.lookupTag(node, node.Symbol())
	}
	tg.MarkUsed()
	f := e.Frames.FindFrameForLevel(tg.ScopeLevel)
	if f == nil {
		f = e.Frames.Current()
	}
	cell := e.Locals.Cell(f, tg.Decl)
	if m := e.Modes.Get(tg.Mode); m.Kind == mode.Ref {
		return Value{Mode: tg.Mode, Cell: cell}, nil
	}
	return *cell, nil
}

func (e *Evaluator) evalCast(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{}, nil
	}
	unit := kids[len(kids)-1]
	v, err := e.Eval(unit)
	if err != nil {
		return Value{}, err
	}
	return e.coercedValue(unit, v)
}

func (e *Evaluator) evalIdentityRelation(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) != 2 {
		return Value{Mode: e.Modes.Standard("BOOL", 0)}, nil
	}
	lv, err := e.Eval(kids[0])
	if err != nil {
		return Value{}, err
	}
	rv, err := e.Eval(kids[1])
	if err != nil {
		return Value{}, err
	}
	same := lv.Cell != nil && lv.Cell == rv.Cell
	if node.Symbol() == "/=:" || node.Symbol() == "ISNT" {
		same = !same
	}
	return Value{Mode: e.Modes.Standard("BOOL", 0), Bool: same}, nil
}

func (e *Evaluator) evalAssignation(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) != 2 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed assignation")
	}
	lhsNode, rhsNode := kids[0], kids[1]
	name, err := e.Eval(lhsNode)
	if err != nil {
		return Value{}, err
	}
	rv, err := e.Eval(rhsNode)
	if err != nil {
		return Value{}, err
	}
	rv, err = e.coercedValue(rhsNode, rv)
	if err != nil {
		return Value{}, err
	}
	if err := e.store(node, name, rv); err != nil {
		return Value{}, err
	}
	return name, nil
}

func (e *Evaluator) dereference(node core.Node, v Value) (Value, error) {
	if v.Cell == nil {
		return Value{}, diag.NewRuntimeError(node, diag.KeyUninitialisedAccess, "dereferencing an uninitialised name")
	}
	return *v.Cell, nil
}

func (e *Evaluator) store(node core.Node, name, v Value) error {
	if name.Cell == nil {
		return diag.NewRuntimeError(node, diag.KeyNilAccess, "assignment target is not a name")
	}
	*name.Cell = v
	if name.Handle != nil && name.Handle.Stowed {
		var refs []*heap.Handle
		collectHandles(v, &refs)
		name.Handle.Refs = refs
	}
	return nil
}

func (e *Evaluator) applyCoercions(node core.Node, v Value, steps []mode.Step) (Value, error) {
	for _, step := range steps {
		switch step.Kind {
		case mode.VoidingStep:
			v = Value{Mode: step.Mode}
		case mode.DereferencingStep:
			dv, err := e.dereference(node, v)
			if err != nil {
				return Value{}, err
			}
			dv.Mode = step.Mode
			v = dv
		case mode.DeprocedureingStep:
			if v.Proc == nil {
				return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "deproceduring a non-procedure value")
			}
			rv, err := e.callRoutine(node, v.Proc, nil)
			if err != nil {
				return Value{}, err
			}
			rv.Mode = step.Mode
			v = rv
		case mode.WideningStep:
			v = e.widen(v, step.Mode)
		case mode.RowingStep:
			v = Value{Mode: step.Mode, Row: &RowValue{ElemMode: v.Mode, Dim: 1, Bounds: []Bound{{1, 1}}, Elems: []Value{v}}}
		case mode.UnitingStep:
			v = Value{Mode: step.Mode, Union: &UnionValue{Held: v.Mode, Payload: v}}
		case mode.RefRowingStep:
			target, err := e.dereference(node, v)
			if err == nil {
				rowed := Value{Row: &RowValue{ElemMode: target.Mode, Dim: 1, Bounds: []Bound{{1, 1}}, Elems: []Value{target}}}
				_ = e.store(node, v, rowed)
			}
			v.Mode = step.Mode
		}
	}
	return v, nil
}

func (e *Evaluator) widen(v Value, target mode.ModeId) Value {
	nv := v
	nv.Mode = target
	if v.Mode != target && e.Modes.Get(target).Name == "REAL" {
		nv.Real = float64(v.Int)
	}
	return nv
}

func (e *Evaluator) evalFormula(node core.Node) (Value, error) {
	kids := childrenOf(node)
	var leftNode, rightNode core.Node
	if len(kids) == 2 {
		leftNode, rightNode = kids[0], kids[1]
	} else if len(kids) == 1 {
		rightNode = kids[0]
	} else {
		return Value{}, diag.NewRuntimeError(node, diag.KeyUndeclaredTag, "malformed formula")
	}

	rv, err := e.Eval(rightNode)
	if err != nil {
		return Value{}, err
	}
	rv, err = e.coercedValue(rightNode, rv)
	if err != nil {
		return Value{}, err
	}

	params := []mode.ModeId{}
	args := []Value{}
	if leftNode != nil {
		lv, err := e.Eval(leftNode)
		if err != nil {
			return Value{}, err
		}
		lv, err = e.coercedValue(leftNode, lv)
		if err != nil {
			return Value{}, err
		}
		params = append(params, lv.Mode)
		args = append(args, lv)
	}
	params = append(params, rv.Mode)
	args = append(args, rv)

	name := node.Symbol()
	scope := e.scopeFor(node)
	tg := e.resolveOperator(scope, name, params)
	if tg == nil {
		if v, ok, err := nativeOperator(node, e.Modes, name, args); ok || err != nil {
			return v, err
		}
		return Value{}, diag.NewRuntimeError(node, diag.KeyUndeclaredTag, "undeclared operator %q", name)
	}
	return e.invokeRoutine(node, tg, args)
}

// invokeRoutine runs an operator tag's declared body. A user
// OPERATOR declaration with the same name as a bootstrap primitive
// (§9 DESIGN NOTES "Global mutable state") always takes precedence,
// since it resolved through resolveOperator's scope walk in the first
// place. A tag with no Body (every stdenv-declared prelude operator)
// runs nativeOperator's bootstrap table, which evalFormula also falls
// back to when no tag resolves at all.
func (e *Evaluator) invokeRoutine(node core.Node, tg *symtab.Tag, args []Value) (Value, error) {
	if tg.Body == nil {
		// A stdenv-declared prelude tag carries a signature for the
		// checker's benefit but no routine-text body; its actual
		// implementation is nativeOperator's bootstrap table.
		if v, ok, err := nativeOperator(node, e.Modes, tg.Name, args); ok || err != nil {
			return v, err
		}
		return Value{}, diag.NewRuntimeError(node, diag.KeyUndeclaredTag, "%q has no implementation", tg.Name)
	}
	rv, err := e.Eval(tg.Body)
	if err != nil {
		return Value{}, err
	}
	if rv.Proc == nil {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "%q does not denote a routine", tg.Name)
	}
	return e.callRoutine(node, rv.Proc, args)
}

func (e *Evaluator) evalCall(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed call")
	}
	calleeNode := kids[0]
	cv, err := e.Eval(calleeNode)
	if err != nil {
		return Value{}, err
	}
	cv, err = e.coercedValue(calleeNode, cv)
	if err != nil {
		return Value{}, err
	}
	args := make([]Value, 0, len(kids)-1)
	for _, a := range kids[1:] {
		av, err := e.Eval(a)
		if err != nil {
			return Value{}, err
		}
		av, err = e.coercedValue(a, av)
		if err != nil {
			return Value{}, err
		}
		args = append(args, av)
	}
	if cv.Proc == nil {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "call target is not a procedure value")
	}
	return e.callRoutine(node, cv.Proc, args)
}

func (e *Evaluator) callRoutine(node core.Node, r *Routine, args []Value) (Value, error) {
	if r.Native != nil {
		return r.Native(e, args)
	}
	level := 0
	if r.Closure != nil {
		level = r.Closure.Level + 1
	}
	f, err := e.Frames.OpenProcedureFrame(routineName(r), r.Node, level, r.Closure, r.Closure)
	if err != nil {
		return Value{}, err
	}
	defer func() {
		e.Locals.Forget(f)
		e.Frames.Close()
	}()
	for i, ptag := range r.Params {
		if i >= len(args) {
			break
		}
		cell := e.Locals.Cell(f, ptag.Decl)
		*cell = args[i]
	}
	body := lastChild(r.Node)
	v, err := e.Eval(body)
	if err != nil {
		return Value{}, err
	}
	return e.coercedValue(body, v)
}

func routineName(r *Routine) string {
	if r.Node != nil {
		return frameName(r.Node)
	}
	return "routine"
}

func (e *Evaluator) evalRoutineText(node core.Node) (Value, error) {
	procMode := e.Ann.ModeOf(node)
	kids := childrenOf(node)
	var params []*symtab.Tag
	if len(kids) > 0 {
		for _, p := range kids[:len(kids)-1] {
			if p.Attr() == core.Identifier {
				params = append(params, e.lookupTag(node, p.Symbol()))
			}
		}
	}
	r := &Routine{Node: node, Mode: procMode, Params: params, Closure: e.Frames.Current()}
	return Value{Mode: procMode, Proc: r}, nil
}

func (e *Evaluator) openRangeFrame(node core.Node) (*frame.Frame, error) {
	level := 0
	if e.Frames.Depth() > 0 {
		level = e.Frames.Current().Level + 1
	}
	if e.ScopeOf != nil {
		if s := e.ScopeOf(node); s != nil {
			level = s.Level
		}
	}
	f, err := e.Frames.Open(frameName(node), node, level)
	if err != nil {
		return nil, err
	}
	declareLabels(f, node)
	return f, nil
}

func declareLabels(f *frame.Frame, node core.Node) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Attr() == core.Label {
			f.DeclareLabel(c.Symbol(), c)
		}
	}
}

func (e *Evaluator) evalClosedClause(node core.Node) (Value, error) {
	f, err := e.openRangeFrame(node)
	if err != nil {
		return Value{}, err
	}
	defer func() {
		e.Locals.Forget(f)
		e.Frames.Close()
	}()
	return e.runSerial(f, node)
}

// runSerial evaluates node's children in sequence, catching a
// JumpSignal whose label f declares directly and resuming right after
// the label (§4.5 "Non-local jumps"). A JumpSignal whose target is not
// one of f's own labels is returned unchanged, letting the deferred
// frame.Stack.Close in every enclosing evalClosedClause/callRoutine
// unwind the stack one frame at a time as the Go call stack itself
// unwinds, the safe-language analogue of the source's setjmp/longjmp
// (§9 DESIGN NOTES).
func (e *Evaluator) runSerial(f *frame.Frame, node core.Node) (Value, error) {
	var last Value
	c := node.FirstChild()
	for c != nil {
		if c.Attr() == core.Label {
			c = c.NextSibling()
			continue
		}
		v, err := e.Eval(c)
		if err != nil {
			if js, ok := err.(*JumpSignal); ok {
				if target, ok := f.CatchLabel(js.Label); ok {
					c = target.NextSibling()
					continue
				}
			}
			return Value{}, err
		}
		last = v
		c = c.NextSibling()
	}
	return last, nil
}

func (e *Evaluator) evalCollateralClause(node core.Node) (Value, error) {
	rowMode := e.Ann.ModeOf(node)
	kids := childrenOf(node)
	elems := make([]Value, 0, len(kids))
	for _, k := range kids {
		v, err := e.Eval(k)
		if err != nil {
			return Value{}, err
		}
		v, err = e.coercedValue(k, v)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	elemMode := mode.NoMode
	if len(elems) > 0 {
		elemMode = elems[0].Mode
	}
	return Value{Mode: rowMode, Row: &RowValue{ElemMode: elemMode, Dim: 1, Bounds: []Bound{{1, int64(len(elems))}}, Elems: elems}}, nil
}

func (e *Evaluator) evalBranch(node core.Node) (Value, error) {
	v, err := e.Eval(node)
	if err != nil {
		return Value{}, err
	}
	return e.coercedValue(node, v)
}

func (e *Evaluator) evalConditionalClause(node core.Node) (Value, error) {
	f, err := e.openRangeFrame(node)
	if err != nil {
		return Value{}, err
	}
	defer func() {
		e.Locals.Forget(f)
		e.Frames.Close()
	}()
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{Mode: e.Modes.Void}, nil
	}
	ev, err := e.Eval(kids[0])
	if err != nil {
		return Value{}, err
	}
	ev, err = e.coercedValue(kids[0], ev)
	if err != nil {
		return Value{}, err
	}
	branches := kids[1:]
	if ev.Bool {
		if len(branches) > 0 {
			return e.evalBranch(branches[0])
		}
	} else if len(branches) > 1 {
		return e.evalBranch(branches[1])
	}
	return Value{Mode: e.Modes.Void}, nil
}

// evalCaseClause picks a branch by the enquiry's 1-based integer
// position among the displayed branches, treating an out-of-range
// index as selecting the final (OUT/ESAC default) branch when one is
// present (§4.7 "Enclosed clauses"); a true UNION-tag CONFORMITY match
// is not modeled, mirroring check.deduceCase's documented
// simplification of treating CaseClause and ConformityClause alike.
func (e *Evaluator) evalCaseClause(node core.Node) (Value, error) {
	f, err := e.openRangeFrame(node)
	if err != nil {
		return Value{}, err
	}
	defer func() {
		e.Locals.Forget(f)
		e.Frames.Close()
	}()
	kids := childrenOf(node)
	if len(kids) < 2 {
		return Value{Mode: e.Modes.Void}, nil
	}
	ev, err := e.Eval(kids[0])
	if err != nil {
		return Value{}, err
	}
	ev, err = e.coercedValue(kids[0], ev)
	if err != nil {
		return Value{}, err
	}
	branches := kids[1:]
	idx := int(ev.Int) - 1
	if idx >= 0 && idx < len(branches) {
		return e.evalBranch(branches[idx])
	}
	return e.evalBranch(branches[len(branches)-1])
}

// evalLoopClause executes every child other than identifiers and
// labels once in sequence. core.Attribute does not distinguish a LOOP clause's FOR/
// BY/TO/WHILE/DO/UNTIL sub-parts (check.deduceLoop documents the same
// gap), so repeated iteration driven by a FROM/TO/WHILE guard is not
// modeled here; a DO-range body still runs, once, under its own frame.
func (e *Evaluator) evalLoopClause(node core.Node) (Value, error) {
	f, err := e.openRangeFrame(node)
	if err != nil {
		return Value{}, err
	}
	defer func() {
		e.Locals.Forget(f)
		e.Frames.Close()
	}()
	var last Value
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Attr() == core.Identifier || c.Attr() == core.Label {
			continue
		}
		v, err := e.Eval(c)
		if err != nil {
			return Value{}, err
		}
		last = v
	}
	return last, nil
}

func (e *Evaluator) evalSlice(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed slice")
	}
	primary := kids[0]
	pv, err := e.Eval(primary)
	if err != nil {
		return Value{}, err
	}
	pv, err = e.coercedValue(primary, pv)
	if err != nil {
		return Value{}, err
	}
	indices := kids[1:]
	if len(indices) == 0 {
		return pv, nil
	}
	idx, err := e.Eval(indices[0])
	if err != nil {
		return Value{}, err
	}
	idx, err = e.coercedValue(indices[0], idx)
	if err != nil {
		return Value{}, err
	}

	var rowVal *RowValue
	isName := pv.Cell != nil
	if isName {
		deref, err := e.dereference(node, pv)
		if err != nil {
			return Value{}, err
		}
		rowVal = deref.Row
	} else {
		rowVal = pv.Row
	}
	if rowVal == nil {
		return Value{}, diag.NewRuntimeError(node, diag.KeyUninitialisedAccess, "slicing a non-row value")
	}
	lower := int64(1)
	upper := int64(len(rowVal.Elems))
	if len(rowVal.Bounds) > 0 {
		lower, upper = rowVal.Bounds[0].Lower, rowVal.Bounds[0].Upper
	}
	pos := int(idx.Int - lower)
	if idx.Int < lower || idx.Int > upper || pos < 0 || pos >= len(rowVal.Elems) {
		return Value{}, diag.NewRuntimeError(node, diag.KeyIndexOutOfBounds, "index %d out of bounds [%d:%d]", idx.Int, lower, upper)
	}
	if isName {
		return Value{Mode: rowVal.ElemMode, Cell: &rowVal.Elems[pos]}, nil
	}
	return rowVal.Elems[pos], nil
}

func fieldIndex(m *mode.Mode, name string) (int, bool) {
	for i, f := range m.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (e *Evaluator) evalFieldSelection(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed selection")
	}
	primary := kids[0]
	pv, err := e.Eval(primary)
	if err != nil {
		return Value{}, err
	}
	pv, err = e.coercedValue(primary, pv)
	if err != nil {
		return Value{}, err
	}
	fieldName := node.Symbol()

	if pv.Cell != nil {
		deref, err := e.dereference(node, pv)
		if err != nil {
			return Value{}, err
		}
		if deref.Struct == nil {
			return Value{}, diag.NewRuntimeError(node, diag.KeyUninitialisedAccess, "selection on a name that is not a struct")
		}
		idx, ok := fieldIndex(e.Modes.Get(deref.Mode), fieldName)
		if !ok {
			return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "no field %q", fieldName)
		}
		return Value{Mode: e.Modes.Get(deref.Mode).Fields[idx].Mode, Cell: &pv.Cell.Struct.Fields[idx]}, nil
	}
	if pv.Struct != nil {
		idx, ok := fieldIndex(e.Modes.Get(pv.Mode), fieldName)
		if !ok {
			return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "no field %q", fieldName)
		}
		return pv.Struct.Fields[idx], nil
	}
	return Value{}, diag.NewRuntimeError(node, diag.KeyUninitialisedAccess, "selection target has no fields")
}

func (e *Evaluator) evalGenerator(node core.Node) (Value, error) {
	refMode := e.Ann.ModeOf(node)
	target := mode.NoMode
	if m := e.Modes.Get(refMode); m.Kind == mode.Ref {
		target = m.Sub
	}
	zero := Zero(target, e.Modes)
	if node.Symbol() == "HEAP" {
		md := e.Modes.Get(target)
		h := e.Heap.Alloc(target, 0, md.HasRef || md.HasRows)
		cell := e.heap_.Get(h)
		*cell = zero
		if h.Stowed {
			var refs []*heap.Handle
			collectHandles(zero, &refs)
			h.Refs = refs
		}
		return Value{Mode: refMode, Cell: cell, Handle: h}, nil
	}
	cell := e.Locals.Cell(e.Frames.Current(), node)
	*cell = zero
	return Value{Mode: refMode, Cell: cell}, nil
}

func (e *Evaluator) evalIdentityDeclaration(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) != 2 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed identity declaration")
	}
	idNode, unit := kids[0], kids[1]
	v, err := e.Eval(unit)
	if err != nil {
		return Value{}, err
	}
	v, err = e.coercedValue(unit, v)
	if err != nil {
		return Value{}, err
	}
	tg := e.lookupTag(node, idNode.Symbol())
	cell := e.Locals.Cell(e.Frames.Current(), tg.Decl)
	*cell = v
	return Value{Mode: e.Modes.Void}, nil
}

func (e *Evaluator) evalVariableDeclaration(node core.Node) (Value, error) {
	kids := childrenOf(node)
	if len(kids) == 0 {
		return Value{}, diag.NewRuntimeError(node, diag.KeyNilAccess, "malformed variable declaration")
	}
	idNode := kids[0]
	var init core.Node
	if len(kids) > 1 {
		init = kids[1]
	}
	tg := e.lookupTag(node, idNode.Symbol())
	target := tg.Mode
	if m := e.Modes.Get(tg.Mode); m.Kind == mode.Ref {
		target = m.Sub
	}
	cell := e.Locals.Cell(e.Frames.Current(), tg.Decl)
	*cell = Zero(target, e.Modes)
	if init != nil {
		v, err := e.Eval(init)
		if err != nil {
			return Value{}, err
		}
		v, err = e.coercedValue(init, v)
		if err != nil {
			return Value{}, err
		}
		*cell = v
	}
	return Value{Mode: e.Modes.Void}, nil
}

// evalParallelClause runs every arm on its own goroutine (§5 "PAR
// clause"), serialising their actual evaluator work behind parMu since
// frame.Stack, heap.Heap and Locals are shared, mutable and not
// otherwise safe for concurrent access, true parallelism is limited
// to the scheduling interleaving of the goroutines queueing for that
// lock, which is as much concurrency as §5's suspension-point model
// calls for.
func (e *Evaluator) evalParallelClause(node core.Node) (Value, error) {
	kids := childrenOf(node)
	var wg sync.WaitGroup
	errs := make([]error, len(kids))
	for i, k := range kids {
		wg.Add(1)
		go func(i int, k core.Node) {
			defer wg.Done()
			e.parMu.Lock()
			_, err := e.Eval(k)
			e.parMu.Unlock()
			errs[i] = err
		}(i, k)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return Value{}, err
		}
	}
	return Value{Mode: e.Modes.Void}, nil
}
