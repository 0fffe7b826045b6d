package genie

import (
	"testing"

	"github.com/a68/check"
	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

type testNode struct {
	attr   core.Attribute
	sym    string
	parent *testNode
	first  *testNode
	next   *testNode
}

func (n *testNode) Attr() core.Attribute { return n.attr }
func (n *testNode) Symbol() string       { return n.sym }
func (n *testNode) Span() core.Span      { return core.Span{} }

func (n *testNode) Parent() core.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *testNode) FirstChild() core.Node {
	if n.first == nil {
		return nil
	}
	return n.first
}

func (n *testNode) NextSibling() core.Node {
	if n.next == nil {
		return nil
	}
	return n.next
}

func addChildren(parent *testNode, children ...*testNode) {
	var prev *testNode
	for _, ch := range children {
		ch.parent = parent
		if prev == nil {
			parent.first = ch
		} else {
			prev.next = ch
		}
		prev = ch
	}
}

func newEvalFixture() (*Evaluator, *symtab.Scope) {
	modes := mode.NewTable(diag.NewBag())
	scopes := &symtab.ScopeTree{}
	global := scopes.PushNewScope("global")
	bag := diag.NewBag()
	binder := symtab.NewBinder(scopes, bag)
	ann := check.NewAnnotations()
	e := NewEvaluator(modes, scopes, binder, bag, ann, 4096)
	e.Frames.Open("global", nil, 0)
	return e, global
}

func TestEvalDenotationDefaultsToInt(t *testing.T) {
	e, _ := newEvalFixture()
	node := &testNode{attr: core.Denotation, sym: "42"}
	got, err := e.Eval(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Mode != e.Modes.Standard("INT", 0) || got.Int != 42 {
		t.Errorf("expected INT 42, got %v", got)
	}
}

func TestEvalDenotationReal(t *testing.T) {
	e, _ := newEvalFixture()
	node := &testNode{attr: core.Denotation, sym: "3.5"}
	e.Ann.Get(node).Mode = e.Modes.Standard("REAL", 0)
	got, err := e.Eval(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Real != 3.5 {
		t.Errorf("expected REAL 3.5, got %v", got)
	}
}

func TestEvalIdentifierReadsBoundTag(t *testing.T) {
	e, global := newEvalFixture()
	realMode := e.Modes.Standard("REAL", 0)
	tg, _ := global.Table.Define(core.Identifiers, "x", nil)
	tg.Mode = realMode
	tg.ScopeLevel = 0

	cell := e.Locals.Cell(e.Frames.Current(), tg.Decl)
	*cell = Value{Mode: realMode, Real: 9.0}

	node := &testNode{attr: core.Identifier, sym: "x"}
	e.Ann.Get(node).Tag = tg

	got, err := e.Eval(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Real != 9.0 {
		t.Errorf("expected to read back 9.0, got %v", got)
	}
	if !tg.Used {
		t.Error("expected an applied occurrence to mark its tag used")
	}
}

func TestEvalAssignationStoresThroughName(t *testing.T) {
	e, global := newEvalFixture()
	intMode := e.Modes.Standard("INT", 0)
	refInt := e.Modes.NewRef(intMode)
	tg, _ := global.Table.Define(core.Identifiers, "y", nil)
	tg.Mode = refInt
	tg.ScopeLevel = 0
	cell := e.Locals.Cell(e.Frames.Current(), tg.Decl)
	*cell = Value{Mode: intMode}

	lhs := &testNode{attr: core.Identifier, sym: "y"}
	e.Ann.Get(lhs).Tag = tg
	rhs := &testNode{attr: core.Denotation, sym: "7"}
	assign := &testNode{attr: core.Assignation}
	addChildren(assign, lhs, rhs)

	got, err := e.Eval(assign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cell == nil || got.Cell.Int != 7 {
		t.Errorf("expected assignation to store 7 through the name, got %v", got)
	}
}

func TestEvalFormulaNativeAddition(t *testing.T) {
	e, _ := newEvalFixture()
	left := &testNode{attr: core.Denotation, sym: "3"}
	right := &testNode{attr: core.Denotation, sym: "4"}
	formula := &testNode{attr: core.Formula, sym: "+"}
	addChildren(formula, left, right)

	got, err := e.Eval(formula)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 7 {
		t.Errorf("expected 3 + 4 = 7, got %v", got)
	}
}

func TestEvalFormulaUserOperatorShadowsNative(t *testing.T) {
	e, global := newEvalFixture()
	intMode := e.Modes.Standard("INT", 0)
	plusTag, _ := global.Table.Define(core.Operators, "+", nil)
	plusTag.Mode = e.Modes.NewProc([]mode.PackItem{{Mode: intMode}, {Mode: intMode}}, intMode)
	// A user-declared "+" that always yields 99, regardless of its
	// operands, to make it unmistakable which implementation ran.
	routineText := &testNode{attr: core.RoutineText}
	body := &testNode{attr: core.Denotation, sym: "99"}
	addChildren(routineText, body)
	plusTag.Body = routineText

	left := &testNode{attr: core.Denotation, sym: "3"}
	right := &testNode{attr: core.Denotation, sym: "4"}
	formula := &testNode{attr: core.Formula, sym: "+"}
	addChildren(formula, left, right)
	e.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == formula {
			return global
		}
		return nil
	}

	got, err := e.Eval(formula)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 99 {
		t.Errorf("expected the user-declared '+' to shadow the native one, got %v", got)
	}
}

func TestEvalFormulaDivisionByZeroReportsRuntimeError(t *testing.T) {
	for _, op := range []string{"%", "OVER", "MOD", "%*"} {
		left := &testNode{attr: core.Denotation, sym: "7"}
		right := &testNode{attr: core.Denotation, sym: "0"}
		formula := &testNode{attr: core.Formula, sym: op}
		addChildren(formula, left, right)

		e, _ := newEvalFixture()
		_, err := e.Eval(formula)
		if err == nil {
			t.Fatalf("%s: expected a division-by-zero error, got none", op)
		}
		rerr, ok := err.(*diag.RuntimeError)
		if !ok {
			t.Fatalf("%s: expected *diag.RuntimeError, got %T (%v)", op, err, err)
		}
		if rerr.Key != diag.KeyDivisionByZero {
			t.Errorf("%s: expected key %q, got %q", op, diag.KeyDivisionByZero, rerr.Key)
		}
	}
}

func TestEvalConditionalClauseSelectsBranch(t *testing.T) {
	e, global := newEvalFixture()
	boolTag, _ := global.Table.Define(core.Identifiers, "p", nil)
	boolTag.Mode = e.Modes.Standard("BOOL", 0)
	boolTag.ScopeLevel = 0
	cell := e.Locals.Cell(e.Frames.Current(), boolTag.Decl)
	*cell = Value{Mode: boolTag.Mode, Bool: true}

	enquiry := &testNode{attr: core.Identifier, sym: "p"}
	e.Ann.Get(enquiry).Tag = boolTag
	thenBranch := &testNode{attr: core.Denotation, sym: "1"}
	elseBranch := &testNode{attr: core.Denotation, sym: "2"}
	cond := &testNode{attr: core.ConditionalClause}
	addChildren(cond, enquiry, thenBranch, elseBranch)

	got, err := e.Eval(cond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 1 {
		t.Errorf("expected the TRUE branch to be selected, got %v", got)
	}
}

func TestEvalClosedClauseJumpSkipsToLabel(t *testing.T) {
	e, _ := newEvalFixture()
	jump := &testNode{attr: core.Jump, sym: "L"}
	skipped := &testNode{attr: core.Denotation, sym: "99"}
	label := &testNode{attr: core.Label, sym: "L"}
	result := &testNode{attr: core.Denotation, sym: "7"}
	closed := &testNode{attr: core.ClosedClause}
	addChildren(closed, jump, skipped, label, result)

	got, err := e.Eval(closed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 7 {
		t.Errorf("expected the jump to land after the label and yield 7, got %v", got)
	}
}

func TestEvalGeneratorLocThenAssignThenRead(t *testing.T) {
	e, _ := newEvalFixture()
	intMode := e.Modes.Standard("INT", 0)
	refInt := e.Modes.NewRef(intMode)

	gen := &testNode{attr: core.Generator, sym: "LOC"}
	declarer := &testNode{attr: core.Declarer}
	addChildren(gen, declarer)
	e.Ann.Get(gen).Mode = refInt

	name, err := e.Eval(gen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name.Cell == nil {
		t.Fatalf("expected a LOC generator to yield a name with a storage cell")
	}
	*name.Cell = Value{Mode: intMode, Int: 5}
	if name.Cell.Int != 5 {
		t.Errorf("expected the generator's cell to hold 5, got %v", *name.Cell)
	}
}

func TestCallRoutineBindsParameter(t *testing.T) {
	e, global := newEvalFixture()
	intMode := e.Modes.Standard("INT", 0)
	procMode := e.Modes.NewProc([]mode.PackItem{{Mode: intMode}}, intMode)

	paramTag, _ := global.Table.Define(core.Identifiers, "n", nil)
	paramTag.Mode = intMode
	paramTag.ScopeLevel = 1

	paramIdent := &testNode{attr: core.Identifier, sym: "n"}
	body := &testNode{attr: core.Identifier, sym: "n"}
	routineText := &testNode{attr: core.RoutineText}
	addChildren(routineText, paramIdent, body)
	e.Ann.Get(body).Tag = paramTag

	r := &Routine{Node: routineText, Mode: procMode, Params: []*symtab.Tag{paramTag}, Closure: e.Frames.Current()}

	got, err := e.callRoutine(routineText, r, []Value{{Mode: intMode, Int: 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 5 {
		t.Errorf("expected the routine to return its bound parameter, got %v", got)
	}
}

func TestEvalParallelClauseRunsEveryArm(t *testing.T) {
	e, _ := newEvalFixture()
	arm1 := &testNode{attr: core.Denotation, sym: "1"}
	arm2 := &testNode{attr: core.Denotation, sym: "2"}
	par := &testNode{attr: core.ParallelClause}
	addChildren(par, arm1, arm2)

	got, err := e.Eval(par)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Mode != e.Modes.Void {
		t.Errorf("expected PAR to yield VOID, got %v", got)
	}
}

func TestInstallStandardEnvironSeedsConstantsAndOperators(t *testing.T) {
	e, global := newEvalFixture()
	e.InstallStandardEnviron()

	piTag := global.Table.Resolve(core.Identifiers, "pi")
	if piTag == nil {
		t.Fatal("expected 'pi' to be declared after InstallStandardEnviron")
	}
	cell := e.Locals.Cell(e.Frames.Globals(), piTag.Decl)
	if cell.Real < 3.14 || cell.Real > 3.15 {
		t.Errorf("expected pi's cell to hold approximately 3.14159, got %v", cell.Real)
	}

	left := &testNode{attr: core.Denotation, sym: "3"}
	right := &testNode{attr: core.Denotation, sym: "4"}
	formula := &testNode{attr: core.Formula, sym: "+"}
	addChildren(formula, left, right)
	got, err := e.Eval(formula)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 7 {
		t.Errorf("expected the stdenv-declared '+' to still compute 3 + 4 = 7, got %v", got)
	}
}

func TestSemaphoreDownUp(t *testing.T) {
	s := NewSemaphore(1)
	s.Down()
	done := make(chan struct{})
	go func() {
		s.Down()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("expected Down to block with no permits available")
	default:
	}
	s.Up()
	<-done
}
