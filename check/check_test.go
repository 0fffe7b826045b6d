package check

import (
	"testing"

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

func newFixture() (*mode.Table, *symtab.ScopeTree, *symtab.Scope, *diag.Bag, *Checker) {
	modes := mode.NewTable(diag.NewBag())
	scopes := &symtab.ScopeTree{}
	global := scopes.PushNewScope("global")
	bag := diag.NewBag()
	binder := symtab.NewBinder(scopes, bag)
	checker := NewChecker(modes, scopes, binder, bag)
	return modes, scopes, global, bag, checker
}

func TestCheckDenotationDefaultsToInt(t *testing.T) {
	modes, _, global, _, checker := newFixture()
	node := &testNode{attr: core.Denotation}
	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == node {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(node, mode.NoMode, ContextStrong)
	if got != modes.Standard("INT", 0) {
		t.Errorf("expected a bare denotation to default to INT, got mode %d", got)
	}
}

func TestCheckIdentifierResolvesTag(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	tg, _ := global.Table.Define(core.Identifiers, "x", nil)
	tg.Mode = modes.Standard("REAL", 0)

	node := &testNode{attr: core.Identifier, sym: "x"}
	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == node {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(node, mode.NoMode, ContextStrong)
	if got != tg.Mode {
		t.Errorf("expected identifier to resolve to its tag's mode, got %d want %d", got, tg.Mode)
	}
	if bag.HasErrors() {
		t.Error("resolving a declared identifier must not report an error")
	}
}

func TestCheckIdentifierUndeclaredReportsDiagnostic(t *testing.T) {
	_, _, global, bag, checker := newFixture()
	node := &testNode{attr: core.Identifier, sym: "nope"}
	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == node {
			return global
		}
		return nil
	}
	checker.CheckUnit(node, mode.NoMode, ContextStrong)
	if !bag.HasErrors() {
		t.Error("an undeclared identifier must report an error")
	}
}

func TestCheckAssignationWideningRHS(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	refReal := modes.NewRef(modes.Standard("REAL", 0))
	lhsTag, _ := global.Table.Define(core.Identifiers, "y", nil)
	lhsTag.Mode = refReal

	lhs := &testNode{attr: core.Identifier, sym: "y"}
	rhs := &testNode{attr: core.Denotation} // deduces INT, must widen to REAL
	assign := &testNode{attr: core.Assignation}
	addChildren(assign, lhs, rhs)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == assign {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(assign, mode.NoMode, ContextStrong)
	if got != refReal {
		t.Errorf("expected assignation to yield the left side's REF mode, got %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("widening INT to REAL on assignment must not be an error, diagnostics: %v", bag.All())
	}
	rhsAnn := checker.Ann.Get(rhs)
	if len(rhsAnn.Coercions) != 1 || rhsAnn.Coercions[0].Kind != mode.WideningStep {
		t.Errorf("expected exactly one widening coercion on the right side, got %v", rhsAnn.Coercions)
	}
}

func TestCheckAssignationRejectsTransientRHS(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	rowInt := modes.Rowed(modes.Standard("INT", 0))
	lhsTag, _ := global.Table.Define(core.Identifiers, "r", nil)
	lhsTag.Mode = modes.NewRef(rowInt)

	lhs := &testNode{attr: core.Identifier, sym: "r"}
	denot := &testNode{attr: core.Denotation}
	rhs := &testNode{attr: core.CollateralClause}
	addChildren(rhs, denot)
	assign := &testNode{attr: core.Assignation}
	addChildren(assign, lhs, rhs)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == assign {
			return global
		}
		return nil
	}
	checker.CheckUnit(assign, mode.NoMode, ContextStrong)
	found := false
	for _, d := range bag.All() {
		if d.Key == diag.KeyScopeViolation {
			found = true
		}
	}
	if !found {
		t.Error("assigning a transient collateral display must report a scope violation")
	}
}

func TestCheckFormulaResolvesOperator(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	intMode := modes.Standard("INT", 0)
	plusTag, _ := global.Table.Define(core.Operators, "+", nil)
	plusTag.Mode = modes.NewProc([]mode.PackItem{{Mode: intMode}, {Mode: intMode}}, intMode)

	left := &testNode{attr: core.Denotation}
	right := &testNode{attr: core.Denotation}
	formula := &testNode{attr: core.Formula, sym: "+"}
	addChildren(formula, left, right)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == formula {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(formula, mode.NoMode, ContextStrong)
	if got != intMode {
		t.Errorf("expected '+' formula to yield INT, got %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("a matching operator must not report an error, diagnostics: %v", bag.All())
	}
}

func TestCheckFormulaUndeclaredOperatorReported(t *testing.T) {
	_, _, global, bag, checker := newFixture()
	left := &testNode{attr: core.Denotation}
	formula := &testNode{attr: core.MonadicFormula, sym: "weird-op"}
	addChildren(formula, left)
	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == formula {
			return global
		}
		return nil
	}
	checker.CheckUnit(formula, mode.NoMode, ContextStrong)
	if !bag.HasErrors() {
		t.Error("an unresolvable operator must report an error")
	}
}

// TestCheckFormulaResolvesOverloadedRealOperator exercises an operator
// name declared with more than one signature (§3.3 overloading): "+"
// carries both an INT,INT and a REAL,REAL tag, and a formula over REAL
// operands must resolve to the second, not fail just because the first
// declared "+" doesn't match.
func TestCheckFormulaResolvesOverloadedRealOperator(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	intMode := modes.Standard("INT", 0)
	realMode := modes.Standard("REAL", 0)

	intPlus, _ := global.Table.Define(core.Operators, "+", nil)
	intPlus.Mode = modes.NewProc([]mode.PackItem{{Mode: intMode}, {Mode: intMode}}, intMode)
	realPlus, _ := global.Table.Define(core.Operators, "+", nil)
	realPlus.Mode = modes.NewProc([]mode.PackItem{{Mode: realMode}, {Mode: realMode}}, realMode)

	left := &testNode{attr: core.Denotation}
	right := &testNode{attr: core.Denotation}
	formula := &testNode{attr: core.Formula, sym: "+"}
	addChildren(formula, left, right)
	checker.Ann.Get(left).Mode = realMode
	checker.Ann.Get(right).Mode = realMode

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == formula {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(formula, mode.NoMode, ContextStrong)
	if got != realMode {
		t.Errorf("expected the REAL,REAL overload of '+' to match, got mode %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("a matching overload must not report an error, diagnostics: %v", bag.All())
	}
}

// TestCheckFormulaResolvesMonadicOverload covers the other shape of
// overloading: the same symbol declared both dyadic and monadic (e.g.
// "-"), where the operand count alone must pick the right tag.
func TestCheckFormulaResolvesMonadicOverload(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	intMode := modes.Standard("INT", 0)

	dyadic, _ := global.Table.Define(core.Operators, "-", nil)
	dyadic.Mode = modes.NewProc([]mode.PackItem{{Mode: intMode}, {Mode: intMode}}, intMode)
	monadic, _ := global.Table.Define(core.Operators, "-", nil)
	monadic.Mode = modes.NewProc([]mode.PackItem{{Mode: intMode}}, intMode)

	operand := &testNode{attr: core.Denotation}
	formula := &testNode{attr: core.MonadicFormula, sym: "-"}
	addChildren(formula, operand)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == formula {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(formula, mode.NoMode, ContextStrong)
	if got != intMode {
		t.Errorf("expected the monadic '-' overload to match, got mode %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("a matching monadic overload must not report an error, diagnostics: %v", bag.All())
	}
}

func TestCheckCallDispatchesToProcedure(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	intMode := modes.Standard("INT", 0)
	procTag, _ := global.Table.Define(core.Identifiers, "f", nil)
	procTag.Mode = modes.NewProc([]mode.PackItem{{Mode: intMode}}, intMode)

	callee := &testNode{attr: core.Identifier, sym: "f"}
	arg := &testNode{attr: core.Denotation}
	call := &testNode{attr: core.Call}
	addChildren(call, callee, arg)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == call {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(call, mode.NoMode, ContextStrong)
	if got != intMode {
		t.Errorf("expected call to yield the procedure's result mode, got %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("a well-formed call must not report an error, diagnostics: %v", bag.All())
	}
}

func TestCheckConditionalBalancesBranches(t *testing.T) {
	modes, _, global, bag, checker := newFixture()
	boolTag, _ := global.Table.Define(core.Identifiers, "p", nil)
	boolTag.Mode = modes.Standard("BOOL", 0)

	enquiry := &testNode{attr: core.Identifier, sym: "p"}
	thenBranch := &testNode{attr: core.Denotation}
	elseBranch := &testNode{attr: core.Denotation}
	cond := &testNode{attr: core.ConditionalClause}
	addChildren(cond, enquiry, thenBranch, elseBranch)

	checker.ScopeOf = func(n core.Node) *symtab.Scope {
		if n == cond {
			return global
		}
		return nil
	}
	got := checker.CheckUnit(cond, mode.NoMode, ContextStrong)
	if got != modes.Standard("INT", 0) {
		t.Errorf("expected both INT-denoting branches to balance to INT, got %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("balanced branches must not report an error, diagnostics: %v", bag.All())
	}
}
