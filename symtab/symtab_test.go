package symtab

import (
	"testing"

	"github.com/a68/core"
	"github.com/a68/diag"
)

type fakeNode struct{ sym string }

func (f *fakeNode) Attr() core.Attribute   { return core.Identifier }
func (f *fakeNode) Symbol() string         { return f.sym }
func (f *fakeNode) Span() core.Span        { return core.Span{} }
func (f *fakeNode) Parent() core.Node      { return nil }
func (f *fakeNode) FirstChild() core.Node  { return nil }
func (f *fakeNode) NextSibling() core.Node { return nil }

func TestDefineAndResolve(t *testing.T) {
	tb := NewTable()
	decl := &fakeNode{"x"}
	tg, old := tb.Define(core.Identifiers, "x", decl)
	if old != nil {
		t.Error("first declaration must not report an old tag")
	}
	if got := tb.Resolve(core.Identifiers, "x"); got != tg {
		t.Error("cannot find stored tag in table")
	}
}

func TestTwoTagsDistinctId(t *testing.T) {
	tb := NewTable()
	t1, _ := tb.Define(core.Identifiers, "a", nil)
	t2, _ := tb.Define(core.Identifiers, "b", nil)
	if t1.Id == t2.Id {
		t.Error("two tags must have distinct serial ids")
	}
}

func TestScopeUpsearch(t *testing.T) {
	parent := NewScope("parent", nil)
	child := NewScope("child", parent)
	parent.Table.Define(core.Identifiers, "x", nil)

	bag := diag.NewBag()
	scopes := &ScopeTree{}
	scopes.base, scopes.tos = parent, child
	b := NewBinder(scopes, bag)
	tg := b.Resolve(child, core.Identifiers, "x", nil)
	if tg.Decl != nil || tg.Name != "x" {
		t.Fatalf("expected to find 'x' declared in parent scope, got %+v", tg)
	}
	if bag.HasErrors() {
		t.Error("resolving a tag present in an enclosing scope must not be an error")
	}
}

func TestUndeclaredTagReportsDiagnostic(t *testing.T) {
	root := NewScope("global", nil)
	bag := diag.NewBag()
	scopes := &ScopeTree{}
	scopes.base, scopes.tos = root, root
	b := NewBinder(scopes, bag)
	b.Resolve(root, core.Identifiers, "nope", &fakeNode{"nope"})
	if !bag.HasErrors() {
		t.Error("an unresolved tag must report an undeclared-tag diagnostic")
	}
	found := false
	for _, d := range bag.All() {
		if d.Key == diag.KeyUndeclaredTag {
			found = true
		}
	}
	if !found {
		t.Error("missing KeyUndeclaredTag diagnostic")
	}
}

func TestMultipleDeclarationReported(t *testing.T) {
	root := NewScope("global", nil)
	bag := diag.NewBag()
	scopes := &ScopeTree{}
	scopes.base, scopes.tos = root, root
	b := NewBinder(scopes, bag)
	b.Define(root, core.Identifiers, "x", &fakeNode{"x"})
	b.Define(root, core.Identifiers, "x", &fakeNode{"x"})
	if !bag.HasErrors() {
		t.Error("redeclaring 'x' in the same scope must be reported")
	}
}

func TestCrossFamilyNoCollision(t *testing.T) {
	tb := NewTable()
	tb.Define(core.Identifiers, "x", nil)
	tb.Define(core.Indicants, "x", nil)
	if tb.Resolve(core.Identifiers, "x") == tb.Resolve(core.Indicants, "x") {
		t.Error("identifiers and indicants are separate families and must not collide")
	}
}

func TestLengthetyMapping(t *testing.T) {
	root := NewScope("global", nil)
	root.Table.AllowLengthety = true
	root.Table.IsStandardEnviron = true
	sqrtTag, _ := root.Table.Define(core.Operators, "sqrt", nil)

	bag := diag.NewBag()
	scopes := &ScopeTree{}
	scopes.base, scopes.tos = root, root
	b := NewBinder(scopes, bag)
	got := b.Resolve(root, core.Operators, "short sqrt", &fakeNode{"short sqrt"})
	if got != sqrtTag {
		t.Errorf("'short sqrt' should map onto 'sqrt' via lengthety mapping, got %+v", got)
	}
	if bag.HasErrors() {
		t.Error("lengthety-mapped resolution must not report undeclared-tag")
	}
}

func TestLengthetyGatedOff(t *testing.T) {
	root := NewScope("global", nil)
	root.Table.AllowLengthety = false
	root.Table.Define(core.Operators, "sqrt", nil)

	bag := diag.NewBag()
	scopes := &ScopeTree{}
	scopes.base, scopes.tos = root, root
	b := NewBinder(scopes, bag)
	b.Resolve(root, core.Operators, "short sqrt", &fakeNode{"short sqrt"})
	if !bag.HasErrors() {
		t.Error("with lengthety mapping disabled, 'short sqrt' must be undeclared")
	}
}

func TestMoveForIdentifier(t *testing.T) {
	loop := NewScope("loop", nil)
	do := NewScope("do", loop)
	loop.Table.Define(core.Identifiers, "i", nil)
	tg := MoveForIdentifier(loop, do, "i")
	if tg == nil {
		t.Fatal("expected the FOR identifier to move")
	}
	if loop.Table.Resolve(core.Identifiers, "i") != nil {
		t.Error("FOR identifier must be removed from the loop-clause table")
	}
	if do.Table.Resolve(core.Identifiers, "i") != tg {
		t.Error("FOR identifier must be present in the DO-range table")
	}
}
