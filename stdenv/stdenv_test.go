package stdenv

import (
	"testing"

	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

func TestInstallDeclaresOperatorsAndConstants(t *testing.T) {
	modes := mode.NewTable(diag.NewBag())
	scopes := &symtab.ScopeTree{}
	global := scopes.PushNewScope("standard")

	constants := Install(modes, global)

	plus := global.Table.Resolve(core.Operators, "+")
	if plus == nil {
		t.Fatal("expected '+' to be declared in the standard environ")
	}
	m := modes.Get(plus.Mode)
	if m.Kind != mode.Proc || len(m.Params) != 2 {
		t.Errorf("expected '+' to be a dyadic PROC, got %v", m)
	}

	pi, ok := constants["pi"]
	if !ok {
		t.Fatal("expected 'pi' to be returned among the installed constants")
	}
	if modes.Get(pi.Mode).Kind != mode.Ref {
		t.Errorf("expected 'pi' to have REF mode, got %v", modes.Get(pi.Mode))
	}
	if !global.Table.IsStandardEnviron {
		t.Error("expected Install to mark the global table as the standard environ")
	}
}

func TestInstallDeclaresEveryOperatorOverload(t *testing.T) {
	modes := mode.NewTable(diag.NewBag())
	scopes := &symtab.ScopeTree{}
	global := scopes.PushNewScope("standard")
	Install(modes, global)

	// "-" appears four times in Operators: dyadic INT, dyadic REAL,
	// monadic INT and monadic REAL. All four must survive as distinct
	// tags, not just the first one declared.
	overloads := global.Table.Overloads("-")
	if len(overloads) != 4 {
		t.Fatalf("expected 4 '-' overloads, got %d", len(overloads))
	}
	dyadic, monadic := 0, 0
	for _, tg := range overloads {
		switch len(modes.Get(tg.Mode).Params) {
		case 2:
			dyadic++
		case 1:
			monadic++
		}
	}
	if dyadic != 2 || monadic != 2 {
		t.Errorf("expected 2 dyadic and 2 monadic '-' overloads, got %d dyadic, %d monadic", dyadic, monadic)
	}

	plusOverloads := global.Table.Overloads("+")
	if len(plusOverloads) != 2 {
		t.Errorf("expected 2 '+' overloads (INT,INT and REAL,REAL), got %d", len(plusOverloads))
	}
}
