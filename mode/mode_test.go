package mode

import (
	"testing"

	"github.com/a68/diag"
	"github.com/google/go-cmp/cmp"
)

func TestStandardInterning(t *testing.T) {
	tab := NewTable(diag.NewBag())
	a := tab.Standard("INT", 0)
	b := tab.Standard("INT", 0)
	if a != b {
		t.Error("two occurrences of INT should intern to the same ModeId")
	}
	c := tab.Standard("INT", 1) // LONG INT
	if a == c {
		t.Error("INT and LONG INT must not share a ModeId")
	}
}

func TestEquivalenceChasingTerminates(t *testing.T) {
	tab := NewTable(diag.NewBag())
	refInt1 := tab.NewRef(tab.Int)
	refInt2 := tab.NewRef(tab.Int)
	tab.Close()
	if !tab.Equivalent(refInt1, refInt2) {
		t.Fatal("REF INT and REF INT should be equivalent")
	}
	canon := tab.Canon(refInt2)
	if tab.Get(canon).Equivalent != NoMode {
		t.Error("canonical representative must have no Equivalent pointer")
	}
}

func TestRecursiveStructEquivalence(t *testing.T) {
	tab := NewTable(diag.NewBag())
	a1 := tab.NewIndicant("A")
	struct1 := tab.NewStruct([]PackItem{
		{Name: "n", Mode: tab.Int},
		{Name: "rest", Mode: tab.NewRef(a1)},
	})
	tab.SetIndicantTarget(a1, struct1)

	a2 := tab.NewIndicant("A")
	struct2 := tab.NewStruct([]PackItem{
		{Name: "n", Mode: tab.Int},
		{Name: "rest", Mode: tab.NewRef(a2)},
	})
	tab.SetIndicantTarget(a2, struct2)

	tab.Close()
	if !tab.Equivalent(a1, a2) {
		t.Error("two structurally identical recursive declarations should be equivalent")
	}
}

func TestWellFormedRejectsDirectCycle(t *testing.T) {
	tab := NewTable(diag.NewBag())
	a := tab.NewIndicant("A")
	tab.SetIndicantTarget(a, a) // MODE A = A
	tab.Close()
	if tab.IsWellFormed(a) {
		t.Error("MODE A = A must be rejected as not well formed")
	}
	if len(tab.diags.All()) == 0 {
		t.Error("expected a not-well-formed diagnostic")
	}
}

func TestWellFormedRejectsBareRefCycle(t *testing.T) {
	tab := NewTable(diag.NewBag())
	a := tab.NewIndicant("A")
	tab.SetIndicantTarget(a, tab.NewRef(a)) // MODE A = REF A
	tab.Close()
	if tab.IsWellFormed(a) {
		t.Error("MODE A = REF A must be rejected: yang with no yin")
	}
}

func TestWellFormedAcceptsStructRefCycle(t *testing.T) {
	tab := NewTable(diag.NewBag())
	a := tab.NewIndicant("A")
	s := tab.NewStruct([]PackItem{
		{Name: "n", Mode: tab.Int},
		{Name: "rest", Mode: tab.NewRef(a)},
	})
	tab.SetIndicantTarget(a, s)
	tab.Close()
	if !tab.IsWellFormed(a) {
		t.Error("MODE A = STRUCT(INT n, REF A rest) is well formed (yin from STRUCT, yang from REF)")
	}
}

func TestUnionAbsorptionAndDedup(t *testing.T) {
	tab := NewTable(diag.NewBag())
	inner := tab.NewUnion([]PackItem{{Mode: tab.Int}, {Mode: tab.Real}})
	outer := tab.NewUnion([]PackItem{{Mode: tab.Bool}, {Mode: inner}, {Mode: tab.Int}})
	tab.Close()
	outer = tab.Canon(outer)
	fields := tab.Get(outer).Fields
	if len(fields) != 3 {
		t.Fatalf("expected 3 deduplicated members after absorption, got %d: %v", len(fields), fields)
	}
}

func TestDeflexedContainsNoFlex(t *testing.T) {
	tab := NewTable(diag.NewBag())
	row := tab.NewRow(1, tab.Int)
	flexRow := tab.NewFlex(row)
	refFlexRow := tab.NewRef(flexRow)
	tab.Close()
	d := tab.Deflexed(refFlexRow)
	if tab.Get(tab.Canon(d)).Kind == Flex {
		t.Error("deflexed mode must not be FLEX at the top")
		return
	}
	inner := tab.Get(tab.Canon(d))
	if inner.Kind != Ref {
		t.Fatalf("expected REF at top of deflexed mode, got %s", inner.Kind)
	}
	sub := tab.Get(tab.Canon(inner.Sub))
	if sub.Kind == Flex {
		t.Error("deflexing must strip FLEX transitively, not just at the top")
	}
}

func TestDerefCompletelyRoundTrip(t *testing.T) {
	tab := NewTable(diag.NewBag())
	refref := tab.NewRef(tab.NewRef(tab.Int))
	if got := tab.DerefCompletely(refref); got != tab.Int {
		t.Errorf("depref_completely(REF REF INT) = %s, want INT", tab.Get(got))
	}
}

func TestDerowRoundTrip(t *testing.T) {
	tab := NewTable(diag.NewBag())
	row := tab.NewRow(1, tab.Int)
	if got := tab.Derow(row); got != tab.Int {
		t.Errorf("derow(row_of(INT)) = %s, want INT", tab.Get(got))
	}
	if got := tab.Derow(tab.Int); got != tab.Int {
		t.Error("derow of a non-row must return the mode unchanged")
	}
}

func TestCoercibilityAxioms(t *testing.T) {
	tab := NewTable(diag.NewBag())
	tab.Close()

	if _, ok := tab.Strong(tab.Int, tab.Int); !ok {
		t.Error("coerce(T,T,any_sort) must be the identity chain")
	}
	if _, ok := tab.Strong(tab.Int, tab.Void); !ok {
		t.Error("strong(T, VOID) must always succeed")
	}
	if _, ok := tab.Soft(tab.Void, tab.Int); ok {
		t.Error("soft(VOID, T) must fail unless T = VOID")
	}
	steps, ok := tab.Strong(tab.Int, tab.Real)
	wantWidening := []Step{{Kind: WideningStep, Mode: tab.Real}}
	if !ok || cmp.Diff(wantWidening, steps) != "" {
		t.Errorf("strong(INT, REAL) must be a single WIDENING, diff (-want +got):\n%s, ok=%v",
			cmp.Diff(wantWidening, steps), ok)
	}

	union := tab.NewUnion([]PackItem{{Mode: tab.Int}, {Mode: tab.Real}})
	tab.Close()
	steps, ok = tab.Firm(tab.Int, union)
	wantUniting := []Step{{Kind: UnitingStep, Mode: union}}
	if !ok || cmp.Diff(wantUniting, steps) != "" {
		t.Errorf("firm(T, UNION(...,T,...)) must be a single UNITING, diff (-want +got):\n%s, ok=%v",
			cmp.Diff(wantUniting, steps), ok)
	}
}

func TestChainedWidening(t *testing.T) {
	tab := NewTable(diag.NewBag())
	complexMode := tab.Complex
	tab.Close()
	steps, ok := tab.Strong(tab.Int, complexMode)
	if !ok {
		t.Fatal("INT should widen through REAL to COMPLEX")
	}
	want := []Step{
		{Kind: WideningStep, Mode: tab.Real},
		{Kind: WideningStep, Mode: complexMode},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("chained widening mismatch (-want +got):\n%s", diff)
	}
}

func TestBalanceFindsCommonMode(t *testing.T) {
	tab := NewTable(diag.NewBag())
	tab.Close()
	common, ok := tab.Balance([]ModeId{tab.Int, tab.Real})
	if !ok {
		t.Fatal("INT and REAL should balance")
	}
	if common != tab.Real {
		t.Errorf("INT/REAL should balance to REAL, got %s", tab.Get(common))
	}
}

func TestBalanceSingleBranch(t *testing.T) {
	tab := NewTable(diag.NewBag())
	common, ok := tab.Balance([]ModeId{tab.Int})
	if !ok || common != tab.Int {
		t.Error("a single branch balances to itself")
	}
}
