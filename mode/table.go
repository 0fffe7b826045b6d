package mode

import (
	"fmt"

	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/lists/arraylist"
	"golang.org/x/exp/slices"
)

// Table is the process-wide arena of a single translation unit (§4.1.1
// "Ownership": modes live in a process-wide arena; here scoped to one
// Table per compiled program rather than a true process global, which
// makes the type safe to use concurrently from independent test
// cases).
type Table struct {
	modes []*Mode // modes[0] is unused (ModeId 0 == NoMode)
	diags *diag.Bag

	// standard interns primitive STANDARD modes by "name@sizety" so
	// every occurrence of e.g. LONG INT reuses the same ModeId
	// regardless of where it is written (§4.1.1).
	standard map[string]ModeId

	// byShape groups mode ids by a cheap structural pre-hash so the
	// O(n^2) pairwise equivalence pass in Close only ever compares
	// modes that could plausibly be equivalent (§4.1.2 point 4).
	byShape map[string][]ModeId

	// well-known ids, populated by NewTable via the standard ctors.
	Void  ModeId
	Int   ModeId
	Real  ModeId
	Bool  ModeId
	Char  ModeId
	Bits  ModeId
	Complex ModeId
	Bytes ModeId
}

// NewTable creates an empty mode table with the scalar standard modes
// pre-interned (§4.1.1).
func NewTable(bag *diag.Bag) *Table {
	t := &Table{
		modes:    []*Mode{nil},
		diags:    bag,
		standard: make(map[string]ModeId),
		byShape:  make(map[string][]ModeId),
	}
	t.Void = t.Standard("VOID", 0)
	t.Int = t.Standard("INT", 0)
	t.Real = t.Standard("REAL", 0)
	t.Bool = t.Standard("BOOL", 0)
	t.Char = t.Standard("CHAR", 0)
	t.Bits = t.Standard("BITS", 0)
	t.Complex = t.Standard("COMPLEX", 0)
	t.Bytes = t.Standard("BYTES", 0)
	return t
}

// Get dereferences a ModeId to its Mode. Panics on NoMode or an id not
// owned by this table, both are programmer errors, never a condition
// arising from user input.
func (t *Table) Get(id ModeId) *Mode {
	if id <= 0 || int(id) >= len(t.modes) {
		panic(fmt.Sprintf("mode: invalid ModeId %d", id))
	}
	return t.modes[id]
}

// Canon chases Equivalent pointers until reaching a mode with no
// Equivalent set, per the equivalence invariant of §3.2. Every derived
// operation must call this before inspecting a mode's shape.
func (t *Table) Canon(id ModeId) ModeId {
	seen := make(map[ModeId]bool)
	for {
		m := t.Get(id)
		if m.Equivalent == NoMode {
			return id
		}
		if seen[id] {
			// A cycle in Equivalent would violate the invariant that
			// the loop in Close always collapses towards an elder,
			// acyclic representative; guard against it defensively.
			return id
		}
		seen[id] = true
		id = m.Equivalent
	}
}

func (t *Table) intern(m *Mode) ModeId {
	id := ModeId(len(t.modes))
	m.Id = id
	m.shapeHash = t.shapeHashOf(m)
	t.modes = append(t.modes, m)
	t.byShape[m.shapeHash] = append(t.byShape[m.shapeHash], id)
	return id
}

// shapeHashOf computes a cheap structural pre-hash (kind, name, sizety
// and dimension; component modes are left out, since two distinct
// component ids may later turn out equivalent) using cnf/structhash,
// so Close's pairwise pass can skip comparing modes whose shapes could
// never unify.
func (t *Table) shapeHashOf(m *Mode) string {
	key := struct {
		Kind   Kind
		Name   string
		Sizety int
		Dim    int
	}{m.Kind, m.Name, m.Sizety, m.Dim}
	h, err := structhash.Hash(key, 1)
	if err != nil {
		// structhash only fails on unhashable types, none of which
		// appear above; fall back to a coarse key rather than panic.
		return fmt.Sprintf("%d", m.Kind)
	}
	return h
}

// Standard interns a primitive mode identified by bare name and
// sizety, reusing an existing entry if one was already interned
// (§4.1.1).
func (t *Table) Standard(name string, sizety int) ModeId {
	key := fmt.Sprintf("%s@%d", name, sizety)
	if id, ok := t.standard[key]; ok {
		return id
	}
	id := t.intern(&Mode{Kind: Standard, Name: name, Sizety: sizety})
	t.standard[key] = id
	return id
}

// NewRef interns a REF(sub) mode.
func (t *Table) NewRef(sub ModeId) ModeId {
	return t.intern(&Mode{Kind: Ref, Sub: sub})
}

// NewFlex interns a FLEX(sub) mode. sub is expected to be a ROW.
func (t *Table) NewFlex(sub ModeId) ModeId {
	return t.intern(&Mode{Kind: Flex, Sub: sub})
}

// NewRow interns a ROW(dim, slice) mode.
func (t *Table) NewRow(dim int, slice ModeId) ModeId {
	return t.intern(&Mode{Kind: Row, Dim: dim, Sub: slice})
}

// NewProc interns a PROC(params)result mode.
func (t *Table) NewProc(params []PackItem, result ModeId) ModeId {
	return t.intern(&Mode{Kind: Proc, Params: append([]PackItem(nil), params...), Result: result})
}

// NewStruct interns a STRUCT(fields) mode.
func (t *Table) NewStruct(fields []PackItem) ModeId {
	return t.intern(&Mode{Kind: Struct, Fields: append([]PackItem(nil), fields...)})
}

// NewUnion interns a UNION(members) mode. Members are not yet absorbed
// or deduplicated; Close performs that (§4.1.2 points 1–2).
func (t *Table) NewUnion(members []PackItem) ModeId {
	return t.intern(&Mode{Kind: Union, Fields: append([]PackItem(nil), members...)})
}

// NewIndicant interns a placeholder INDICANT(name) mode whose target
// is not yet known, to support recursive MODE declarations (e.g.
// `MODE A = STRUCT(INT n, REF A rest)` interns the REF's inner
// INDICANT before `A`'s RHS has finished being built).
// SetIndicantTarget fills it in afterwards.
func (t *Table) NewIndicant(name string) ModeId {
	return t.intern(&Mode{Kind: Indicant, Name: name})
}

// SetIndicantTarget completes a previously-interned INDICANT, pointing
// it at the mode it denotes.
func (t *Table) SetIndicantTarget(indicant, target ModeId) {
	m := t.Get(indicant)
	if m.Kind != Indicant {
		panic("mode: SetIndicantTarget on non-indicant mode")
	}
	m.Sub = target
}

// NewIndicantNode is like NewIndicant but additionally records the
// declarer node the indicant originates from, so a later
// not-well-formed diagnostic can point at source (§8 invariant: "at
// least one diagnostic was emitted... referencing a node whose mode is m").
func (t *Table) NewIndicantNode(name string, declNode core.Node) ModeId {
	id := t.NewIndicant(name)
	t.Get(id).DeclNode = declNode
	return id
}

// NewSeries interns a transient SERIES_MODE pack, used only during
// mode checking (§3.2).
func (t *Table) NewSeries(items []PackItem) ModeId {
	return t.intern(&Mode{Kind: Series, Fields: append([]PackItem(nil), items...)})
}

// NewStowed interns a transient STOWED_MODE pack (§3.2).
func (t *Table) NewStowed(items []PackItem) ModeId {
	return t.intern(&Mode{Kind: Stowed, Fields: append([]PackItem(nil), items...)})
}

// All returns every interned ModeId in declaration order, used for
// diagnostics and tests that need deterministic iteration.
func (t *Table) All() []ModeId {
	ids := make([]ModeId, 0, len(t.modes)-1)
	for i := 1; i < len(t.modes); i++ {
		ids = append(ids, ModeId(i))
	}
	return ids
}

// sortedShapeKeys returns byShape's keys in sorted order, so that
// Close's pairwise pass is deterministic across runs (important for
// golden-file diagnostics tests).
func (t *Table) sortedShapeKeys() []string {
	keys := make([]string, 0, len(t.byShape))
	for k := range t.byShape {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// candidatesList wraps a []ModeId in an arraylist, matching the
// teacher's preferred gods container for ordered worklists (lr/tables.go).
func candidatesList(ids []ModeId) *arraylist.List {
	l := arraylist.New()
	for _, id := range ids {
		l.Add(id)
	}
	return l
}
