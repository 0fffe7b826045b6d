package symtab

import (
	"github.com/a68/core"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Table holds the five separate tag lists of one scope (§3.3):
// identifiers, indicants, labels, operators and priority declarations.
// Lookups use a plain map for speed; linkedhashmap additionally
// preserves first-declaration order per family, which Each iterates
// in.
type Table struct {
	families [5]map[string]*Tag
	order    [5]*linkedhashmap.Map // string -> *Tag, insertion-ordered

	// operators holds every Operators-family tag declared under a given
	// name, in declaration order. Unlike the other four families, an
	// operator symbol legitimately carries more than one signature
	// (dyadic "+" over INT and over REAL are both "+"), so families[]'s
	// one-tag-per-name slot cannot represent the full overload set; this
	// is the multimap that does (§3.3, §4.3.1).
	operators map[string][]*Tag

	// AllowLengthety gates the lengthety identifier mapping ("short
	// sqrt" → "sqrt", §4.2, §9 Open Questions item 3). On for the
	// standard environ, off for user scopes by default (DESIGN.md).
	AllowLengthety bool

	// IsStandardEnviron marks the outermost scope's table, so the
	// binder can tell "tag hides prelude" warnings (shadowing the
	// standard environ) from ordinary multi-level shadowing.
	IsStandardEnviron bool
}

// NewTable creates an empty symbol table with all five families ready.
func NewTable() *Table {
	tb := &Table{operators: make(map[string][]*Tag)}
	for i := range tb.families {
		tb.families[i] = make(map[string]*Tag)
		tb.order[i] = linkedhashmap.New()
	}
	return tb
}

// Resolve looks up name within this table's family only (no walk to
// enclosing scopes, that's ScopeTree's job).
func (tb *Table) Resolve(family core.TagFamily, name string) *Tag {
	return tb.families[family][name]
}

// Define inserts a new tag for name in the given family, returning the
// new tag and the previously-stored tag under that name (or nil). A
// second definition of the same name within the same family is a
// "multiply declared" condition (§3.3 invariant) that the caller
// (the binder) is responsible for diagnosing, Define itself just
// reports the old value so the caller can decide.
func (tb *Table) Define(family core.TagFamily, name string, decl core.Node) (*Tag, *Tag) {
	old := tb.families[family][name]
	tg := newTag(name, family)
	tg.Decl = decl
	tg.Table = tb
	tb.families[family][name] = tg
	if old == nil {
		tb.order[family].Put(name, tg)
	}
	if family == core.Operators {
		tb.operators[name] = append(tb.operators[name], tg)
	}
	return tg, old
}

// Overloads returns every Operators-family tag declared under name in
// this table only (no scope walk), in declaration order, covering the
// full set of signatures an operator symbol carries (§3.3) rather than
// just the single most recently declared one.
func (tb *Table) Overloads(name string) []*Tag {
	return tb.operators[name]
}

// Insert adds a pre-built tag (e.g. one moved from another scope, as
// happens with FOR identifiers moving into the DO-range table, §4.2
// step 2). Returns the previously-stored tag, if any.
func (tb *Table) Insert(tg *Tag) *Tag {
	old := tb.families[tg.Family][tg.Name]
	tb.families[tg.Family][tg.Name] = tg
	if old == nil {
		tb.order[tg.Family].Put(tg.Name, tg)
	}
	return old
}

// Size counts the tags stored for one family.
func (tb *Table) Size(family core.TagFamily) int {
	return len(tb.families[family])
}

// Each iterates a family's tags in first-declaration order.
func (tb *Table) Each(family core.TagFamily, fn func(*Tag)) {
	it := tb.order[family].Iterator()
	for it.Next() {
		fn(it.Value().(*Tag))
	}
}
