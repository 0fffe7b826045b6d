package mode

import "github.com/a68/diag"

// wellFormedPass checks the yin-yang rule (§3.2 "Well-formedness"):
// a mode declaration is well-formed iff on every cycle through the
// type graph at least one REF (yang) and at least one non-REF,
// non-PROC layer (yin) appear. Only INDICANT modes can close a cycle
// (recursive MODE declarations are the only source of type-graph
// cycles), so this walks from every INDICANT.
func (t *Table) wellFormedPass() {
	for _, id := range t.All() {
		m := t.Get(id)
		if m.Kind != Indicant || m.wellFormedComputed {
			continue
		}
		m.WellFormed = t.wellFormedFrom(id)
		m.wellFormedComputed = true
		if !m.WellFormed && t.diags != nil {
			t.diags.Report(m.DeclNode, diag.SemanticError, diag.KeyNotWellFormed,
				"mode %s is not well formed: every cycle must mix REF and a non-REF, non-PROC layer", m.Name)
		}
	}
	// Any mode built on top of an ill-formed indicant inherits the
	// ill-formed verdict (well-formedness is a property of the whole
	// declaration, not just the cycle-closing indicant).
	for _, id := range t.All() {
		m := t.Get(id)
		if m.wellFormedComputed {
			continue
		}
		m.WellFormed = t.containsOnlyWellFormed(id, map[ModeId]bool{})
		m.wellFormedComputed = true
	}
}

func (t *Table) containsOnlyWellFormed(id ModeId, seen map[ModeId]bool) bool {
	canon := t.Canon(id)
	if seen[canon] {
		return true
	}
	seen[canon] = true
	m := t.Get(canon)
	if m.Kind == Indicant {
		return m.WellFormed
	}
	ok := true
	walkSub := func(sub ModeId) {
		if sub != NoMode && !t.containsOnlyWellFormed(sub, seen) {
			ok = false
		}
	}
	switch m.Kind {
	case Ref, Flex, Row:
		walkSub(m.Sub)
	case Proc:
		walkSub(m.Result)
		for _, p := range m.Params {
			walkSub(p.Mode)
		}
	case Struct, Union, Series, Stowed:
		for _, f := range m.Fields {
			walkSub(f.Mode)
		}
	}
	return ok
}

// wellFormedFrom walks the type graph reachable from id, returning
// false the instant a cycle closes without having crossed at least one
// REF edge (yang) and one non-REF/non-PROC edge (yin) since the
// cycle's start.
func (t *Table) wellFormedFrom(id ModeId) bool {
	visiting := map[ModeId]bool{}
	var walk func(id ModeId, sawRef, sawYin bool) bool
	walk = func(id ModeId, sawRef, sawYin bool) bool {
		canon := t.Canon(id)
		if visiting[canon] {
			return sawRef && sawYin
		}
		m := t.Get(canon)
		switch m.Kind {
		case Indicant:
			if m.Sub == NoMode {
				return true // forward reference not yet resolved
			}
			visiting[canon] = true
			ok := walk(m.Sub, sawRef, sawYin)
			delete(visiting, canon)
			return ok
		case Ref:
			return walk(m.Sub, true, sawYin)
		case Proc:
			if !walk(m.Result, sawRef, sawYin) {
				return false
			}
			for _, p := range m.Params {
				if !walk(p.Mode, sawRef, sawYin) {
					return false
				}
			}
			return true
		case Struct:
			for _, f := range m.Fields {
				if !walk(f.Mode, sawRef, true) {
					return false
				}
			}
			return true
		case Union:
			for _, f := range m.Fields {
				if !walk(f.Mode, sawRef, sawYin) {
					return false
				}
			}
			return true
		case Flex, Row:
			return walk(m.Sub, sawRef, true)
		default:
			return true
		}
	}
	return walk(id, false, false)
}

// IsWellFormed reports the memoized well-formedness verdict for id,
// computing the full pass first if it has not run yet.
func (t *Table) IsWellFormed(id ModeId) bool {
	canon := t.Canon(id)
	m := t.Get(canon)
	if !m.wellFormedComputed {
		t.wellFormedPass()
	}
	return t.Get(canon).WellFormed
}

// hasRowsPass computes HasRef/HasFlex/HasRows for every mode (§3.2;
// §8 invariant "if has_rows(m) then m directly or transitively
// contains a ROW or FLEX shape").
func (t *Table) hasRowsPass() {
	memo := map[ModeId][3]bool{}
	var compute func(id ModeId, seen map[ModeId]bool) [3]bool
	compute = func(id ModeId, seen map[ModeId]bool) [3]bool {
		canon := t.Canon(id)
		if v, ok := memo[canon]; ok {
			return v
		}
		if seen[canon] {
			return [3]bool{}
		}
		seen[canon] = true
		m := t.Get(canon)
		var ref, flex, rows bool
		switch m.Kind {
		case Ref:
			ref = true
			sub := compute(m.Sub, seen)
			flex, rows = sub[1], sub[2]
		case Flex:
			flex, rows = true, true
			sub := compute(m.Sub, seen)
			ref = sub[0]
		case Row:
			rows = true
			sub := compute(m.Sub, seen)
			ref, flex = sub[0], sub[1]
		case Proc:
			sub := compute(m.Result, seen)
			ref, flex, rows = sub[0], sub[1], sub[2]
		case Struct, Union, Series, Stowed:
			for _, f := range m.Fields {
				sub := compute(f.Mode, seen)
				ref = ref || sub[0]
				flex = flex || sub[1]
				rows = rows || sub[2]
			}
		case Indicant:
			if m.Sub != NoMode {
				sub := compute(m.Sub, seen)
				ref, flex, rows = sub[0], sub[1], sub[2]
			}
		}
		v := [3]bool{ref, flex, rows}
		memo[canon] = v
		return v
	}
	for _, id := range t.All() {
		v := compute(id, map[ModeId]bool{})
		m := t.Get(id)
		m.HasRef, m.HasFlex, m.HasRows = v[0], v[1], v[2]
	}
}
