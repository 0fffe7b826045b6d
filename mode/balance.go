package mode

// Balance implements §4.1.4: inside any clause that may yield multiple
// branches (serial, conditional, case, united case), the resulting
// mode is the unique mode every branch can be STRONG-coerced to,
// discovered by iterating candidates of increasing dereferencing depth
// through the UNION of branch modes.
//
// Balance returns NoMode, false if no common mode exists.
func (t *Table) Balance(branches []ModeId) (ModeId, bool) {
	if len(branches) == 0 {
		return t.Void, true
	}
	uniq := dedupeIds(t, branches)
	if len(uniq) == 1 {
		return uniq[0], true
	}
	candidates := t.balanceCandidates(uniq)
	for _, cand := range candidates {
		if t.allCoerceTo(uniq, cand) {
			return cand, true
		}
	}
	return NoMode, false
}

// balanceCandidates builds the search order: every branch mode itself,
// then each branch dereferenced one further MEEK step at a time, then
// the UNION of all branches (so a united case over heterogeneous
// branches still balances to a sensible united mode), in that order , 
// "candidates of increasing dereferencing depth" (§4.1.4).
func (t *Table) balanceCandidates(branches []ModeId) []ModeId {
	var out []ModeId
	seen := map[ModeId]bool{}
	add := func(id ModeId) {
		c := t.Canon(id)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, b := range branches {
		add(b)
	}
	for depth := 0; depth < maxBalanceDepth; depth++ {
		any := false
		next := make([]ModeId, 0, len(branches))
		for _, b := range branches {
			m := t.Get(t.Canon(b))
			if m.Kind == Ref {
				next = append(next, m.Sub)
				any = true
			} else {
				next = append(next, b)
			}
		}
		if !any {
			break
		}
		for _, n := range next {
			add(n)
		}
		branches = next
	}
	members := make([]PackItem, len(branches))
	for i, b := range branches {
		members[i] = PackItem{Mode: b}
	}
	add(t.NewUnion(members))
	return out
}

const maxBalanceDepth = 8

func (t *Table) allCoerceTo(branches []ModeId, target ModeId) bool {
	for _, b := range branches {
		if _, ok := t.Strong(b, target); !ok && t.Canon(b) != target {
			return false
		}
	}
	return true
}

func dedupeIds(t *Table, ids []ModeId) []ModeId {
	out := make([]ModeId, 0, len(ids))
	for _, id := range ids {
		c := t.Canon(id)
		dup := false
		for _, o := range out {
			if o == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
