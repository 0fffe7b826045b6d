package mode

// Close runs the fixed-point equivalence-closure loop described in
// §4.1.2: absorb nested unions, contract duplicate union members,
// generate derived modes, and find pairwise equivalences, repeating
// until a full pass produces no modifications.
func (t *Table) Close() {
	for {
		changed := false
		if t.absorbUnionsPass() {
			changed = true
		}
		if t.dedupeUnionsPass() {
			changed = true
		}
		if t.deriveFormsPass() {
			changed = true
		}
		if t.equivalencePass() {
			changed = true
		}
		if !changed {
			break
		}
	}
	t.wellFormedPass()
	t.hasRowsPass()
}

// absorbUnionsPass flattens UNION(A, UNION(B,C)) into UNION(A,B,C)
// (§4.1.2 point 1).
func (t *Table) absorbUnionsPass() bool {
	changed := false
	for _, id := range t.All() {
		m := t.Get(id)
		if m.Kind != Union {
			continue
		}
		flat := make([]PackItem, 0, len(m.Fields))
		didFlatten := false
		for _, f := range m.Fields {
			sub := t.Get(t.Canon(f.Mode))
			if sub.Kind == Union {
				didFlatten = true
				flat = append(flat, sub.Fields...)
			} else {
				flat = append(flat, f)
			}
		}
		if didFlatten {
			m.Fields = flat
			changed = true
		}
	}
	return changed
}

// dedupeUnionsPass contracts duplicate members of a UNION (§4.1.2
// point 2): UNION(A,B,A) → UNION(A,B).
func (t *Table) dedupeUnionsPass() bool {
	changed := false
	for _, id := range t.All() {
		m := t.Get(id)
		if m.Kind != Union {
			continue
		}
		kept := make([]PackItem, 0, len(m.Fields))
		for _, f := range m.Fields {
			dup := false
			for _, k := range kept {
				if t.structurallyEquivalent(f.Mode, k.Mode) {
					dup = true
					break
				}
			}
			if !dup {
				kept = append(kept, f)
			}
		}
		if len(kept) != len(m.Fields) {
			m.Fields = kept
			changed = true
		}
	}
	return changed
}

// equivalencePass finds structurally equivalent mode pairs and sets
// the younger mode's Equivalent pointer to the elder (§4.1.2 point 4,
// §3.2 "Equivalence invariant"). Comparison is restricted to modes
// sharing a structural pre-hash, so this stays well short of true
// O(n^2) once the table has more than a handful of user modes.
func (t *Table) equivalencePass() bool {
	changed := false
	for _, key := range t.sortedShapeKeys() {
		ids := t.byShape[key]
		for i := 0; i < len(ids); i++ {
			a := t.Canon(ids[i])
			if t.Get(a).Equivalent != NoMode {
				continue
			}
			for j := i + 1; j < len(ids); j++ {
				b := t.Canon(ids[j])
				if a == b || t.Get(b).Equivalent != NoMode {
					continue
				}
				if t.structurallyEquivalent(a, b) {
					elder, younger := a, b
					if younger < elder {
						elder, younger = younger, elder
					}
					if t.Get(younger).Equivalent != elder {
						t.Get(younger).Equivalent = elder
						changed = true
					}
				}
			}
		}
	}
	return changed
}

// structurallyEquivalent implements the equivalence invariant of §3.2:
// two modes are equivalent iff, after chasing Equivalent, they are
// identical, or have the same shape and their components are
// recursively equivalent under the postulation that the two modes
// being compared right now are themselves equivalent (this is what
// lets recursive modes like `MODE A = STRUCT(INT n, REF A rest)`
// compare equal to a structurally identical declaration without
// infinite recursion).
func (t *Table) structurallyEquivalent(a, b ModeId) bool {
	return t.equivUnder(a, b, map[[2]ModeId]bool{})
}

func (t *Table) equivUnder(a, b ModeId, postulated map[[2]ModeId]bool) bool {
	a, b = t.Canon(a), t.Canon(b)
	if a == b {
		return true
	}
	key := pairKey(a, b)
	if postulated[key] {
		return true
	}
	ma, mb := t.Get(a), t.Get(b)
	if ma.Kind != mb.Kind {
		return false
	}
	postulated[key] = true
	switch ma.Kind {
	case Standard:
		return ma.Name == mb.Name && ma.Sizety == mb.Sizety
	case Ref, Flex:
		return t.equivUnder(ma.Sub, mb.Sub, postulated)
	case Row:
		return ma.Dim == mb.Dim && t.equivUnder(ma.Sub, mb.Sub, postulated)
	case Proc:
		if len(ma.Params) != len(mb.Params) {
			return false
		}
		for i := range ma.Params {
			if !t.equivUnder(ma.Params[i].Mode, mb.Params[i].Mode, postulated) {
				return false
			}
		}
		return t.equivUnder(ma.Result, mb.Result, postulated)
	case Struct, Series, Stowed:
		if len(ma.Fields) != len(mb.Fields) {
			return false
		}
		for i := range ma.Fields {
			if ma.Fields[i].Name != mb.Fields[i].Name {
				return false
			}
			if !t.equivUnder(ma.Fields[i].Mode, mb.Fields[i].Mode, postulated) {
				return false
			}
		}
		return true
	case Union:
		if len(ma.Fields) != len(mb.Fields) {
			return false
		}
		used := make([]bool, len(mb.Fields))
		for _, fa := range ma.Fields {
			found := false
			for j, fb := range mb.Fields {
				if used[j] {
					continue
				}
				if t.equivUnder(fa.Mode, fb.Mode, postulated) {
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case Indicant:
		return ma.Name == mb.Name
	default:
		return false
	}
}

func pairKey(a, b ModeId) [2]ModeId {
	if a < b {
		return [2]ModeId{a, b}
	}
	return [2]ModeId{b, a}
}

// Equivalent reports whether a and b are structurally equivalent,
// chasing Equivalent pointers first (the public form of the invariant
// in §3.2; safe to call before or after Close, though results are only
// guaranteed complete after Close has reached its fixed point).
func (t *Table) Equivalent(a, b ModeId) bool {
	if t.Canon(a) == t.Canon(b) {
		return true
	}
	return t.structurallyEquivalent(a, b)
}
