package mode

// This file implements the lazily-computed derived forms of §3.2
// (slice, deflexed, name, multiple, trim, rowed) plus the eager
// derived-mode generation pass of §4.1.2 point 3, which seeds the
// name/multiple forms for every REF-to-STRUCT and ROW-of-STRUCT mode
// found so far, feeding the outer fixed-point loop in Close.

// deriveFormsPass generates derived modes for the current mode
// population (§4.1.2 point 3): for every REF-to-STRUCT, a name-pack;
// for every ROW-of-STRUCT (including FLEX-ROW-of-STRUCT), a
// STRUCT-of-ROW-of-field multiple; plus deflexed forms. Returns true
// if any new mode was interned, so Close keeps iterating.
func (t *Table) deriveFormsPass() bool {
	changed := false
	for _, id := range t.All() {
		m := t.Get(id)
		switch m.Kind {
		case Ref:
			if before := m.nameId; t.tryDeriveName(id) != before {
				changed = true
			}
		case Row, Flex:
			if before := m.multipleId; t.tryDeriveMultiple(id) != before {
				changed = true
			}
		}
		if before := t.Get(t.Canon(id)).deflexedId; t.Deflexed(id) != before {
			changed = true
		}
	}
	return changed
}

// tryDeriveName computes (and memoizes) the name-pack of a REF mode
// whose inner mode is a STRUCT: a STRUCT mode whose every field is
// REF-to-original-field (§3.2 "name (the component mode when this is
// a REF-to-STRUCT)", §4.1.2 point 3). Returns NoMode (unchanged) for
// any other shape.
func (t *Table) tryDeriveName(refId ModeId) ModeId {
	m := t.Get(refId)
	if m.Kind != Ref || m.nameId != NoMode {
		return m.nameId
	}
	inner := t.Get(t.Canon(m.Sub))
	if inner.Kind != Struct {
		return NoMode
	}
	fields := make([]PackItem, len(inner.Fields))
	for i, f := range inner.Fields {
		fields[i] = PackItem{Name: f.Name, Mode: t.NewRef(f.Mode)}
	}
	m.nameId = t.NewStruct(fields)
	return m.nameId
}

// Name returns the name-pack of a REF-to-STRUCT mode, computing it on
// demand if Close has not already done so. Returns NoMode if id is not
// a REF-to-STRUCT.
func (t *Table) Name(id ModeId) ModeId {
	id = t.Canon(id)
	m := t.Get(id)
	if m.Kind != Ref {
		return NoMode
	}
	if m.nameId != NoMode {
		return m.nameId
	}
	return t.tryDeriveName(id)
}

// tryDeriveMultiple computes (and memoizes) the ROW-of-STRUCT ⇒
// STRUCT-of-ROW-of-field companion mode (§4.1.2 point 3), handling
// both plain ROW and FLEX ROW uniformly.
func (t *Table) tryDeriveMultiple(rowId ModeId) ModeId {
	m := t.Get(rowId)
	if m.multipleId != NoMode {
		return m.multipleId
	}
	flexOuter := m.Kind == Flex
	var row *Mode
	if flexOuter {
		row = t.Get(t.Canon(m.Sub))
		if row.Kind != Row {
			return NoMode
		}
	} else if m.Kind == Row {
		row = m
	} else {
		return NoMode
	}
	elem := t.Get(t.Canon(row.Sub))
	if elem.Kind != Struct {
		return NoMode
	}
	fields := make([]PackItem, len(elem.Fields))
	for i, f := range elem.Fields {
		rowed := t.NewRow(row.Dim, f.Mode)
		if flexOuter {
			rowed = t.NewFlex(rowed)
		}
		fields[i] = PackItem{Name: f.Name, Mode: rowed}
	}
	m.multipleId = t.NewStruct(fields)
	return m.multipleId
}

// Multiple returns the ROW-of-STRUCT companion mode, computing it on
// demand if necessary.
func (t *Table) Multiple(id ModeId) ModeId {
	id = t.Canon(id)
	m := t.Get(id)
	if m.Kind != Row && m.Kind != Flex {
		return NoMode
	}
	if m.multipleId != NoMode {
		return m.multipleId
	}
	return t.tryDeriveMultiple(id)
}

// Deflexed strips every FLEX from the subtree of id (§4.1.2 point 3,
// §8 round-trip law "make_deflexed(m) contains no FLEX"). The
// deflexing regime that governs whether FLEX and non-FLEX modes are
// mutually coercible is a property of the coercion context (§4.1.3),
// not of this derivation, Deflexed always produces the fully-stripped
// form.
func (t *Table) Deflexed(id ModeId) ModeId {
	canon := t.Canon(id)
	m := t.Get(canon)
	if m.deflexedId != NoMode {
		return m.deflexedId
	}
	var result ModeId
	switch m.Kind {
	case Flex:
		result = t.Deflexed(m.Sub)
	case Ref:
		inner := t.Deflexed(m.Sub)
		if inner == m.Sub {
			result = canon
		} else {
			result = t.NewRef(inner)
		}
	case Row:
		inner := t.Deflexed(m.Sub)
		if inner == m.Sub {
			result = canon
		} else {
			result = t.NewRow(m.Dim, inner)
		}
	case Proc:
		params := make([]PackItem, len(m.Params))
		sameParams := true
		for i, p := range m.Params {
			d := t.Deflexed(p.Mode)
			if d != p.Mode {
				sameParams = false
			}
			params[i] = PackItem{Name: p.Name, Mode: d}
		}
		res := t.Deflexed(m.Result)
		if sameParams && res == m.Result {
			result = canon
		} else {
			result = t.NewProc(params, res)
		}
	case Struct, Union, Series, Stowed:
		fields := make([]PackItem, len(m.Fields))
		same := true
		for i, f := range m.Fields {
			d := t.Deflexed(f.Mode)
			if d != f.Mode {
				same = false
			}
			fields[i] = PackItem{Name: f.Name, Mode: d}
		}
		if same {
			result = canon
		} else {
			switch m.Kind {
			case Union:
				result = t.NewUnion(fields)
			case Series:
				result = t.NewSeries(fields)
			case Stowed:
				result = t.NewStowed(fields)
			default:
				result = t.NewStruct(fields)
			}
		}
	default:
		result = canon
	}
	m.deflexedId = result
	return result
}

// Slice returns the element/slice mode one ROW/FLEX layer down, or
// NoMode if id does not denote a row. This mirrors the `slice` cache
// of §3.2; for ROW it is simply Sub, kept as a named accessor so
// callers don't need to know the internal field layout.
func (t *Table) Slice(id ModeId) ModeId {
	m := t.Get(t.Canon(id))
	switch m.Kind {
	case Row, Flex:
		if m.sliceId == NoMode {
			m.sliceId = m.Sub
		}
		return m.sliceId
	default:
		return NoMode
	}
}

// Trim returns the mode of id after trimming away one dimension of a
// ROW (e.g. slicing a single row out of a matrix): ROW(n, T) ⇒
// ROW(n-1, T) when n>1, or T itself when n==1. NoMode for non-rows.
func (t *Table) Trim(id ModeId) ModeId {
	m := t.Get(t.Canon(id))
	if m.Kind != Row {
		return NoMode
	}
	if m.trimId != NoMode {
		return m.trimId
	}
	if m.Dim <= 1 {
		m.trimId = m.Sub
	} else {
		m.trimId = t.NewRow(m.Dim-1, m.Sub)
	}
	return m.trimId
}

// Rowed returns the one-element-row mode ROW(1, id) for a scalar id , 
// the mode produced by the rowing coercion (§4.1.3, glossary
// "Rowing"). Memoized per id so repeated rowing of the same mode
// reuses one ModeId.
func (t *Table) Rowed(id ModeId) ModeId {
	canon := t.Canon(id)
	m := t.Get(canon)
	if m.rowedId != NoMode {
		return m.rowedId
	}
	m.rowedId = t.NewRow(1, canon)
	return m.rowedId
}

// DerefCompletely dereferences id through every REF layer, returning
// the first non-REF mode reached (§8 round-trip law
// "depref_completely(ref_to(T)) = T").
func (t *Table) DerefCompletely(id ModeId) ModeId {
	id = t.Canon(id)
	for {
		m := t.Get(id)
		if m.Kind != Ref {
			return id
		}
		id = t.Canon(m.Sub)
	}
}

// Derow returns the element mode of a ROW/FLEX-ROW, or id unchanged if
// id is not itself a row (§8 round-trip law "derow(row_of(T)) = T
// when T is not itself a ROW").
func (t *Table) Derow(id ModeId) ModeId {
	canon := t.Canon(id)
	m := t.Get(canon)
	switch m.Kind {
	case Row:
		return t.Canon(m.Sub)
	case Flex:
		return t.Derow(m.Sub)
	default:
		return canon
	}
}
