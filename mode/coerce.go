package mode

// This file implements the five coercion-context predicates of §4.1.3:
// Soft, Weak, Meek, Firm and Strong. Each reports whether a value of
// mode `from` can be coerced to mode `to` under that context, and,
// when asked for the chain (not just the predicate), returns the
// ordered list of coercion steps to apply (§4.3.2). Strong returns the
// first chain that applies, trying in this order: the FIRM chain
// (dereferencing/deproceduring, then uniting), voiding, widening
// (possibly chained), then rowing. No predicate produces a ref-rowing
// step.

// CoercionKind labels one link of a coercion chain.
type CoercionKind int8

const (
	Identity CoercionKind = iota
	VoidingStep
	UnitingStep
	RowingStep
	WideningStep
	RefRowingStep
	DereferencingStep
	DeprocedureingStep
)

func (k CoercionKind) String() string {
	switch k {
	case Identity:
		return "identity"
	case VoidingStep:
		return "voiding"
	case UnitingStep:
		return "uniting"
	case RowingStep:
		return "rowing"
	case WideningStep:
		return "widening"
	case RefRowingStep:
		return "ref-rowing"
	case DereferencingStep:
		return "dereferencing"
	case DeprocedureingStep:
		return "deproceduring"
	default:
		return "?"
	}
}

// Step is one coercion wrapping a subexpression, carrying the
// intermediate mode it produces.
type Step struct {
	Kind CoercionKind
	Mode ModeId
}

// DeflexRegime controls whether FLEX and non-FLEX row modes are
// mutually interchangeable (§4.1.3).
type DeflexRegime int8

const (
	RegimeSafe DeflexRegime = iota
	RegimeForce
	RegimeAlias
	RegimeNo
)

// widenTarget returns the single-step numeric/bits widening target for
// a STANDARD mode, if any (§4.1.3, §4.3.1).
func (t *Table) widenTarget(from ModeId) (ModeId, bool) {
	m := t.Get(from)
	if m.Kind != Standard {
		return NoMode, false
	}
	switch m.Name {
	case "INT":
		return t.Standard("REAL", m.Sizety), true
	case "REAL":
		return t.Standard("COMPLEX", m.Sizety), true
	case "BITS":
		// Row-producing widening: BITS → []BOOL.
		return t.Rowed(t.Standard("BOOL", 0)), true
	case "BYTES":
		// Row-producing widening: BYTES → []CHAR.
		return t.Rowed(t.Standard("CHAR", 0)), true
	}
	return NoMode, false
}

// Soft reports whether `from` can be coerced to `to` under the SOFT
// context: identity, or deproceduring along a chain (§4.1.3).
func (t *Table) Soft(from, to ModeId) ([]Step, bool) {
	from, to = t.Canon(from), t.Canon(to)
	if from == to {
		return nil, true
	}
	steps := []Step{}
	cur := from
	for {
		m := t.Get(cur)
		if m.Kind != Proc || len(m.Params) != 0 {
			break
		}
		cur = t.Canon(m.Result)
		steps = append(steps, Step{DeprocedureingStep, cur})
		if cur == to {
			return steps, true
		}
	}
	return nil, false
}

// Weak reports whether `from` can be coerced to `to` under the WEAK
// context: identity, or a dereference/deprocedure chain whose tail is
// not REF-to-ROW and not REF-to-STRUCT (§4.1.3, this enables aliasing
// of rows without rowing).
func (t *Table) Weak(from, to ModeId) ([]Step, bool) {
	from, to = t.Canon(from), t.Canon(to)
	if from == to {
		return nil, true
	}
	steps := []Step{}
	cur := from
	for {
		m := t.Get(cur)
		switch {
		case m.Kind == Ref:
			inner := t.Get(t.Canon(m.Sub))
			if inner.Kind == Row || inner.Kind == Struct || inner.Kind == Flex {
				return nil, false // weak context stops before a row/struct deref
			}
			cur = t.Canon(m.Sub)
			steps = append(steps, Step{DereferencingStep, cur})
		case m.Kind == Proc && len(m.Params) == 0:
			cur = t.Canon(m.Result)
			steps = append(steps, Step{DeprocedureingStep, cur})
		default:
			return nil, false
		}
		if cur == to {
			return steps, true
		}
	}
}

// Meek reports whether `from` can be coerced to `to` under the MEEK
// context: identity, or a dereference/deprocedure chain terminating
// freely (§4.1.3).
func (t *Table) Meek(from, to ModeId) ([]Step, bool) {
	from, to = t.Canon(from), t.Canon(to)
	if from == to {
		return nil, true
	}
	steps := []Step{}
	cur := from
	for {
		m := t.Get(cur)
		switch {
		case m.Kind == Ref:
			cur = t.Canon(m.Sub)
			steps = append(steps, Step{DereferencingStep, cur})
		case m.Kind == Proc && len(m.Params) == 0:
			cur = t.Canon(m.Result)
			steps = append(steps, Step{DeprocedureingStep, cur})
		default:
			return nil, false
		}
		if cur == to {
			return steps, true
		}
	}
}

// Firm reports whether `from` can be coerced to `to` under the FIRM
// context: meek, plus uniting (T → any UNION(…,T,…) modulo deflexing)
// (§4.1.3).
func (t *Table) Firm(from, to ModeId) ([]Step, bool) {
	if steps, ok := t.Meek(from, to); ok {
		return steps, true
	}
	from = t.Canon(from)
	toCanon := t.Canon(to)
	toMode := t.Get(toCanon)
	if toMode.Kind == Union {
		for _, member := range toMode.Fields {
			if t.Equivalent(t.Deflexed(from), t.Deflexed(member.Mode)) {
				return []Step{{UnitingStep, toCanon}}, true
			}
		}
	}
	return nil, false
}

// Strong reports whether `from` can be coerced to `to` under the
// STRONG context: firm, plus widening, rowing (producing a transient
// row) and voiding (anything → VOID) (§4.1.3).
func (t *Table) Strong(from, to ModeId) ([]Step, bool) {
	if steps, ok := t.Firm(from, to); ok {
		return steps, true
	}
	from, to = t.Canon(from), t.Canon(to)
	if to == t.Void {
		return []Step{{VoidingStep, t.Void}}, true
	}
	// Widening, possibly chained (INT → LONG INT → LONG REAL etc.),
	// followed by a Firm match for the remainder.
	if steps, ok := t.tryWiden(from, to, map[ModeId]bool{}); ok {
		return steps, true
	}
	// Rowing: T → []T (a transient row).
	rowed := t.Rowed(from)
	if t.Equivalent(rowed, to) {
		return []Step{{RowingStep, rowed}}, true
	}
	if restSteps, ok := t.Firm(rowed, to); ok {
		return append([]Step{{RowingStep, rowed}}, restSteps...), true
	}
	return nil, false
}

func (t *Table) tryWiden(from, to ModeId, seen map[ModeId]bool) ([]Step, bool) {
	if seen[from] {
		return nil, false
	}
	seen[from] = true
	next, ok := t.widenTarget(from)
	if !ok {
		return nil, false
	}
	if t.Equivalent(next, to) {
		return []Step{{WideningStep, next}}, true
	}
	if steps, ok := t.Firm(next, to); ok {
		return append([]Step{{WideningStep, next}}, steps...), true
	}
	if steps, ok := t.tryWiden(next, to, seen); ok {
		return append([]Step{{WideningStep, next}}, steps...), true
	}
	return nil, false
}
