package symtab

import "github.com/a68/core"

// IsRangeIntroducing reports whether a tree node of the given
// attribute opens a fresh lexical range and therefore needs its own
// scope allocated during the preliminary pass (§4.2 step 1):
// BEGIN…END, (…), DO…OD, routine texts, format texts, and every arm of
// IF/ELIF/ELSE, CASE/IN/OUT/ESAC and WHILE/DO/UNTIL.
func IsRangeIntroducing(attr core.Attribute) bool {
	switch attr {
	case core.ClosedClause,
		core.CollateralClause,
		core.ConditionalClause,
		core.CaseClause,
		core.ConformityClause,
		core.LoopClause,
		core.RoutineText,
		core.FormatText:
		return true
	default:
		return false
	}
}

// MoveForIdentifier relocates a FOR-loop's control identifier tag from
// the loop clause's own table into the DO-range's table (§4.2 step 2
// "Finalisation": "move FOR identifier into the DO-table").
func MoveForIdentifier(loopScope, doScope *Scope, name string) *Tag {
	tg := loopScope.Table.Resolve(core.Identifiers, name)
	if tg == nil {
		return nil
	}
	delete(loopScope.Table.families[core.Identifiers], name)
	loopScope.Table.order[core.Identifiers].Remove(name)
	doScope.Table.Insert(tg)
	return tg
}
