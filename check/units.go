package check

import (
	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

func lastChild(node core.Node) core.Node {
	var last core.Node
	for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
		last = ch
	}
	return last
}

func (c *Checker) deduceIdentifier(node core.Node) (mode.ModeId, bool) {
	scope := c.scopeFor(node)
	tg := c.Binder.Resolve(scope, core.Identifiers, node.Symbol(), node)
	an := c.Ann.Get(node)
	an.Tag = tg
	an.ScopeLevel = tg.ScopeLevel
	return tg.Mode, false
}

// deduceCast checks a Cast's operand under STRONG context expecting
// the declared mode, so the checker's ordinary coercion-insertion
// machinery does the work a cast asks for (§4.3.1).
func (c *Checker) deduceCast(node core.Node) (mode.ModeId, bool) {
	declarer := node.FirstChild()
	unit := declarer.NextSibling()
	target := mode.NoMode
	if c.Declarers != nil {
		target = c.Declarers(declarer)
	}
	c.CheckUnit(unit, target, ContextStrong)
	return target, c.Ann.Get(unit).Transient
}

// deduceAssignation checks the left side under SOFT expecting nothing
// in particular (it must already denote a name), derives the
// addressed mode from its REF, checks the right side under STRONG
// expecting that mode, and applies the scope-checker's dangling-
// reference rule: rhs must not be transient, and must not carry a
// younger scope than lhs (§4.3.1, §4.4).
func (c *Checker) deduceAssignation(node core.Node) (mode.ModeId, bool) {
	lhs := node.FirstChild()
	rhs := lhs.NextSibling()
	lhsMode := c.CheckUnit(lhs, mode.NoMode, ContextSoft)
	refMode := c.Modes.Get(c.Modes.Canon(lhsMode))
	if refMode.Kind != mode.Ref {
		c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
			"left side of assignation must denote a name, found mode %s", refMode.Name)
		return c.Modes.Void, false
	}
	target := refMode.Sub
	c.CheckUnit(rhs, target, ContextStrong)

	lhsAnn := c.Ann.Get(lhs)
	rhsAnn := c.Ann.Get(rhs)
	if rhsAnn.Transient {
		c.Bag.Report(node, diag.ScopeWarning, diag.KeyScopeViolation,
			"cannot assign a transient value")
	} else if rhsAnn.ScopeLevel > lhsAnn.ScopeLevel {
		c.Bag.Report(node, diag.ScopeWarning, diag.KeyScopeViolation,
			"right side has a younger scope than the left side name")
	}
	return lhsMode, false
}

// deduceFormula resolves a monadic or dyadic operator by searching
// outward from the formula's own scope, then the standard environ, for
// an operator tag whose operand modes the actual operands can reach
// under FIRM (§4.3.1, §4.3.3).
func (c *Checker) deduceFormula(node core.Node) (mode.ModeId, bool) {
	opName := node.Symbol()
	left := node.FirstChild()
	leftMode := c.CheckUnit(left, mode.NoMode, ContextFirm)

	rightMode := mode.NoMode
	var right core.Node
	if node.Attr() != core.MonadicFormula {
		right = left.NextSibling()
		if right != nil {
			rightMode = c.CheckUnit(right, mode.NoMode, ContextFirm)
		}
	}

	scope := c.scopeFor(node)
	tg := c.resolveOperator(scope, opName, leftMode, rightMode)
	if tg == nil {
		c.Bag.Report(node, diag.SemanticError, diag.KeyUndeclaredTag,
			"no operator %q matches the given operand modes", opName)
		return c.Modes.Void, false
	}
	c.Ann.Get(node).Tag = tg

	// Re-check each operand against the matched operator's declared
	// parameter mode so the widening/uniting its signature demands
	// actually lands in the Annotation (§4.3.2).
	params := c.Modes.Get(tg.Mode).Params
	c.CheckUnit(left, params[0].Mode, ContextFirm)
	if right != nil {
		c.CheckUnit(right, params[1].Mode, ContextFirm)
	}
	return c.Modes.Get(tg.Mode).Result, true
}

func (c *Checker) resolveOperator(scope *symtab.Scope, name string, left, right mode.ModeId) *symtab.Tag {
	params := []mode.ModeId{left}
	if right != mode.NoMode {
		params = append(params, right)
	}
	for s := scope; s != nil; s = s.Previous {
		if tg := c.matchOperatorInTable(s.Table, name, params); tg != nil {
			return tg
		}
	}
	return nil
}

func (c *Checker) matchOperatorInTable(tb *symtab.Table, name string, params []mode.ModeId) *symtab.Tag {
	for _, tg := range tb.Overloads(name) {
		m := c.Modes.Get(tg.Mode)
		if m.Kind != mode.Proc || len(m.Params) != len(params) {
			continue
		}
		matched := true
		for i, p := range params {
			if _, ok := c.Modes.Firm(p, m.Params[i].Mode); !ok {
				matched = false
				break
			}
		}
		if matched {
			return tg
		}
	}
	return nil
}

// deduceSerial handles both the sequential closed clause (value = its
// last unit) and the collateral clause (value = a freshly displayed
// row balancing every collected unit's mode). A collateral clause
// always deduces a row of the balanced unit mode; a STRUCT display
// whose mode comes from the expected mode at its use site is not
// deduced.
func (c *Checker) deduceSerial(node core.Node) (mode.ModeId, bool) {
	if node.Attr() == core.CollateralClause {
		var ids []mode.ModeId
		for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
			ids = append(ids, c.CheckUnit(ch, mode.NoMode, ContextStrong))
		}
		if len(ids) == 0 {
			return c.Modes.Void, false
		}
		balanced, ok := c.Modes.Balance(ids)
		if !ok {
			c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
				"collateral clause units do not balance to a common mode")
			balanced = ids[0]
		}
		return c.Modes.Rowed(balanced), true
	}
	lastMode := c.Modes.Void
	transient := false
	for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
		lastMode = c.CheckUnit(ch, mode.NoMode, ContextStrong)
		transient = c.Ann.Get(ch).Transient
	}
	return lastMode, transient
}

func (c *Checker) balanceBranches(node core.Node, branches []core.Node) (mode.ModeId, bool) {
	if len(branches) == 0 {
		return c.Modes.Void, false
	}
	ids := make([]mode.ModeId, len(branches))
	for i, b := range branches {
		ids[i] = c.CheckUnit(b, mode.NoMode, ContextStrong)
	}
	balanced, ok := c.Modes.Balance(ids)
	if !ok {
		c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
			"clause branches do not balance to a common mode")
		return c.Modes.Void, false
	}
	transient := false
	for _, b := range branches {
		c.CheckUnit(b, balanced, ContextStrong)
		if c.Ann.Get(b).Transient {
			transient = true
		}
	}
	return balanced, transient
}

func (c *Checker) deduceConditional(node core.Node) (mode.ModeId, bool) {
	enquiry := node.FirstChild()
	c.CheckUnit(enquiry, c.Modes.Standard("BOOL", 0), ContextStrong)
	var branches []core.Node
	for b := enquiry.NextSibling(); b != nil; b = b.NextSibling() {
		branches = append(branches, b)
	}
	return c.balanceBranches(node, branches)
}

// deduceCase treats CaseClause and ConformityClause alike: it checks
// the enquiry under MEEK and balances every following branch. No
// branch is matched against a UNION specifier.
func (c *Checker) deduceCase(node core.Node) (mode.ModeId, bool) {
	enquiry := node.FirstChild()
	c.CheckUnit(enquiry, mode.NoMode, ContextMeek)
	var branches []core.Node
	for b := enquiry.NextSibling(); b != nil; b = b.NextSibling() {
		branches = append(branches, b)
	}
	return c.balanceBranches(node, branches)
}

// deduceLoop type-checks every part of a FOR/WHILE/DO loop generically
// and reports VOID: the attribute set the parser hands the core does
// not distinguish FROM/BY/TO/WHILE/DO/UNTIL as separate node kinds, so
// bound and condition expressions are checked the same way the body
// is, under STRONG with no particular expectation (§4.7 "a loop clause
// implements ... "; a loop clause's own mode is always VOID).
func (c *Checker) deduceLoop(node core.Node) (mode.ModeId, bool) {
	for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
		c.CheckUnit(ch, mode.NoMode, ContextStrong)
	}
	return c.Modes.Void, false
}

func (c *Checker) deduceCall(node core.Node) (mode.ModeId, bool) {
	primary := node.FirstChild()
	primMode := c.CheckUnit(primary, mode.NoMode, ContextMeek)
	canon := c.Modes.Canon(primMode)
	m := c.Modes.Get(canon)
	if m.Kind != mode.Proc {
		c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
			"cannot call a value of mode %s", m.Name)
		return c.Modes.Void, false
	}
	i := 0
	for arg := primary.NextSibling(); arg != nil; arg = arg.NextSibling() {
		want := mode.NoMode
		if i < len(m.Params) {
			want = m.Params[i].Mode
		}
		c.CheckUnit(arg, want, ContextStrong)
		i++
	}
	return m.Result, false
}

func (c *Checker) deduceSlice(node core.Node) (mode.ModeId, bool) {
	primary := node.FirstChild()
	primMode := c.CheckUnit(primary, mode.NoMode, ContextWeak)
	canon := c.Modes.Canon(primMode)
	m := c.Modes.Get(canon)

	count := 0
	for idx := primary.NextSibling(); idx != nil; idx = idx.NextSibling() {
		c.CheckUnit(idx, c.Modes.Standard("INT", 0), ContextStrong)
		count++
	}
	if count >= m.Dim && m.Dim > 0 {
		return c.Modes.Slice(canon), true
	}
	result := canon
	for i := 0; i < count; i++ {
		result = c.Modes.Trim(result)
	}
	return result, true
}

func (c *Checker) deduceFieldSelection(node core.Node) (mode.ModeId, bool) {
	primary := node.FirstChild()
	primMode := c.CheckUnit(primary, mode.NoMode, ContextMeek)
	canon := c.Modes.Canon(primMode)
	m := c.Modes.Get(canon)
	fieldName := node.Symbol()

	if m.Kind == mode.Ref {
		namePack := c.Modes.Name(canon)
		if namePack != mode.NoMode {
			nm := c.Modes.Get(namePack)
			for _, f := range nm.Fields {
				if f.Name == fieldName {
					return f.Mode, false
				}
			}
		}
	} else if m.Kind == mode.Struct {
		for _, f := range m.Fields {
			if f.Name == fieldName {
				return f.Mode, c.Ann.Get(primary).Transient
			}
		}
	}
	c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
		"mode %s has no field %q", m.Name, fieldName)
	return c.Modes.Void, false
}

func (c *Checker) deduceGenerator(node core.Node) (mode.ModeId, bool) {
	declarer := node.FirstChild()
	target := mode.NoMode
	if c.Declarers != nil {
		target = c.Declarers(declarer)
	}
	refMode := c.Modes.NewRef(target)
	an := c.Ann.Get(node)
	if node.Symbol() == "HEAP" {
		an.ScopeLevel = 0
	} else {
		an.ScopeLevel = c.scopeFor(node).Level
	}
	return refMode, false
}

// deduceRoutineText checks the body under STRONG expecting the
// declared result mode and computes youngest_environ as the deepest
// scope level reached by any identifier inside the body (§4.4 "For a
// routine text, pre-pass computes the youngest_environ ... as the
// maximum scope among all non-local captures").
func (c *Checker) deduceRoutineText(node core.Node) (mode.ModeId, bool) {
	procMode := mode.NoMode
	if c.Declarers != nil {
		procMode = c.Declarers(node)
	}
	m := c.Modes.Get(procMode)
	if body := lastChild(node); body != nil {
		c.CheckUnit(body, m.Result, ContextStrong)
	}
	c.Ann.Get(node).ScopeLevel = c.youngestEnviron(node)
	return procMode, false
}

func (c *Checker) youngestEnviron(node core.Node) int {
	max := 0
	var walk func(core.Node)
	walk = func(n core.Node) {
		if n == nil {
			return
		}
		if n.Attr() == core.Identifier {
			if an, ok := c.Ann.Lookup(n); ok && an.ScopeLevel > max {
				max = an.ScopeLevel
			}
		}
		for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
			walk(ch)
		}
	}
	walk(node)
	return max
}
