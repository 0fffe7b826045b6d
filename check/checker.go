package check

import (
	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/symtab"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// Context is one of the five one-directional coercion contexts of
// §4.1.3, threaded down through recursive descent to tell a subunit
// how aggressively it may be coerced towards its caller's expected
// mode.
type Context int8

const (
	ContextSoft Context = iota
	ContextWeak
	ContextMeek
	ContextFirm
	ContextStrong
)

func (c Context) String() string {
	switch c {
	case ContextSoft:
		return "soft"
	case ContextWeak:
		return "weak"
	case ContextMeek:
		return "meek"
	case ContextFirm:
		return "firm"
	case ContextStrong:
		return "strong"
	default:
		return "?"
	}
}

// coerce dispatches to the mode.Table predicate matching ctx.
func (c *Checker) coerce(ctx Context, from, to mode.ModeId) ([]mode.Step, bool) {
	switch ctx {
	case ContextSoft:
		return c.Modes.Soft(from, to)
	case ContextWeak:
		return c.Modes.Weak(from, to)
	case ContextMeek:
		return c.Modes.Meek(from, to)
	case ContextFirm:
		return c.Modes.Firm(from, to)
	default:
		return c.Modes.Strong(from, to)
	}
}

// Checker is the mode checker, coercion inserter and scope checker
// rolled into one recursive descent over units (§4.3, §4.4): it
// consumes a tree whose tags are already bound (symtab.Binder has run)
// and whose declarer nodes carry interned modes (mode.Table has run
// Close), and produces an Annotations side table plus diagnostics.
type Checker struct {
	Modes  *mode.Table
	Scopes *symtab.ScopeTree
	Binder *symtab.Binder
	Bag    *diag.Bag
	Ann    *Annotations

	// Declarers resolves a declarer tree node (a Declarer/
	// ReferenceDeclarer/... subtree written by the parser) to the
	// ModeId it denotes. Interning declarers into modes is the
	// parser/loader's job (§6.1); the checker only ever looks one up.
	Declarers func(core.Node) mode.ModeId

	// ScopeOf returns the *symtab.Scope a range-introducing node (one
	// for which symtab.IsRangeIntroducing is true) owns, or nil for
	// every other node, scopeFor walks up to the nearest ancestor that
	// has one. Built by the two-pass scope construction of §4.2, which
	// runs before the checker.
	ScopeOf func(core.Node) *symtab.Scope
}

// scopeFor finds the innermost scope node belongs to by walking up
// through Parent links until ScopeOf returns non-nil, falling back to
// the global scope for a node with no ancestor scope at all (e.g. a
// detached fragment in a test).
func (c *Checker) scopeFor(node core.Node) *symtab.Scope {
	if c.ScopeOf == nil {
		return c.Scopes.Globals()
	}
	for n := node; n != nil; n = n.Parent() {
		if s := c.ScopeOf(n); s != nil {
			return s
		}
	}
	return c.Scopes.Globals()
}

// NewChecker creates a checker over an already-populated mode table
// and scope tree.
func NewChecker(modes *mode.Table, scopes *symtab.ScopeTree, binder *symtab.Binder, bag *diag.Bag) *Checker {
	return &Checker{Modes: modes, Scopes: scopes, Binder: binder, Bag: bag, Ann: NewAnnotations()}
}

// Check walks node under the STRONG context expecting VOID (void
// context, e.g. a program's outermost particular-program), the
// entry point for a whole translation unit.
func (c *Checker) Check(node core.Node) mode.ModeId {
	return c.CheckUnit(node, c.Modes.Void, ContextStrong)
}

// CheckUnit deduces node's mode, records its Annotation (mode plus any
// coercion chain demanded by expect/ctx), and returns the mode it
// settled on after coercion, i.e. expect, when coercible, else the
// raw deduced mode with a diagnostic already reported (§4.3.1,
// §4.3.2).
func (c *Checker) CheckUnit(node core.Node, expect mode.ModeId, ctx Context) mode.ModeId {
	if node == nil {
		return mode.NoMode
	}
	deduced, transient := c.deduce(node)
	an := c.Ann.Get(node)
	an.Mode = deduced
	an.Transient = transient

	if expect == mode.NoMode || expect == deduced {
		return deduced
	}
	steps, ok := c.coerce(ctx, deduced, expect)
	if !ok {
		c.Bag.Report(node, diag.SemanticError, diag.KeyCannotCoerce,
			"cannot coerce mode %s to %s in %s context",
			c.Modes.Get(deduced).Name, c.Modes.Get(expect).Name, ctx)
		return deduced
	}
	an.Coercions = steps
	if len(steps) > 0 {
		// Rowing produces a transient row value (§4.3.3); every other
		// coercion kind preserves the operand's own transience.
		for _, s := range steps {
			if s.Kind == mode.RowingStep {
				an.Transient = true
			}
		}
		an.Mode = expect
	}
	return expect
}

// deduce computes node's natural mode and transience before any
// coercion is applied, dispatching on its grammatical attribute
// (§4.3.1). Unrecognised attributes deduce to VOID so a partially
// grounded tree still checks without panicking.
func (c *Checker) deduce(node core.Node) (mode.ModeId, bool) {
	switch node.Attr() {
	case core.Denotation:
		return c.deduceDenotation(node)
	case core.Identifier:
		return c.deduceIdentifier(node)
	case core.Cast:
		return c.deduceCast(node)
	case core.Assignation:
		return c.deduceAssignation(node)
	case core.IdentityRelation:
		return c.Modes.Standard("BOOL", 0), true
	case core.Formula, core.MonadicFormula:
		return c.deduceFormula(node)
	case core.ClosedClause, core.CollateralClause:
		return c.deduceSerial(node)
	case core.ConditionalClause:
		return c.deduceConditional(node)
	case core.CaseClause, core.ConformityClause:
		return c.deduceCase(node)
	case core.LoopClause:
		return c.deduceLoop(node)
	case core.Call:
		return c.deduceCall(node)
	case core.Slice:
		return c.deduceSlice(node)
	case core.FieldSelection, core.Selection:
		return c.deduceFieldSelection(node)
	case core.Generator:
		return c.deduceGenerator(node)
	case core.RoutineText:
		return c.deduceRoutineText(node)
	case core.SkipToken:
		return mode.NoMode, true
	case core.NihilToken:
		return c.Modes.Void, true
	case core.Jump:
		return c.Modes.Void, false
	default:
		return c.Modes.Void, false
	}
}

func (c *Checker) deduceDenotation(node core.Node) (mode.ModeId, bool) {
	an, ok := c.Ann.Lookup(node)
	if ok && an.Mode != mode.NoMode {
		return an.Mode, false
	}
	// The parser/loader stamps a denotation's literal mode (INT, REAL,
	// ...) by symbol shape before the checker ever sees it; absent that,
	// default to INT so an ungrounded literal still has a mode.
	return c.Modes.Standard("INT", 0), false
}
