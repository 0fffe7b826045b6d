package symtab

import (
	"strings"

	"github.com/a68/core"
	"github.com/a68/diag"
)

// Binder resolves tags against a ScopeTree, reporting diagnostics
// through bag (§4.2, §6.4).
type Binder struct {
	Scopes *ScopeTree
	Bag    *diag.Bag
}

// NewBinder creates a binder over an already-built scope tree.
func NewBinder(scopes *ScopeTree, bag *diag.Bag) *Binder {
	return &Binder{Scopes: scopes, Bag: bag}
}

// Define declares name in family within scope's own table, reporting a
// "multiply declared" diagnostic if a same-family tag with that name
// already lives directly in this scope (§3.3 invariant, shadowing in
// an *enclosing* scope is fine, only same-scope redeclaration is an
// error). Shadowing a same-family standard-environ tag from an inner
// scope is reported as a warning, not an error, per the same invariant.
func (b *Binder) Define(scope *Scope, family core.TagFamily, name string, decl core.Node) *Tag {
	tg, old := scope.Table.Define(family, name, decl)
	if old != nil {
		b.Bag.Report(decl, diag.SemanticError, diag.KeyMultipleDeclaration,
			"%s %q is already declared in this range", family, name)
	} else if scope.Previous != nil {
		if shadowed := b.lookupUpward(scope.Previous, family, name); shadowed != nil && isStandardEnviron(shadowed) {
			b.Bag.Report(decl, diag.Warning, diag.KeyTagHidesPrelude,
				"%s %q hides a standard-environ declaration", family, name)
		}
	}
	return tg
}

// Resolve walks scope.Previous upward looking for name in family,
// retrying with the lengthety mapping ("short sqrt" → "sqrt") when the
// scope allows it and no exact match exists, and finally synthesizing
// an ERROR tag with an "undeclared tag" diagnostic (§4.2).
func (b *Binder) Resolve(scope *Scope, family core.TagFamily, name string, use core.Node) *Tag {
	if tg := b.lookupUpward(scope, family, name); tg != nil {
		tg.MarkUsed()
		return tg
	}
	if bare, ok := stripLengthety(name); ok {
		if allowsLengthety(scope) {
			if tg := b.lookupUpward(scope, family, bare); tg != nil {
				tg.MarkUsed()
				return tg
			}
		}
	}
	b.Bag.Report(use, diag.SemanticError, diag.KeyUndeclaredTag,
		"undeclared %s %q", family, name)
	errTag := newTag(name, family)
	errTag.Decl = use
	return errTag
}

func (b *Binder) lookupUpward(scope *Scope, family core.TagFamily, name string) *Tag {
	for s := scope; s != nil; s = s.Previous {
		if tg := s.Table.Resolve(family, name); tg != nil {
			return tg
		}
	}
	return nil
}

// isStandardEnviron reports whether tg was declared in the standard
// environ's table.
func isStandardEnviron(tg *Tag) bool {
	return tg != nil && tg.Table != nil && tg.Table.IsStandardEnviron
}

// allowsLengthety reports whether lengthety mapping is enabled for the
// scope the tag resolution walk started in, found by walking to the
// root and checking AllowLengthety there, since it is the standard
// environ that normally enables it (§9 Open Questions item 3).
func allowsLengthety(scope *Scope) bool {
	s := scope
	for s.Previous != nil {
		s = s.Previous
	}
	return s.Table.AllowLengthety
}

var lengthetyPrefixes = []string{"short ", "long "}

// stripLengthety strips one or more leading "short "/"long " words
// from name, returning the bare remainder. Used to map e.g. "short
// sqrt" onto the standard environ's "sqrt" when no exact match exists
// (§4.2, §9 Open Questions item 3, "non-standard, gated behind a
// compatibility flag").
func stripLengthety(name string) (string, bool) {
	stripped := false
	for {
		matched := false
		for _, p := range lengthetyPrefixes {
			if strings.HasPrefix(name, p) {
				name = name[len(p):]
				matched = true
				stripped = true
				break
			}
		}
		if !matched {
			break
		}
	}
	if !stripped || name == "" {
		return "", false
	}
	return name, true
}
