// Package check implements the mode checker, coercion inserter and
// scope checker (§4.3, §4.4). The external Node contract (§6.1) is
// read-only, no setters for mode, bound tag or evaluator action, so
// rather than mutating tree nodes in place, every annotation the
// checker computes is kept in a side table keyed by node identity,
// mirroring the "annotation slot" of §3.1 without requiring the
// collaborator's tree type to carry one.
package check

import (
	"github.com/a68/core"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

// Annotation carries everything the checker deduces about one tree
// node: its final mode, the tag an applied occurrence was bound to,
// the coercion chain that must be applied to reach the mode its
// context demands, and the scope pair the scope checker computed.
type Annotation struct {
	Mode      mode.ModeId
	Tag       *symtab.Tag
	Coercions []mode.Step

	ScopeLevel int
	Transient  bool
}

// Annotations is the side table mapping tree nodes to their
// Annotation, populated across the checker's passes and consulted by
// genie at evaluation time.
type Annotations struct {
	table map[core.Node]*Annotation
}

// NewAnnotations creates an empty annotation side table.
func NewAnnotations() *Annotations {
	return &Annotations{table: make(map[core.Node]*Annotation)}
}

// Get returns the annotation for n, creating an empty one on first
// access.
func (a *Annotations) Get(n core.Node) *Annotation {
	an, ok := a.table[n]
	if !ok {
		an = &Annotation{}
		a.table[n] = an
	}
	return an
}

// Lookup returns the annotation for n without creating one, reporting
// whether it existed.
func (a *Annotations) Lookup(n core.Node) (*Annotation, bool) {
	an, ok := a.table[n]
	return an, ok
}

// ModeOf is a convenience accessor returning mode.NoMode if n has no
// annotation yet.
func (a *Annotations) ModeOf(n core.Node) mode.ModeId {
	an, ok := a.table[n]
	if !ok {
		return mode.NoMode
	}
	return an.Mode
}
