package genie

import "github.com/a68/core"

// Propagator is a cached evaluator action for one specific tree node
// (§9 DESIGN NOTES "Propagator caching": "the specialise-on-first-
// execution trick to skip dispatch"). Go has no sum-type match to
// compile an enum of specialised node kinds into, so the idiomatic
// analogue is a closure captured once, on first evaluation, that
// re-runs the specialised work directly the next time without
// re-inspecting node.Attr().
type Propagator func(e *Evaluator, node core.Node) (Value, error)

// Propagators is the side table mapping tree nodes to their cached
// propagator, mirroring check.Annotations (§6.1: core.Node carries no
// evaluator-action slot of its own).
type Propagators struct {
	table map[core.Node]Propagator
}

// NewPropagators creates an empty propagator cache.
func NewPropagators() *Propagators {
	return &Propagators{table: make(map[core.Node]Propagator)}
}

// Cached returns node's cached propagator, if any.
func (p *Propagators) Cached(node core.Node) (Propagator, bool) {
	fn, ok := p.table[node]
	return fn, ok
}

// Cache records fn as node's propagator for future evaluations.
func (p *Propagators) Cache(node core.Node, fn Propagator) {
	p.table[node] = fn
}
