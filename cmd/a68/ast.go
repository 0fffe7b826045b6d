package main

import "github.com/a68/core"

// node is a minimal in-memory core.Node used by this driver's demo
// programs. Scanning and parsing real Algol 68 source is out of scope
// for this core (§1): a real front end would hand the checker and
// genie an already-built tree over its own node type; this one stands
// in for that, the way trepl/repl.go builds its own toy expression
// grammar rather than depending on a real target-language parser.
type node struct {
	attr   core.Attribute
	sym    string
	parent *node
	first  *node
	next   *node
}

func (n *node) Attr() core.Attribute { return n.attr }
func (n *node) Symbol() string       { return n.sym }
func (n *node) Span() core.Span      { return core.Span{} }

func (n *node) Parent() core.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) FirstChild() core.Node {
	if n.first == nil {
		return nil
	}
	return n.first
}

func (n *node) NextSibling() core.Node {
	if n.next == nil {
		return nil
	}
	return n.next
}

// leaf builds a childless node.
func leaf(attr core.Attribute, sym string) *node {
	return &node{attr: attr, sym: sym}
}

// tree builds attr/sym over children, wiring parent/sibling links.
func tree(attr core.Attribute, sym string, children ...*node) *node {
	n := &node{attr: attr, sym: sym}
	var prev *node
	for _, ch := range children {
		ch.parent = n
		if prev == nil {
			n.first = ch
		} else {
			prev.next = ch
		}
		prev = ch
	}
	return n
}
