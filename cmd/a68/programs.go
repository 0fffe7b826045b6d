package main

import "github.com/a68/core"

// demoProgram is a named, pre-built tree standing in for a parsed
// program fragment, plus any one-time tag declarations it needs before
// checking/evaluating it (mirroring what the binder's first pass would
// have done for a real declaration).
type demoProgram struct {
	name    string
	doc     string
	declare func(env *environ)
	build   func() *node
}

// demoPrograms lists every fragment this driver can run. Each is
// intentionally small: the point is to exercise the checker and the
// genie end to end, not to demonstrate Algol 68 syntax coverage.
var demoPrograms = []demoProgram{
	{
		name: "sum",
		doc:  "3 + 4 (dyadic formula over the standard environ's \"+\")",
		build: func() *node {
			return tree(core.Formula, "+", leaf(core.Denotation, "3"), leaf(core.Denotation, "4"))
		},
	},
	{
		name: "compare",
		doc:  "3 < 4 (dyadic formula, standard environ's \"<\", yields BOOL)",
		build: func() *node {
			return tree(core.Formula, "<", leaf(core.Denotation, "3"), leaf(core.Denotation, "4"))
		},
	},
	{
		name: "ifclause",
		doc:  "IF 3 < 4 THEN 1 ELSE 2 FI",
		build: func() *node {
			cond := tree(core.Formula, "<", leaf(core.Denotation, "3"), leaf(core.Denotation, "4"))
			return tree(core.ConditionalClause, "", cond, leaf(core.Denotation, "1"), leaf(core.Denotation, "2"))
		},
	},
	{
		name: "assign",
		doc:  "INT x := 5; x (name declared ahead of time, assignation, then read back)",
		declare: func(env *environ) {
			declNode := leaf(core.Identifier, "x")
			refInt := env.modes.NewRef(env.modes.Standard("INT", 0))
			xTag := env.binder.Define(env.global, core.Identifiers, "x", declNode)
			xTag.Mode = refInt
		},
		build: func() *node {
			assign := tree(core.Assignation, "", leaf(core.Identifier, "x"), leaf(core.Denotation, "5"))
			read := leaf(core.Identifier, "x")
			return tree(core.ClosedClause, "", assign, read)
		},
	},
	{
		name: "print",
		doc:  "print(40 + 2) through the transput collaborator",
		build: func() *node {
			call := tree(core.Call, "", leaf(core.Identifier, "print"),
				tree(core.Formula, "+", leaf(core.Denotation, "40"), leaf(core.Denotation, "2")))
			return call
		},
	},
}

func findDemo(name string) *demoProgram {
	for i := range demoPrograms {
		if demoPrograms[i].name == name {
			return &demoPrograms[i]
		}
	}
	return nil
}
