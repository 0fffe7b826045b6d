// Package stdenv declares the standard environ (§3.3 of the
// specification): the outermost scope's prelude modes, operators and
// constant identifiers, present in every program before its own
// declarations are processed. It knows only mode and tag shapes, never
// runtime values, installing a constant's actual storage is left to
// whichever runtime value representation the caller uses.
package stdenv

import (
	"github.com/a68/core"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

// OperatorSpec declares one prelude operator's name and signature.
type OperatorSpec struct {
	Name   string
	Params []string // standard mode names, e.g. ["INT", "INT"]
	Result string
}

// ConstantSpec declares one prelude identifier bound to a literal
// denotation, e.g. "pi" or "max int".
type ConstantSpec struct {
	Name    string
	Mode    string
	Literal string
}

// Operators lists every prelude operator this environ declares,
// mirroring Algol 68's standard-prelude operator table (§3.3, §9
// GLOSSARY "standard environ"). Dyadic and monadic forms of the same
// symbol both appear where the language defines both (e.g. dyadic and
// monadic "-").
var Operators = []OperatorSpec{
	{Name: "+", Params: []string{"INT", "INT"}, Result: "INT"},
	{Name: "+", Params: []string{"REAL", "REAL"}, Result: "REAL"},
	{Name: "-", Params: []string{"INT", "INT"}, Result: "INT"},
	{Name: "-", Params: []string{"REAL", "REAL"}, Result: "REAL"},
	{Name: "-", Params: []string{"INT"}, Result: "INT"},
	{Name: "-", Params: []string{"REAL"}, Result: "REAL"},
	{Name: "*", Params: []string{"INT", "INT"}, Result: "INT"},
	{Name: "*", Params: []string{"REAL", "REAL"}, Result: "REAL"},
	{Name: "/", Params: []string{"INT", "INT"}, Result: "REAL"},
	{Name: "/", Params: []string{"REAL", "REAL"}, Result: "REAL"},
	{Name: "%", Params: []string{"INT", "INT"}, Result: "INT"},
	{Name: "MOD", Params: []string{"INT", "INT"}, Result: "INT"},
	{Name: "=", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: "/=", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: "<", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: "<=", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: ">", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: ">=", Params: []string{"INT", "INT"}, Result: "BOOL"},
	{Name: "<", Params: []string{"REAL", "REAL"}, Result: "BOOL"},
	{Name: "<=", Params: []string{"REAL", "REAL"}, Result: "BOOL"},
	{Name: ">", Params: []string{"REAL", "REAL"}, Result: "BOOL"},
	{Name: ">=", Params: []string{"REAL", "REAL"}, Result: "BOOL"},
	{Name: "ABS", Params: []string{"INT"}, Result: "INT"},
	{Name: "ABS", Params: []string{"REAL"}, Result: "REAL"},
	{Name: "AND", Params: []string{"BOOL", "BOOL"}, Result: "BOOL"},
	{Name: "&", Params: []string{"BOOL", "BOOL"}, Result: "BOOL"},
	{Name: "OR", Params: []string{"BOOL", "BOOL"}, Result: "BOOL"},
	{Name: "NOT", Params: []string{"BOOL"}, Result: "BOOL"},
}

// Constants lists every prelude identifier bound to a fixed value.
var Constants = []ConstantSpec{
	{Name: "pi", Mode: "REAL", Literal: "3.14159265358979323846"},
	{Name: "max int", Mode: "INT", Literal: "2147483647"},
}

// Install declares every OperatorSpec and ConstantSpec as a Tag in
// global's table, and marks that table as the standard environ so the
// binder's "tag hides prelude" diagnostic (§7 taxonomy) fires when a
// user program later redeclares one of these names. It returns the
// constant tags by name, so a caller owning an actual value
// representation can seed each one's storage; Install itself commits
// to no such representation.
func Install(modes *mode.Table, global *symtab.Scope) map[string]*symtab.Tag {
	global.Table.IsStandardEnviron = true
	global.Table.AllowLengthety = true

	// Every listed signature is declared as its own Tag: symtab.Table's
	// Operators family keeps a full overload set per name (§3.3), so
	// Checker.resolveOperator/Evaluator.resolveOperator can FIRM-match
	// against whichever signature the actual operand modes reach,
	// exactly the set nativeOperator's bootstrap table implements.
	for _, op := range Operators {
		params := make([]mode.PackItem, len(op.Params))
		for i, p := range op.Params {
			params[i] = mode.PackItem{Mode: modes.Standard(p, 0)}
		}
		result := modes.Standard(op.Result, 0)
		tg, _ := global.Table.Define(core.Operators, op.Name, &core.SyntheticNode{Name: op.Name})
		tg.Mode = modes.NewProc(params, result)
	}

	constants := make(map[string]*symtab.Tag, len(Constants))
	for _, c := range Constants {
		tg, _ := global.Table.Define(core.Identifiers, c.Name, &core.SyntheticNode{Name: c.Name})
		tg.Mode = modes.NewRef(modes.Standard(c.Mode, 0))
		constants[c.Name] = tg
	}
	return constants
}
