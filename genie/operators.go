package genie

import (
	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/symtab"
)

// resolveOperator walks scope.Previous outward, the same search order
// check.resolveOperator uses (§4.3.1 "search from innermost scope
// outward; if no match is found, the standard environ is consulted"),
// matching on name, parameter count and FIRM-coercibility of the
// actual operand modes.
func (e *Evaluator) resolveOperator(scope *symtab.Scope, name string, params []mode.ModeId) *symtab.Tag {
	for s := scope; s != nil; s = s.Previous {
		if tg := e.matchOperatorInTable(s.Table, name, params); tg != nil {
			return tg
		}
	}
	return nil
}

func (e *Evaluator) matchOperatorInTable(tb *symtab.Table, name string, params []mode.ModeId) *symtab.Tag {
	for _, tg := range tb.Overloads(name) {
		m := e.Modes.Get(tg.Mode)
		if m.Kind != mode.Proc || len(m.Params) != len(params) {
			continue
		}
		matched := true
		for i, p := range params {
			if _, ok := e.Modes.Firm(p, m.Params[i].Mode); !ok {
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

// nativeOperator implements the primitive arithmetic, comparison and
// boolean operators. stdenv declares these names as prelude operator
// tags with no Body; invokeRoutine runs such a tag through this table,
// and evalFormula falls back to it when no operator tag resolves at
// all.
func nativeOperator(node core.Node, modes *mode.Table, name string, args []Value) (Value, bool, error) {
	switch len(args) {
	case 2:
		return dyadicNative(node, modes, name, args[0], args[1])
	case 1:
		v, ok := monadicNative(modes, name, args[0])
		return v, ok, nil
	default:
		return Value{}, false, nil
	}
}

func dyadicNative(node core.Node, modes *mode.Table, name string, l, r Value) (Value, bool, error) {
	realMode := modes.Standard("REAL", 0)
	isReal := l.Mode == realMode || r.Mode == realMode
	switch name {
	case "+":
		if isReal {
			return Value{Mode: realMode, Real: asReal(modes, l) + asReal(modes, r)}, true, nil
		}
		return Value{Mode: modes.Standard("INT", 0), Int: l.Int + r.Int}, true, nil
	case "-":
		if isReal {
			return Value{Mode: realMode, Real: asReal(modes, l) - asReal(modes, r)}, true, nil
		}
		return Value{Mode: modes.Standard("INT", 0), Int: l.Int - r.Int}, true, nil
	case "*":
		if isReal {
			return Value{Mode: realMode, Real: asReal(modes, l) * asReal(modes, r)}, true, nil
		}
		return Value{Mode: modes.Standard("INT", 0), Int: l.Int * r.Int}, true, nil
	case "/":
		return Value{Mode: realMode, Real: asReal(modes, l) / asReal(modes, r)}, true, nil
	case "%", "OVER":
		if r.Int == 0 {
			return Value{}, false, diag.NewRuntimeError(node, diag.KeyDivisionByZero, "integer division %q by zero", name)
		}
		return Value{Mode: modes.Standard("INT", 0), Int: l.Int / r.Int}, true, nil
	case "MOD", "%*":
		if r.Int == 0 {
			return Value{}, false, diag.NewRuntimeError(node, diag.KeyDivisionByZero, "integer division %q by zero", name)
		}
		return Value{Mode: modes.Standard("INT", 0), Int: l.Int % r.Int}, true, nil
	case "=":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: equalValues(l, r)}, true, nil
	case "/=":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: !equalValues(l, r)}, true, nil
	case "<":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: asReal(modes, l) < asReal(modes, r)}, true, nil
	case "<=":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: asReal(modes, l) <= asReal(modes, r)}, true, nil
	case ">":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: asReal(modes, l) > asReal(modes, r)}, true, nil
	case ">=":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: asReal(modes, l) >= asReal(modes, r)}, true, nil
	case "AND", "&":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: l.Bool && r.Bool}, true, nil
	case "OR":
		return Value{Mode: modes.Standard("BOOL", 0), Bool: l.Bool || r.Bool}, true, nil
	default:
		return Value{}, false, nil
	}
}

func monadicNative(modes *mode.Table, name string, v Value) (Value, bool) {
	switch name {
	case "-":
		if v.Mode == modes.Standard("REAL", 0) {
			return Value{Mode: v.Mode, Real: -v.Real}, true
		}
		return Value{Mode: v.Mode, Int: -v.Int}, true
	case "ABS":
		if v.Mode == modes.Standard("REAL", 0) {
			r := v.Real
			if r < 0 {
				r = -r
			}
			return Value{Mode: v.Mode, Real: r}, true
		}
		n := v.Int
		if n < 0 {
			n = -n
		}
		return Value{Mode: v.Mode, Int: n}, true
	case "NOT":
		return Value{Mode: v.Mode, Bool: !v.Bool}, true
	default:
		return Value{}, false
	}
}

func asReal(modes *mode.Table, v Value) float64 {
	if v.Mode == modes.Standard("REAL", 0) {
		return v.Real
	}
	return float64(v.Int)
}

func equalValues(l, r Value) bool {
	switch {
	case l.Mode != r.Mode:
		return false
	case l.Row != nil || r.Row != nil, l.Struct != nil || r.Struct != nil:
		return false // structured equality is not modeled by the bootstrap operator set
	default:
		return l.Int == r.Int && l.Real == r.Real && l.Bool == r.Bool && l.Char == r.Char && l.Bits == r.Bits
	}
}
