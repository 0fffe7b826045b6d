package genie

import (
	"strconv"
	"strings"

	"github.com/a68/core"
	"github.com/a68/diag"
	"github.com/a68/mode"
	"github.com/a68/transput"
)

// InstallTransput wires lib as the evaluator's transput collaborator
// (§6.2) and declares "print" and "read" as PROC identifiers in the
// global scope, backed by native closures. As with
// InstallStandardEnviron, the Tag/mode bookkeeping is the only part
// any static analysis ever sees; the runtime Routine value lives
// directly in genie's own Locals.
func (e *Evaluator) InstallTransput(lib transput.Library) {
	e.Transput = lib
	global := e.Scopes.Globals()
	frame := e.Frames.Globals()
	intMode := e.Modes.Standard("INT", 0)

	printProc := e.Modes.NewProc([]mode.PackItem{{Mode: intMode}}, e.Modes.Void)
	printTag, _ := global.Table.Define(core.Identifiers, "print", &core.SyntheticNode{Name: "print"})
	printTag.Mode = printProc
	*e.Locals.Cell(frame, printTag.Decl) = Value{Mode: printProc, Proc: &Routine{Mode: printProc, Native: nativePrint}}

	readProc := e.Modes.NewProc([]mode.PackItem{{Mode: e.Modes.NewRef(intMode)}}, e.Modes.Void)
	readTag, _ := global.Table.Define(core.Identifiers, "read", &core.SyntheticNode{Name: "read"})
	readTag.Mode = readProc
	*e.Locals.Cell(frame, readTag.Decl) = Value{Mode: readProc, Proc: &Routine{Mode: readProc, Native: nativeRead}}
}

// nativePrint formats its single argument the way the standard
// environ's print procedure does (§3.3, §6.2) and writes it through
// the evaluator's Transput collaborator. A nil Transput makes print a
// no-op rather than a failure, so programs that never actually print
// still run without one installed.
func nativePrint(e *Evaluator, args []Value) (Value, error) {
	if e.Transput == nil || len(args) == 0 {
		return Value{Mode: e.Modes.Void}, nil
	}
	v := args[0]
	if v.Cell != nil {
		v = *v.Cell
	}
	return Value{Mode: e.Modes.Void}, e.Transput.Write(formatForPrint(e.Modes, v))
}

// nativeRead reads one line through Transput and parses it according
// to the target name's dereferenced mode, storing the result through
// the name the same way evalAssignation does.
func nativeRead(e *Evaluator, args []Value) (Value, error) {
	if len(args) == 0 || args[0].Cell == nil {
		return Value{}, diag.NewRuntimeError(nil, diag.KeyNilAccess, "read: target is not a name")
	}
	if e.Transput == nil {
		return Value{Mode: e.Modes.Void}, nil
	}
	line, err := e.Transput.ReadLine()
	if err != nil {
		return Value{}, err
	}
	target := e.Modes.Get(args[0].Mode).Sub
	*args[0].Cell = parseDenotation(e.Modes, target, strings.TrimSpace(line))
	return Value{Mode: e.Modes.Void}, nil
}

func formatForPrint(modes *mode.Table, v Value) string {
	md := modes.Get(v.Mode)
	switch md.Name {
	case "REAL":
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case "BOOL":
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case "CHAR":
		return string(v.Char)
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}
