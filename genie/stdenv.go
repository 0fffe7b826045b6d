package genie

import "github.com/a68/stdenv"

// InstallStandardEnviron declares the prelude (§3.3) into the
// evaluator's global scope and seeds each prelude constant's storage
// in the global frame. stdenv itself knows nothing of genie.Value, so
// this is the one place its declarative ConstantSpec list is turned
// into actual Locals storage, mirroring how genie already treats
// variable declarations as its own concern rather than the checker's.
func (e *Evaluator) InstallStandardEnviron() {
	global := e.Scopes.Globals()
	tags := stdenv.Install(e.Modes, global)
	frame := e.Frames.Globals()
	for _, c := range stdenv.Constants {
		tg, ok := tags[c.Name]
		if !ok {
			continue
		}
		target := e.Modes.Get(tg.Mode).Sub
		cell := e.Locals.Cell(frame, tg.Decl)
		*cell = parseDenotation(e.Modes, target, c.Literal)
	}
}
