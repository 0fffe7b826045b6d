package genie

import (
	"fmt"

	"github.com/a68/core"
)

// JumpSignal is returned in place of a value to perform a non-local
// JUMP (§4.5 "Non-local jumps", §9 DESIGN NOTES: "model jumps as a
// result-type carrying a jump target ... unwinding frames via ordinary
// control flow"). It satisfies error so it travels up through the same
// return path as any other runtime failure; runSerial catches it when
// the enclosing frame declares the target label, letting every
// intervening frame unwind via its own deferred frame.Stack.Close the
// same way a propagated *diag.RuntimeError would.
type JumpSignal struct {
	Label  string
	Origin core.Node
}

func (j *JumpSignal) Error() string {
	return fmt.Sprintf("jump to label %q", j.Label)
}
