// Package diag implements structured diagnostic reporting for the
// analyser and evaluator (§6.4 and §7 of the specification): a single
// diagnostic(node, severity, key, args…) entry point, accumulated per
// translation unit into a Bag, plus the RuntimeError type the genie
// raises instead of using setjmp/longjmp.
package diag

import (
	"fmt"

	"github.com/a68/core"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// Severity classifies a diagnostic (§7 taxonomy).
type Severity int8

const (
	Warning Severity = iota
	SyntaxError
	SemanticError
	ScopeWarning
	RuntimeErrorSeverity
	MathError
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case SyntaxError:
		return "syntax error"
	case SemanticError:
		return "semantic error"
	case ScopeWarning:
		return "scope warning"
	case RuntimeErrorSeverity:
		return "runtime error"
	case MathError:
		return "math error"
	default:
		return "unknown severity"
	}
}

// Key identifies the kind of diagnostic, independent of the message
// text (so tests can assert on the key rather than on wording).
type Key string

const (
	KeyUndeclaredTag        Key = "undeclaredTag"
	KeyMultipleDeclaration  Key = "multipleDeclaration"
	KeyCyclicMode           Key = "cyclicMode"
	KeyNotWellFormed        Key = "notWellFormed"
	KeyRelatedOperators     Key = "relatedOperators"
	KeySubsetUnionMember    Key = "subsetUnionMember"
	KeyCannotCoerce         Key = "cannotCoerce"
	KeyTagNotPortable       Key = "tagNotPortable"
	KeyTagHidesPrelude      Key = "tagHidesPrelude"
	KeyTagNotUsed           Key = "tagNotUsed"
	KeyForeignThreadAccess  Key = "foreignThreadAccess"
	KeyWideningNotPortable  Key = "wideningNotPortable"
	KeyVoidedResult         Key = "voidedResult"
	KeyScopeViolation       Key = "scopeViolation"
	KeyDupOperatorPrelude   Key = "dupOperatorPrelude"
	KeyNilAccess            Key = "nilAccess"
	KeyUninitialisedAccess  Key = "uninitialisedAccess"
	KeyIndexOutOfBounds     Key = "indexOutOfBounds"
	KeyDivisionByZero       Key = "divisionByZero"
	KeyMathOverflow         Key = "mathOverflow"
	KeyStackOverflow        Key = "stackOverflow"
	KeyHeapExhausted        Key = "heapExhausted"
	KeyScopeDynamicViolation Key = "scopeDynamicViolation"
)

// Diagnostic is a single reported finding, tied back to the tree node
// that triggered it.
type Diagnostic struct {
	Node     core.Node
	Severity Severity
	Key      Key
	Message  string

	// Detail carries auxiliary structured information specific to a
	// key, attached through ReportWithDetail.
	Detail interface{}
}

func (d Diagnostic) String() string {
	if d.Node == nil {
		return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Key, d.Message)
	}
	return fmt.Sprintf("%s %s [%s]: %s", d.Severity, d.Node.Span(), d.Key, d.Message)
}

// Bag accumulates diagnostics for one translation unit. Analysis
// continues after errors so as many diagnostics as possible surface in
// a single run (§7 propagation policy); only a non-zero error count
// aborts evaluation.
type Bag struct {
	entries []Diagnostic
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{}
}

// Report appends a new diagnostic built from the given node, severity,
// key and a printf-style message, mirroring the core's single
// diagnostic(node, severity, key, args…) interface (§6.4).
func (b *Bag) Report(node core.Node, sev Severity, key Key, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{Node: node, Severity: sev, Key: key, Message: fmt.Sprintf(format, args...)}
	b.entries = append(b.entries, d)
	switch sev {
	case Warning, ScopeWarning:
		T().Warningf("%s", d)
	default:
		T().Errorf("%s", d)
	}
	return d
}

// ReportWithDetail is like Report but attaches an arbitrary Detail
// payload to the diagnostic.
func (b *Bag) ReportWithDetail(node core.Node, sev Severity, key Key, detail interface{}, format string, args ...interface{}) Diagnostic {
	d := b.Report(node, sev, key, format, args...)
	d.Detail = detail
	b.entries[len(b.entries)-1] = d
	return d
}

// All returns every diagnostic reported so far, in report order.
func (b *Bag) All() []Diagnostic {
	return b.entries
}

// Count returns the number of diagnostics at or above the given
// severity threshold (useful for "error count" checks, §7).
func (b *Bag) Count(atLeast Severity) int {
	n := 0
	for _, d := range b.entries {
		if severityRank(d.Severity) >= severityRank(atLeast) {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-level diagnostic (SyntaxError,
// SemanticError or worse) was reported, the condition that must abort
// evaluation per §7's propagation policy.
func (b *Bag) HasErrors() bool {
	for _, d := range b.entries {
		switch d.Severity {
		case SyntaxError, SemanticError, RuntimeErrorSeverity:
			return true
		}
	}
	return false
}

func severityRank(s Severity) int {
	switch s {
	case Warning, ScopeWarning:
		return 0
	case MathError:
		return 1
	case SyntaxError, SemanticError:
		return 2
	case RuntimeErrorSeverity:
		return 3
	default:
		return 0
	}
}

// RuntimeError is returned by genie operations instead of using
// setjmp/longjmp (§4.7.1, §9 DESIGN NOTES "Non-local jumps"). It
// satisfies the error interface and is propagated up through ordinary
// Go error returns until caught by the top-level evaluation driver.
type RuntimeError struct {
	Node    core.Node
	Key     Key
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("runtime error [%s]: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("runtime error %s [%s]: %s", e.Node.Span(), e.Key, e.Message)
}

// NewRuntimeError builds a RuntimeError for the given node and key.
func NewRuntimeError(node core.Node, key Key, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Node: node, Key: key, Message: fmt.Sprintf(format, args...)}
}
