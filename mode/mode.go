// Package mode implements the Algol 68 mode table (§4.1 of the
// specification): interning, structural equivalence under
// postulation, derived-mode computation, well-formedness checking, and
// the five coercion-context predicates.
package mode

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

// ModeId identifies a mode within a Table's arena. The zero value
// (NoMode) never denotes a live mode.
type ModeId int32

// NoMode is the zero ModeId, used as "absent" (e.g. a PROC with a VOID
// result still has an explicit Void ModeId; NoMode marks a field that
// has not been resolved yet, e.g. a forward INDICANT).
const NoMode ModeId = 0

// Kind is the shape discriminator of a Mode, the tagged-variant
// dimension of §3.2.
type Kind int8

const (
	// Standard is a named primitive, parameterised by a sizety
	// (LONG-count). INT, REAL, BOOL, CHAR, BITS, COMPLEX, BYTES, VOID
	// and their LONG/LONG LONG variants are all Standard modes.
	Standard Kind = iota
	Ref
	Flex
	Row
	Proc
	Struct
	Union
	Indicant
	// Series is a transient composition used only during mode
	// checking to represent the mode-list of a serial clause before
	// balancing collapses it to a single mode (§3.2).
	Series
	// Stowed mirrors Series for struct/row-typed intermediate packs
	// built up during checking.
	Stowed
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "STANDARD"
	case Ref:
		return "REF"
	case Flex:
		return "FLEX"
	case Row:
		return "ROW"
	case Proc:
		return "PROC"
	case Struct:
		return "STRUCT"
	case Union:
		return "UNION"
	case Indicant:
		return "INDICANT"
	case Series:
		return "SERIES"
	case Stowed:
		return "STOWED"
	default:
		return "?"
	}
}

// PackItem is one element of a parameter, field or union-alternative
// pack. Name is empty for anonymous entries (PROC parameters, UNION
// alternatives).
type PackItem struct {
	Name string
	Mode ModeId
}

// Mode describes a type (§3.2). Modes are owned by a Table's arena;
// Mode values are never copied out and mutated independently, all
// mutation happens through Table methods so derived slots and the
// equivalent pointer stay consistent.
type Mode struct {
	Id ModeId
	Kind Kind

	// Standard
	Name   string // e.g. "INT", "REAL", bare name, sizety tracked separately
	Sizety int    // count of LONG (positive) / SHORT (negative) prefixes

	// Ref, Flex: Sub is the inner mode.
	Sub ModeId

	// Row: Dim is the number of dimensions, Sub is the slice mode.
	Dim int

	// Proc: Params is the parameter pack, Result is the yield mode
	// (always set, a void-returning PROC has Result == table's Void).
	Params []PackItem
	Result ModeId

	// Struct, Union, Series, Stowed: Fields is the pack.
	Fields []PackItem

	// Indicant: the user-declared name; Sub is the mode it was
	// postulated to denote (filled in once the declaration is
	// resolved; may be NoMode transiently while the declaration's RHS
	// is itself being interned, to allow recursive MODE declarations).
	// Name carries the indicant's name. DeclNode, if set by the
	// caller, is the declarer node this indicant originates from , 
	// used only to give well-formedness diagnostics a source location.
	DeclNode core.Node

	// Equivalent, when non-zero, names the canonical representative
	// this mode was found structurally equivalent to (§4.1.2 point 4).
	// Every accessor must chase this before inspecting a mode.
	Equivalent ModeId

	// Caches, valid only once WellFormed has been computed.
	HasRef     bool
	HasFlex    bool
	HasRows    bool
	WellFormed bool
	wellFormedComputed bool

	// Lazily computed derived forms (§3.2); NoMode until computed.
	sliceId    ModeId
	deflexedId ModeId
	nameId     ModeId
	multipleId ModeId
	trimId     ModeId
	rowedId    ModeId

	shapeHash string // structural pre-hash, computed once on intern
}

func (m *Mode) String() string {
	switch m.Kind {
	case Standard:
		return sizetyPrefix(m.Sizety) + m.Name
	case Ref:
		return fmt.Sprintf("REF(%d)", m.Sub)
	case Flex:
		return fmt.Sprintf("FLEX(%d)", m.Sub)
	case Row:
		return fmt.Sprintf("ROW(%d,%d)", m.Dim, m.Sub)
	case Proc:
		return fmt.Sprintf("PROC(%v)%d", m.Params, m.Result)
	case Struct:
		return fmt.Sprintf("STRUCT%v", m.Fields)
	case Union:
		return fmt.Sprintf("UNION%v", m.Fields)
	case Indicant:
		return fmt.Sprintf("INDICANT(%s)", m.Name)
	case Series:
		return fmt.Sprintf("SERIES%v", m.Fields)
	case Stowed:
		return fmt.Sprintf("STOWED%v", m.Fields)
	default:
		return "?mode?"
	}
}

func sizetyPrefix(s int) string {
	switch {
	case s > 0:
		out := ""
		for i := 0; i < s; i++ {
			out += "LONG "
		}
		return out
	case s < 0:
		out := ""
		for i := 0; i < -s; i++ {
			out += "SHORT "
		}
		return out
	default:
		return ""
	}
}
