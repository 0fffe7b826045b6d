package genie

import (
	"strconv"
	"strings"

	"github.com/a68/mode"
)

// parseDenotation turns a denotation token's literal text into the
// Value its deduced mode calls for (§3.1 "Denotation"). The checker
// has already decided m from the token's lexical shape (INT, REAL,
// BOOL, CHAR or BITS literal); parseDenotation only needs to convert
// the text, never to re-classify it.
func parseDenotation(modes *mode.Table, m mode.ModeId, text string) Value {
	md := modes.Get(m)
	switch md.Name {
	case "REAL":
		f, _ := strconv.ParseFloat(text, 64)
		return Value{Mode: m, Real: f}
	case "BOOL":
		return Value{Mode: m, Bool: text == "TRUE" || text == "true"}
	case "CHAR":
		r := ' '
		trimmed := strings.Trim(text, "\"")
		for _, c := range trimmed {
			r = c
			break
		}
		return Value{Mode: m, Char: r}
	case "BITS":
		n, _ := strconv.ParseUint(strings.TrimPrefix(text, "16r"), 16, 64)
		return Value{Mode: m, Bits: n}
	default:
		n, _ := strconv.ParseInt(text, 10, 64)
		return Value{Mode: m, Int: n}
	}
}
