// Package mp is the thin interface boundary to the multi-precision
// arithmetic collaborator (§6.3 of the specification): the core never
// implements LONG/LONG LONG digit-level arithmetic itself, it only
// calls out through Provider. A real implementation is an external
// library concern (Non-goals); this package defines the boundary and a
// deterministic Stub good enough for tests.
package mp

// Provider performs arbitrary-precision arithmetic for a given sizety
// (the LONG-count of a mode, §3.2): digit count, storage size in
// bytes, and the four basic dyadic operations over a sizety's raw
// digit representation. The digit encoding itself is Provider's own
// concern; the core only ever moves opaque []byte payloads between
// calls.
type Provider interface {
	Digits(sizety int) int
	Size(sizety int) int
	Add(sizety int, a, b []byte) []byte
	Sub(sizety int, a, b []byte) []byte
	Mul(sizety int, a, b []byte) []byte
	Div(sizety int, a, b []byte) []byte
}

// Stub is a Provider good enough to exercise the interface boundary in
// tests: it treats every sizety's digit representation as a single
// little-endian uint64 and performs ordinary 64-bit arithmetic on it,
// with no actual extended precision. Production use needs a real
// Provider (Non-goals).
type Stub struct{}

func (Stub) Digits(sizety int) int { return 19 } // int64 decimal digits, regardless of sizety
func (Stub) Size(sizety int) int   { return 8 }

func (Stub) Add(sizety int, a, b []byte) []byte { return encode(decode(a) + decode(b)) }
func (Stub) Sub(sizety int, a, b []byte) []byte { return encode(decode(a) - decode(b)) }
func (Stub) Mul(sizety int, a, b []byte) []byte { return encode(decode(a) * decode(b)) }
func (Stub) Div(sizety int, a, b []byte) []byte {
	bv := decode(b)
	if bv == 0 {
		return encode(0)
	}
	return encode(decode(a) / bv)
}

func decode(b []byte) int64 {
	var n int64
	for i := len(b) - 1; i >= 0; i-- {
		n = n<<8 | int64(b[i])
	}
	return n
}

func encode(n int64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}
