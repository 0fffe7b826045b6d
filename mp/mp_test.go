package mp

import "testing"

func TestStubArithmetic(t *testing.T) {
	a := encode(7)
	b := encode(3)
	s := Stub{}

	if got := decode(s.Add(0, a, b)); got != 10 {
		t.Errorf("Add(7, 3) = %d, want 10", got)
	}
	if got := decode(s.Sub(0, a, b)); got != 4 {
		t.Errorf("Sub(7, 3) = %d, want 4", got)
	}
	if got := decode(s.Mul(0, a, b)); got != 21 {
		t.Errorf("Mul(7, 3) = %d, want 21", got)
	}
	if got := decode(s.Div(0, a, b)); got != 2 {
		t.Errorf("Div(7, 3) = %d, want 2", got)
	}
}

func TestStubDivByZero(t *testing.T) {
	s := Stub{}
	if got := decode(s.Div(0, encode(5), encode(0))); got != 0 {
		t.Errorf("Div by zero = %d, want 0", got)
	}
}

func TestStubDigitsAndSizeIgnoreSizety(t *testing.T) {
	s := Stub{}
	if s.Digits(0) != s.Digits(2) {
		t.Error("expected Digits to be independent of sizety")
	}
	if s.Size(1) != 8 {
		t.Errorf("Size(1) = %d, want 8", s.Size(1))
	}
}
