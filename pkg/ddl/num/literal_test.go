package num

import (
	"errors"
	"math"
	"testing"
)

func TestParseInt_Bases(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"-42", -42},
		{"+7", 7},
		{"0x1F", 31},
		{"0XfF", 255},
		{"0o17", 15},
		{"017", 15},
		{"0d19", 19},
		{"0b1011", 11},
		{"-0x10", -16},
		{"1_000", 1000},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseInt(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("ParseInt(%q) = %d, want %d", c.in, got, c.want)
			}
		})
	}
}

func TestParseInt_RejectsBadDigits(t *testing.T) {
	for _, in := range []string{"", "-", "0x", "0b102", "019", "0o8", "12a", "0dFF"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseInt(in); !errors.Is(err, ErrInvalidNumber) {
				t.Fatalf("ParseInt(%q): expected ErrInvalidNumber, got %v", in, err)
			}
		})
	}
}

func TestParseReal_Forms(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.5", 1.5},
		{"-0.25", -0.25},
		{"1e+5", 1e5},
		{"2.5E-3", 2.5e-3},
		{"0x1.8", 1.5},
		{"0b10.1", 2.5},
		{"0o7.4", 7.5},
		{"0d1.5e2", 150},
		{"010", 8},
		{"0.5", 0.5},
		{".5", 0.5},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseReal(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-c.want) > 1e-12 {
				t.Fatalf("ParseReal(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestRoundTrip_IntAllBases(t *testing.T) {
	values := []int64{0, 1, -1, 7, 8, 255, -4096, 1 << 40, math.MinInt64 + 1, math.MaxInt64}
	for _, base := range []int{2, 8, 10, 16} {
		for _, v := range values {
			s := FormatInt(v, base)
			got, err := ParseInt(s)
			if err != nil {
				t.Fatalf("ParseInt(FormatInt(%d, %d) = %q): %v", v, base, s, err)
			}
			if got != v {
				t.Fatalf("round trip base %d: %d -> %q -> %d", base, v, s, got)
			}
		}
	}
}

func TestRoundTrip_Real(t *testing.T) {
	for _, v := range []float64{0, 1, -1.5, 3.141592653589793, 1e300, 2.5e-10, 100} {
		s := FormatReal(v, -1)
		got, err := ParseReal(s)
		if err != nil {
			t.Fatalf("ParseReal(%q): %v", s, err)
		}
		if got != v {
			t.Fatalf("round trip: %v -> %q -> %v", v, s, got)
		}
	}
}

func TestAngles(t *testing.T) {
	if got := DegToByte(90); got != 64 {
		t.Fatalf("DegToByte(90) = %d, want 64", got)
	}
	if got := DegToByte(-90); got != 192 {
		t.Fatalf("DegToByte(-90) = %d, want 192", got)
	}
	if got := ByteToDeg(128); got != 180 {
		t.Fatalf("ByteToDeg(128) = %v, want 180", got)
	}
	if got := DegToBAM(180); got != 0x80000000 {
		t.Fatalf("DegToBAM(180) = %#x", got)
	}
	if math.Abs(RadToDeg(DegToRad(33))-33) > 1e-9 {
		t.Fatal("deg/rad round trip drifted")
	}
}

func TestRandom_Deterministic(t *testing.T) {
	a, b := NewRandom(7), NewRandom(7)
	for i := 0; i < 16; i++ {
		if a.Int() != b.Int() {
			t.Fatal("equal seeds must give equal sequences")
		}
	}
	r := NewRandom(1)
	for i := 0; i < 100; i++ {
		if v := r.Byte(); v < 0 || v > 255 {
			t.Fatalf("Byte out of range: %d", v)
		}
		if v := r.Real(); v < 0 || v >= 1 {
			t.Fatalf("Real out of range: %v", v)
		}
	}
}
