// Package num holds the numeric plumbing shared by the level compiler:
// base-prefixed literal parsing and formatting, angle helpers and the
// deterministic random source behind the [random] constant.
package num

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned when a literal does not parse in its base.
var ErrInvalidNumber = errors.New("invalid number")

// Base prefixes recognised on integer and real literals.
//
//	0x / 0X  hexadecimal
//	0o / 0O  octal
//	0d / 0D  decimal (explicit)
//	0b / 0B  binary
//	0NNN     octal (integers only, leading zero followed by a digit)
func splitBase(s string) (base int, digits string, explicit bool) {
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return 16, s[2:], true
		case 'o', 'O':
			return 8, s[2:], true
		case 'd', 'D':
			return 10, s[2:], true
		case 'b', 'B':
			return 2, s[2:], true
		}
	}
	return 10, s, false
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

func splitSign(s string) (neg bool, rest string) {
	switch {
	case strings.HasPrefix(s, "-"):
		return true, s[1:]
	case strings.HasPrefix(s, "+"):
		return false, s[1:]
	}
	return false, s
}

// ParseInt parses an integer literal with an optional sign and base prefix.
// A bare leading zero followed by more digits is octal.
func ParseInt(s string) (int64, error) {
	neg, body := splitSign(strings.TrimSpace(s))
	if body == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	base, digits, explicit := splitBase(body)
	if !explicit && len(digits) > 1 && digits[0] == '0' {
		base, digits = 8, digits[1:]
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	var v uint64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c == '_' {
			continue
		}
		d := digitValue(c)
		if d >= base {
			return 0, fmt.Errorf("%w: %q: digit %q not valid in base %d", ErrInvalidNumber, s, c, base)
		}
		next := v*uint64(base) + uint64(d)
		if next/uint64(base) != v && v != 0 {
			return 0, fmt.Errorf("%w: %q: overflow", ErrInvalidNumber, s)
		}
		v = next
	}
	if neg {
		if v > 1<<63 {
			return 0, fmt.Errorf("%w: %q: overflow", ErrInvalidNumber, s)
		}
		return -int64(v), nil
	}
	// Values above MaxInt64 keep their bit pattern (0xFFFFFFFFFFFFFFFF is -1).
	return int64(v), nil
}

// ParseReal parses a real literal. Base prefixes apply to both the integer
// and the fractional digits; a decimal exponent (e/E) is accepted for bases
// up to ten. Without a prefix the literal is always decimal.
func ParseReal(s string) (float64, error) {
	neg, body := splitSign(strings.TrimSpace(s))
	if body == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	base, digits, explicit := splitBase(body)
	if !explicit {
		if !strings.ContainsAny(digits, ".eE") && len(digits) > 1 && digits[0] == '0' {
			if v, err := ParseInt(body); err == nil {
				return signed(float64(v), neg), nil
			}
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(digits, "_", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
		}
		return signed(v, neg), nil
	}

	mant, exp := digits, ""
	if base <= 10 {
		if i := strings.IndexAny(digits, "eE"); i >= 0 {
			mant, exp = digits[:i], digits[i+1:]
		}
	}
	intPart, fracPart, _ := strings.Cut(mant, ".")
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	var v float64
	for i := 0; i < len(intPart); i++ {
		d := digitValue(intPart[i])
		if d >= base {
			return 0, fmt.Errorf("%w: %q: digit %q not valid in base %d", ErrInvalidNumber, s, intPart[i], base)
		}
		v = v*float64(base) + float64(d)
	}
	scale := 1.0
	for i := 0; i < len(fracPart); i++ {
		d := digitValue(fracPart[i])
		if d >= base {
			return 0, fmt.Errorf("%w: %q: digit %q not valid in base %d", ErrInvalidNumber, s, fracPart[i], base)
		}
		scale /= float64(base)
		v += float64(d) * scale
	}
	if exp != "" {
		e, err := strconv.Atoi(exp)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: bad exponent", ErrInvalidNumber, s)
		}
		v *= math.Pow10(e)
	}
	return signed(v, neg), nil
}

func signed(v float64, neg bool) float64 {
	if neg {
		return -v
	}
	return v
}

// IsNumeric reports whether s looks like a numeric literal (int or real),
// without fully validating digits. Used to keep exponent signs together
// when scanning expressions.
func IsNumeric(s string) bool {
	_, body := splitSign(s)
	if body == "" {
		return false
	}
	c := body[0]
	return (c >= '0' && c <= '9') || (c == '.' && len(body) > 1 && body[1] >= '0' && body[1] <= '9')
}

// FormatInt renders v in the given base with its prefix (no prefix for 10).
func FormatInt(v int64, base int) string {
	neg := v < 0
	u := uint64(v)
	if neg {
		u = uint64(-v)
	}
	var prefix string
	switch base {
	case 16:
		prefix = "0x"
	case 8:
		prefix = "0o"
	case 2:
		prefix = "0b"
	default:
		base = 10
	}
	out := prefix + strconv.FormatUint(u, base)
	if neg {
		return "-" + out
	}
	return out
}

// FormatReal renders v so that ParseReal(FormatReal(v, -1)) == v.
// A non-negative precision fixes the number of fractional digits.
func FormatReal(v float64, precision int) string {
	if precision >= 0 {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
