package ddl

import (
	"fmt"
	"math"
	"strings"

	"dhlx/pkg/ddl/num"
	"dhlx/pkg/ddl/scan"
)

// family is the per-family behaviour the expression parser is generic
// over: operator precedence, operator application, negation and literal
// recognition.
type family interface {
	id() Family
	// levels lists the binary operators by precedence, lowest first.
	levels() []string
	apply(op byte, a, b Value) (Value, error)
	negate(v Value) (Value, error)
	// literal parses s as a literal of the family. ok is false when s is
	// not a literal at all.
	literal(s string) (v Value, ok bool, err error)
}

func familyOf(f Family) (family, error) {
	switch f {
	case FamilyBool:
		return boolFamily{}, nil
	case FamilyInt:
		return intFamily, nil
	case FamilyReal:
		return realFamily, nil
	case FamilyString:
		return stringFamily{}, nil
	}
	return nil, fmt.Errorf("%w: no expressions of family %s", ErrInvalidType, f)
}

// precedence returns the level of op in fam, or -1.
func precedence(fam family, op string) int {
	if len(op) != 1 {
		return -1
	}
	for i, l := range fam.levels() {
		if strings.Contains(l, op) {
			return i
		}
	}
	return -1
}

func quotedLiteral(s string, k Kind) (Value, bool, error) {
	if !scan.IsQuoted(s) {
		return Value{}, false, nil
	}
	text, err := scan.Unquote(s)
	if err != nil {
		return Value{}, true, err
	}
	v, err := NewString(KindString, text).Convert(k)
	return v, true, err
}

type boolFamily struct{}

func (boolFamily) id() Family        { return FamilyBool }
func (boolFamily) levels() []string { return []string{"|", "&"} }

func (boolFamily) apply(op byte, a, b Value) (Value, error) {
	x, err := a.ToBool()
	if err != nil {
		return Value{}, err
	}
	y, err := b.ToBool()
	if err != nil {
		return Value{}, err
	}
	switch op {
	case '&':
		return NewBool(x && y), nil
	case '|':
		return NewBool(x || y), nil
	}
	return Value{}, fmt.Errorf("%w: operator %c on bool", ErrSyntax, op)
}

func (boolFamily) negate(v Value) (Value, error) {
	b, err := v.ToBool()
	return NewBool(!b), err
}

func (boolFamily) literal(s string) (Value, bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return NewBool(true), true, nil
	case "false", "no", "off":
		return NewBool(false), true, nil
	}
	if num.IsNumeric(s) {
		f, err := num.ParseReal(s)
		return NewBool(f != 0), true, err
	}
	return quotedLiteral(s, KindBool)
}

type number interface{ ~int64 | ~float64 }

// numeric implements the int and real families once over their Go type.
type numeric[T number] struct {
	fam   Family
	ops   []string
	get   func(Value) (T, error)
	put   func(T) Value
	parse func(string) (T, error)
	// extra applies the operators beyond + - * /.
	extra func(op byte, a, b T) (T, error)
}

func (n *numeric[T]) id() Family        { return n.fam }
func (n *numeric[T]) levels() []string { return n.ops }

func (n *numeric[T]) apply(op byte, a, b Value) (Value, error) {
	x, err := n.get(a)
	if err != nil {
		return Value{}, err
	}
	y, err := n.get(b)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case '+':
		return n.put(x + y), nil
	case '-':
		return n.put(x - y), nil
	case '*':
		return n.put(x * y), nil
	case '/':
		if y == 0 {
			return Value{}, ErrDivisionByZero
		}
		return n.put(x / y), nil
	}
	if n.extra != nil {
		r, err := n.extra(op, x, y)
		if err != nil {
			return Value{}, err
		}
		return n.put(r), nil
	}
	return Value{}, fmt.Errorf("%w: operator %c on %s", ErrSyntax, op, n.fam)
}

func (n *numeric[T]) negate(v Value) (Value, error) {
	x, err := n.get(v)
	if err != nil {
		return Value{}, err
	}
	return n.put(-x), nil
}

func (n *numeric[T]) literal(s string) (Value, bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return n.put(1), true, nil
	case "false":
		return n.put(0), true, nil
	}
	if num.IsNumeric(s) {
		x, err := n.parse(s)
		if err != nil {
			return Value{}, true, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return n.put(x), true, nil
	}
	return quotedLiteral(s, n.fam.Kind())
}

var intFamily = &numeric[int64]{
	fam: FamilyInt,
	ops: []string{"|", "&", "+-", "*/%"},
	get: func(v Value) (int64, error) { return v.ToInt() },
	put: func(x int64) Value { return NewInt(KindIntLong, x) },
	parse: func(s string) (int64, error) {
		i, err := num.ParseInt(s)
		if err == nil {
			return i, nil
		}
		if f, ferr := num.ParseReal(s); ferr == nil {
			return int64(f), nil
		}
		return 0, err
	},
	extra: func(op byte, a, b int64) (int64, error) {
		switch op {
		case '%':
			if b == 0 {
				return 0, ErrDivisionByZero
			}
			return a % b, nil
		case '&':
			return a & b, nil
		case '|':
			return a | b, nil
		}
		return 0, fmt.Errorf("%w: operator %c on int", ErrSyntax, op)
	},
}

var realFamily = &numeric[float64]{
	fam:   FamilyReal,
	ops:   []string{"+-", "*/"},
	get:   func(v Value) (float64, error) { return v.ToReal() },
	put:   func(x float64) Value { return NewReal(KindRealLong, x) },
	parse: num.ParseReal,
}

type stringFamily struct{}

func (stringFamily) id() Family        { return FamilyString }
func (stringFamily) levels() []string { return []string{"+"} }

func (stringFamily) apply(op byte, a, b Value) (Value, error) {
	if op != '+' {
		return Value{}, fmt.Errorf("%w: operator %c on string", ErrSyntax, op)
	}
	x, err := a.ToString()
	if err != nil {
		return Value{}, err
	}
	y, err := b.ToString()
	if err != nil {
		return Value{}, err
	}
	return NewString(KindString, x+y), nil
}

func (stringFamily) negate(v Value) (Value, error) {
	return Value{}, fmt.Errorf("%w: cannot negate a string", ErrSyntax)
}

func (stringFamily) literal(s string) (Value, bool, error) {
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		return NewString(KindString, s[1:]), true, nil
	}
	if num.IsNumeric(s) && isNumberToken(s) {
		return NewString(KindString, s), true, nil
	}
	return quotedLiteral(s, KindString)
}

func isNumberToken(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '.' || c == '_' || c == '+' || c == '-') {
			return false
		}
	}
	return true
}

// fmod backs the <fmod> call, reals having no % operator.
func fmod(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return math.Mod(a, b), nil
}
