package ddl

import (
	"fmt"
	"strings"

	"dhlx/pkg/ddl/scan"
)

// EvalStream parses one expression of type t from a DHLX token stream. It
// reads a primary, then keeps consuming trailing binary operators of the
// type's family and their right operands. The token that ends the
// expression is left unread.
func (ip *Interp) EvalStream(sc *scan.Scanner, t Type) (Value, error) {
	if ip.Types.Mode(t) == ModeDynamic {
		rt, err := ip.Type(ip.TypeName(t))
		if err != nil {
			return Value{}, err
		}
		t = rt
	}
	if ip.Types.Mode(t).IsMap() {
		text, err := primaryText(sc)
		if err != nil {
			return Value{}, err
		}
		return ip.evalObject(text, t)
	}
	native := ip.Types.Native(t)
	fam, err := familyOf(native.Family())
	if err != nil {
		return Value{}, err
	}
	v, err := ip.climb(sc, fam, 0)
	if err != nil {
		return Value{}, err
	}
	return v.Convert(native)
}

// climb is precedence climbing over the family's operator levels.
func (ip *Interp) climb(sc *scan.Scanner, fam family, minPrec int) (Value, error) {
	text, err := primaryText(sc)
	if err != nil {
		return Value{}, err
	}
	lhs, err := ip.eval(text, fam)
	if err != nil {
		return Value{}, err
	}
	for {
		t, err := sc.Peek()
		if err != nil {
			return Value{}, err
		}
		if t.Kind != scan.Punct {
			return lhs, nil
		}
		prec := precedence(fam, t.Text)
		if prec < 0 || prec < minPrec {
			return lhs, nil
		}
		sc.Next()
		rhs, err := ip.climb(sc, fam, prec+1)
		if err != nil {
			return Value{}, err
		}
		if lhs, err = fam.apply(t.Text[0], lhs, rhs); err != nil {
			return Value{}, err
		}
	}
}

// primaryText consumes the tokens of one primary expression and returns
// their source spelling: a literal or name, a signed primary, a
// parenthesised group (with the operand of a cast), a bracket function
// with its optional operand, or an extension call with its arguments.
func primaryText(sc *scan.Scanner) (string, error) {
	t, err := sc.Next()
	if err != nil {
		return "", err
	}
	switch t.Kind {
	case scan.Word, scan.Number, scan.String:
		return t.Raw, nil
	case scan.Func:
		s := "[" + t.Text + "]"
		if next, err := sc.Peek(); err == nil && startsOperand(next) {
			operand, err := primaryText(sc)
			if err != nil {
				return "", err
			}
			s += operand
		}
		return s, nil
	case scan.Call:
		if err := sc.Expect("("); err != nil {
			return "", err
		}
		inner, err := groupText(sc)
		if err != nil {
			return "", err
		}
		return "<" + t.Text + ">(" + inner + ")", nil
	case scan.Punct:
		switch t.Text {
		case "-", "!", "+":
			operand, err := primaryText(sc)
			if err != nil {
				return "", err
			}
			if t.Text == "+" {
				return operand, nil
			}
			return t.Text + operand, nil
		case "(":
			inner, err := groupText(sc)
			if err != nil {
				return "", err
			}
			s := "(" + inner + ")"
			if isWord(inner) {
				if next, err := sc.Peek(); err == nil && startsOperand(next) {
					operand, err := primaryText(sc)
					if err != nil {
						return "", err
					}
					s += operand
				}
			}
			return s, nil
		}
	case scan.EOF:
		return "", fmt.Errorf("%w: expression expected, found end of file", ErrSyntax)
	}
	return "", fmt.Errorf("%w: expression expected, found %q", ErrSyntax, t.String())
}

func startsOperand(t scan.Token) bool {
	switch t.Kind {
	case scan.Word, scan.Number, scan.String, scan.Func, scan.Call:
		return true
	}
	return t.Is("(")
}

// groupText consumes tokens up to the ')' matching an already consumed
// '(' and returns the spelling of what lies between.
func groupText(sc *scan.Scanner) (string, error) {
	var parts []string
	depth := 0
	for {
		t, err := sc.Next()
		if err != nil {
			return "", err
		}
		switch {
		case t.Kind == scan.EOF || t.Is(";") || t.Is("{") || t.Is("}"):
			return "", fmt.Errorf("%w: unbalanced '('", ErrSyntax)
		case t.Is("("):
			depth++
		case t.Is(")"):
			if depth == 0 {
				return strings.Join(parts, " "), nil
			}
			depth--
		}
		parts = append(parts, t.Raw)
	}
}
