package ddl

import (
	"fmt"
	"strings"

	"dhlx/pkg/ddl/num"
	"dhlx/pkg/ddl/scan"
)

// Infer evaluates text the way an untyped field assignment would and
// reports the type it settled on.
func (ip *Interp) Infer(text string) (Type, Value, error) { return ip.infer(text) }

// infer evaluates text that has no declared type and reports the type it
// was read as: quoted text is a string, true/false a bool, numeric
// literals int or real, and a lone name takes the type of the object it
// names. Anything else is evaluated in the family its operands suggest.
func (ip *Interp) infer(text string) (Type, Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TypeNull, Value{}, fmt.Errorf("%w: empty value", ErrSyntax)
	}
	if scan.IsQuoted(text) {
		s, err := scan.Unquote(text)
		return ip.mustType("string"), NewString(KindString, s), err
	}
	switch strings.ToLower(text) {
	case "true":
		return ip.mustType("bool"), NewBool(true), nil
	case "false":
		return ip.mustType("bool"), NewBool(false), nil
	}
	// A leading digit only makes text a literal when all of it parses;
	// "2 + 3" is an expression and goes through the cascade below.
	if num.IsNumeric(text) {
		if i, err := num.ParseInt(text); err == nil {
			return ip.mustType("int"), NewInt(KindInt, i), nil
		}
		if f, err := num.ParseReal(text); err == nil {
			return ip.mustType("real"), NewReal(KindReal, f), nil
		}
	}
	if isWord(text) {
		if n, err := ip.resolveName(text); err == nil {
			if o, err := ip.Get(n); err == nil {
				if o.IsMap() {
					return o.typ, NewObjectRef(o), nil
				}
				return o.typ, o.val, nil
			}
		}
	}

	order := []Family{FamilyInt, FamilyReal, FamilyString}
	if f := ip.operandFamily(text); f != FamilyNone {
		order = append([]Family{f}, order...)
	}
	var firstErr error
	for _, f := range order {
		v, err := ip.EvalFamily(text, f)
		if err == nil {
			return ip.mustType(f.Kind().String()), v, nil
		}
		if IsFatal(err) {
			return TypeNull, Value{}, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return TypeNull, Value{}, firstErr
}

// operandFamily guesses the family of an untyped expression from its
// operands: any string makes it a string expression, any real literal,
// real value or function call a real one, bool values alone a bool one.
func (ip *Interp) operandFamily(text string) Family {
	var hasString, hasReal, hasCall, hasInt, hasBool bool
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"' || c == '\'':
			hasString = true
			end := i + 1
			for end < len(text) && text[end] != c {
				if text[end] == '\\' {
					end++
				}
				end++
			}
			i = end + 1
		case c == '[' || c == '<':
			hasCall = true
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9':
			end := i
			for end < len(text) && (isAlnum(text[end]) || text[end] == '.' || text[end] == '_') {
				end++
			}
			if _, err := num.ParseInt(text[i:end]); err == nil {
				hasInt = true
			} else {
				hasReal = true
			}
			i = end
		case isNameStart(c):
			end := i
			for end < len(text) {
				if text[end] == '[' || text[end] == '<' {
					if close := matchClose(text, end); close > 0 {
						end = close + 1
						continue
					}
				}
				if !isAlnum(text[end]) && strings.IndexByte("_.$", text[end]) < 0 {
					break
				}
				end++
			}
			switch strings.ToLower(text[i:end]) {
			case "true", "false":
				hasBool = true
			default:
				if n, err := ip.resolveName(text[i:end]); err == nil {
					if o, err := ip.Get(n); err == nil {
						switch ip.valueOf(o).deref().Family() {
						case FamilyString:
							hasString = true
						case FamilyReal:
							hasReal = true
						case FamilyBool:
							hasBool = true
						default:
							hasInt = true
						}
					}
				}
			}
			i = end
		default:
			i++
		}
	}
	switch {
	case hasString:
		return FamilyString
	case hasReal || hasCall:
		return FamilyReal
	case hasBool && !hasInt:
		return FamilyBool
	case hasInt:
		return FamilyInt
	}
	return FamilyNone
}
