package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"dhlx/pkg/ddl/num"
	"dhlx/pkg/ddl/scan"
)

// Eval parses text as a value of type t. Value types yield their native
// kind; map types yield a reference to the named or indexed object.
func (ip *Interp) Eval(text string, t Type) (Value, error) {
	mode := ip.Types.Mode(t)
	if mode == ModeDynamic {
		rt, err := ip.Type(ip.TypeName(t))
		if err != nil {
			return Value{}, err
		}
		t, mode = rt, ip.Types.Mode(rt)
	}
	if mode.IsMap() {
		return ip.evalObject(text, t)
	}
	native := ip.Types.Native(t)
	v, err := ip.EvalFamily(text, native.Family())
	if err != nil {
		return Value{}, err
	}
	return v.Convert(native)
}

// EvalFamily parses text with the operators and literal rules of f.
func (ip *Interp) EvalFamily(text string, f Family) (Value, error) {
	fam, err := familyOf(f)
	if err != nil {
		return Value{}, err
	}
	return ip.eval(text, fam)
}

// eval is the batch cascade: binary split, cast, bracket function, call,
// parenthesis strip, negation, literal, then object lookup.
func (ip *Interp) eval(s string, fam family) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	if left, op, right, ok := splitBinary(s, fam.levels()); ok {
		a, err := ip.eval(left, fam)
		if err != nil {
			return Value{}, err
		}
		b, err := ip.eval(right, fam)
		if err != nil {
			return Value{}, err
		}
		return fam.apply(op, a, b)
	}
	switch s[0] {
	case '(':
		end := matchClose(s, 0)
		if end < 0 {
			return Value{}, fmt.Errorf("%w: unbalanced '(' in %q", ErrSyntax, s)
		}
		inner := strings.TrimSpace(s[1:end])
		if isWord(inner) && ip.Types.Has(inner) {
			return ip.cast(inner, s[end+1:], fam)
		}
		if end == len(s)-1 {
			return ip.eval(inner, fam)
		}
		return Value{}, fmt.Errorf("%w: unexpected %q after ')'", ErrSyntax, s[end+1:])
	case '[':
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return Value{}, fmt.Errorf("%w: unbalanced '[' in %q", ErrSyntax, s)
		}
		return ip.callUnary(strings.TrimSpace(s[1:end]), strings.TrimSpace(s[end+1:]), fam)
	case '<':
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return Value{}, fmt.Errorf("%w: unbalanced '<' in %q", ErrSyntax, s)
		}
		name := strings.TrimSpace(s[1:end])
		rest := strings.TrimSpace(s[end+1:])
		if rest == "" || rest[0] != '(' || matchClose(rest, 0) != len(rest)-1 {
			return Value{}, fmt.Errorf("%w: call to <%s> needs an argument list", ErrSyntax, name)
		}
		return ip.callFunction(name, scan.SplitTop(rest[1:len(rest)-1], ','), fam)
	case '-':
		if !num.IsNumeric(s) {
			v, err := ip.eval(s[1:], fam)
			if err != nil {
				return Value{}, err
			}
			return fam.negate(v)
		}
	case '!':
		v, err := ip.eval(s[1:], boolFamily{})
		if err != nil {
			return Value{}, err
		}
		b, err := v.ToBool()
		if err != nil {
			return Value{}, err
		}
		return NewBool(!b).ConvertFamily(fam.id())
	}
	if v, ok, err := fam.literal(s); ok {
		return v, err
	}
	return ip.deref(s, fam)
}

// deref evaluates s as an object name. Strings fall back to the bare text
// outside strict mode.
func (ip *Interp) deref(s string, fam family) (Value, error) {
	n, err := ip.resolveName(s)
	if err == nil {
		var o *Object
		if o, err = ip.Get(n); err == nil {
			return ip.valueOf(o).ConvertFamily(fam.id())
		}
	}
	if fam.id() == FamilyString && !ip.Opts.Strict && !strings.ContainsAny(s, " \t\r\n") {
		return NewString(KindString, s), nil
	}
	return Value{}, err
}

// valueOf is the value an object contributes to an expression: the payload
// of a leaf, a reference for a map.
func (ip *Interp) valueOf(o *Object) Value {
	if o.IsMap() {
		return NewObjectRef(o)
	}
	return o.val
}

// cast evaluates rest under typeName and converts the result to fam. An
// empty rest yields the type's zero value.
func (ip *Interp) cast(typeName, rest string, fam family) (Value, error) {
	t, err := ip.Type(typeName)
	if err != nil {
		return Value{}, err
	}
	var v Value
	if strings.TrimSpace(rest) == "" {
		v = Zero(ip.Types.Native(t))
		if ip.Types.Mode(t).IsMap() {
			v = NewObjectRef(nil)
		}
	} else if v, err = ip.Eval(rest, t); err != nil {
		return Value{}, err
	}
	return v.ConvertFamily(fam.id())
}

// evalObject resolves text to an object of map type t: by name, or by
// index into t's store list. An index outside the list is kept as an
// integer leaf of type t.
func (ip *Interp) evalObject(text string, t Type) (Value, error) {
	text = strings.TrimSpace(text)
	if n, err := ip.resolveName(text); err == nil && isWord(text) {
		if o, err := ip.Get(n); err == nil {
			if o.IsMap() {
				return NewObjectRef(o), nil
			}
			text = o.val.String()
		}
	}
	iv, err := ip.EvalFamily(text, FamilyInt)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s is not a %s", ErrUnknownElement, text, ip.TypeName(t))
	}
	i, _ := iv.ToInt()
	if o, ok := ip.Store.At(t, int(i)); ok {
		return NewObjectRef(o), nil
	}
	return NewInt(KindInt, i), nil
}

// resolveName folds computed parts: a[expr] becomes a[N] with expr
// evaluated as an integer, a<expr> splices the string value of expr.
func (ip *Interp) resolveName(s string) (Name, error) {
	n := ParseName(s)
	if n.IsEmpty() {
		return n, fmt.Errorf("%w: empty name", ErrSyntax)
	}
	parts := n.Parts()
	for i, p := range parts {
		if !isNameStart(p[0]) {
			return Name{}, fmt.Errorf("%w: %q is not a name", ErrSyntax, s)
		}
		if strings.ContainsAny(p, "[<") {
			folded, err := ip.foldPart(p)
			if err != nil {
				return Name{}, err
			}
			p = folded
		}
		if p == NameGlobal || p == NameThis {
			parts[i] = p
			continue
		}
		parts[i] = ip.fold(p)
	}
	return NewName(parts...), nil
}

func (ip *Interp) foldPart(p string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(p); {
		c := p[i]
		if c != '[' && c != '<' {
			b.WriteByte(c)
			i++
			continue
		}
		end := matchClose(p, i)
		if end < 0 {
			return "", fmt.Errorf("%w: unbalanced %q in name %q", ErrSyntax, c, p)
		}
		inner := p[i+1 : end]
		if c == '[' {
			v, err := ip.EvalFamily(inner, FamilyInt)
			if err != nil {
				return "", err
			}
			x, _ := v.ToInt()
			b.WriteString("[" + strconv.FormatInt(x, 10) + "]")
		} else {
			v, err := ip.EvalFamily(inner, FamilyString)
			if err != nil {
				return "", err
			}
			s, _ := v.ToString()
			b.WriteString(s)
		}
		i = end + 1
	}
	return b.String(), nil
}

func isNameStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isWord reports a single identifier-like token, possibly dotted and with
// bracket suffixes, with no operators or spaces at top level.
func isWord(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '[' || c == '<' || c == '(':
			depth++
		case c == ']' || c == '>' || c == ')':
			depth--
		case depth > 0:
		case c == '_' || c == '.' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return depth == 0
}

// matchClose returns the index of the bracket closing the one at s[i], or
// -1. Quoted strings are skipped.
func matchClose(s string, i int) int {
	open := s[i]
	var close byte
	switch open {
	case '(':
		close = ')'
	case '[':
		close = ']'
	case '<':
		close = '>'
	default:
		return -1
	}
	depth := 0
	var quote byte
	for j := i; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0:
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// topLevel marks the bytes of s that are outside quotes and brackets.
func topLevel(s string) []bool {
	top := make([]bool, len(s))
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '<':
			depth++
		case c == ')' || c == ']' || c == '>':
			if depth > 0 {
				depth--
			}
		default:
			top[i] = depth == 0
		}
	}
	return top
}

const opChars = "+-*/%&|!"

// splitBinary finds the rightmost top-level operator of the lowest
// precedence level present in s. Signs that follow another operator, lead
// the expression or belong to an exponent are not binary operators.
func splitBinary(s string, levels []string) (left string, op byte, right string, ok bool) {
	top := topLevel(s)
	for _, level := range levels {
		for i := len(s) - 1; i > 0; i-- {
			if !top[i] || strings.IndexByte(level, s[i]) < 0 {
				continue
			}
			l := strings.TrimSpace(s[:i])
			if l == "" || strings.IndexByte(opChars, l[len(l)-1]) >= 0 {
				continue
			}
			if (s[i] == '+' || s[i] == '-') && isExponentSign(s, i) {
				continue
			}
			return l, s[i], s[i+1:], true
		}
	}
	return "", 0, "", false
}

func isExponentSign(s string, i int) bool {
	if i < 2 || (s[i-1] != 'e' && s[i-1] != 'E') {
		return false
	}
	j := i - 1
	for j > 0 && (isAlnum(s[j-1]) || s[j-1] == '.' || s[j-1] == '_') {
		j--
	}
	word := s[j : i-1]
	if word == "" || !num.IsNumeric(word) {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(word), "0x")
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
