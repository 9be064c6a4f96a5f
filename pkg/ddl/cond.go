package ddl

import (
	"fmt"
	"strings"

	"dhlx/pkg/ddl/scan"
)

var compareOps = map[string]string{
	"eq": "eq", "==": "eq",
	"ne": "ne", "!=": "ne",
	"lt": "lt", "<": "lt",
	"le": "le", "<=": "le",
	"gt": "gt", ">": "gt",
	"ge": "ge", ">=": "ge",
}

var nameTests = map[string]nameTestFunc{
	"exists":   testExists,
	"volatile": testVolatile,
	"private":  testPrivate,
}

// condition evaluates the argument text of #if, #while and friends. Three
// forms are accepted:
//
//	[type] left op right      comparison, op one of eq ne lt le gt ge
//	                          or == != < <= > >=
//	test [not|local|global] name...
//	                          named test, true if any name passes
//	expr                      boolean expression
//
// Parts are separated by ':' in DDL style, else by whitespace. With
// cmpOnly set only the comparison form is accepted.
func (ip *Interp) condition(args string, cmpOnly bool) (bool, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return false, fmt.Errorf("%w: empty condition", ErrSyntax)
	}
	parts := scan.SplitTop(args, ':')
	if len(parts) <= 1 {
		parts = scan.SplitFields(args)
	}
	if k := compareAt(parts); k > 0 && k < len(parts)-1 {
		left := parts[:k]
		typeName := ""
		if len(left) >= 2 && ip.Types.Has(left[0]) {
			typeName, left = left[0], left[1:]
		}
		return ip.compare(typeName, strings.Join(left, " "), compareOps[strings.ToLower(parts[k])], strings.Join(parts[k+1:], " "))
	}
	if left, op, right, ok := splitCompare(args); ok {
		return ip.compare("", left, op, right)
	}
	if cmpOnly {
		return false, fmt.Errorf("%w: %q is not a comparison", ErrSyntax, args)
	}
	for i, p := range parts {
		w := strings.ToLower(p)
		if test, ok := nameTests[w]; ok && len(parts) > 1 {
			return ip.namedTest(test, append(parts[:i:i], parts[i+1:]...))
		}
		if w != "not" && w != "local" && w != "global" {
			break
		}
	}
	v, err := ip.EvalFamily(args, FamilyBool)
	if err != nil {
		return false, err
	}
	return v.ToBool()
}

func compareAt(parts []string) int {
	for i, p := range parts {
		if _, ok := compareOps[strings.ToLower(p)]; ok {
			return i
		}
	}
	return -1
}

// splitCompare finds an unspaced two-character comparison operator such as
// "a==b" outside quotes.
func splitCompare(s string) (left, op, right string, ok bool) {
	var quote byte
	for i := 0; i+1 < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		case c == '"' || c == '\'':
			quote = c
			continue
		}
		if op, found := compareOps[s[i:i+2]]; found && s[i+1] == '=' {
			return strings.TrimSpace(s[:i]), op, strings.TrimSpace(s[i+2:]), true
		}
	}
	return "", "", "", false
}

// compare evaluates left and right under typeName, or under the type
// inferred from left, and applies op.
func (ip *Interp) compare(typeName, left, op, right string) (bool, error) {
	var (
		lv, rv Value
		t      Type
		err    error
	)
	if typeName != "" {
		if t, err = ip.Type(typeName); err != nil {
			return false, err
		}
		if lv, err = ip.Eval(left, t); err != nil {
			return false, err
		}
	} else if t, lv, err = ip.infer(left); err != nil {
		return false, err
	}
	if rv, err = ip.Eval(right, t); err != nil {
		return false, err
	}
	c, err := Cmp(lv, rv)
	if err != nil {
		return false, err
	}
	switch op {
	case "eq":
		return c == 0, nil
	case "ne":
		return c != 0, nil
	case "lt":
		return c < 0, nil
	case "le":
		return c <= 0, nil
	case "gt":
		return c > 0, nil
	case "ge":
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: unknown comparison %q", ErrSyntax, op)
}

// namedTest applies test to every operand and ORs the results. The words
// not, local and global modify the test wherever they appear.
func (ip *Interp) namedTest(test nameTestFunc, parts []string) (bool, error) {
	var not, local, global bool
	var names []string
	for _, p := range parts {
		for _, w := range scan.SplitFields(p) {
			switch strings.ToLower(w) {
			case "not":
				not = true
			case "local":
				local = true
			case "global":
				global = true
			default:
				names = append(names, w)
			}
		}
	}
	if len(names) == 0 {
		return false, fmt.Errorf("%w: test needs at least one name", ErrSyntax)
	}
	result := false
	for _, s := range names {
		n, err := ip.resolveName(s)
		if err != nil {
			return false, err
		}
		if global {
			n = NewName(append([]string{NameGlobal}, n.Parts()...)...)
		}
		if test(ip, n, local) {
			result = true
			break
		}
	}
	return result != not, nil
}
