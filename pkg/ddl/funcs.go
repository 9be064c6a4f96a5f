package ddl

import (
	"fmt"
	"math"
	"strings"

	"dhlx/pkg/ddl/num"
	"dhlx/pkg/ddl/scan"
)

// unaryFunc implements one [name] bracket function. rest is the operand
// text, empty for constants.
type unaryFunc func(ip *Interp, rest string) (Value, error)

// callFunc implements one <name>(args) extension call.
type callFunc func(ip *Interp, args []string) (Value, error)

var (
	unaryTables map[Family]map[string]unaryFunc
	callTable   map[string]callFunc
)

// unaryFallback is the order in which other families are searched when a
// bracket function is not defined for the family being evaluated.
var unaryFallback = []Family{FamilyReal, FamilyInt, FamilyString, FamilyBool}

func init() {
	unaryTables = map[Family]map[string]unaryFunc{
		FamilyReal: {
			"pi":        constant(NewReal(KindRealLong, math.Pi)),
			"e":         constant(NewReal(KindRealLong, math.E)),
			"random":    func(ip *Interp, rest string) (Value, error) { return noOperand(rest, NewReal(KindRealLong, ip.rand.Real())) },
			"abs":       realFunc(math.Abs),
			"sin":       realFunc(math.Sin),
			"cos":       realFunc(math.Cos),
			"tan":       realFunc(math.Tan),
			"asin":      realFunc(math.Asin),
			"acos":      realFunc(math.Acos),
			"atan":      realFunc(math.Atan),
			"sqrt":      realFunc(math.Sqrt),
			"floor":     realFunc(math.Floor),
			"ceil":      realFunc(math.Ceil),
			"round":     realFunc(math.Round),
			"torad":     realFunc(num.DegToRad),
			"todeg":     realFunc(num.RadToDeg),
			"normdeg":   realFunc(num.NormalizeDeg),
			"bytetodeg": func(ip *Interp, rest string) (Value, error) { return intToReal(ip, rest, num.ByteToDeg) },
		},
		FamilyInt: {
			"random": func(ip *Interp, rest string) (Value, error) { return noOperand(rest, NewInt(KindIntLong, ip.rand.Byte())) },
			"abs": func(ip *Interp, rest string) (Value, error) {
				x, err := ip.intOperand(rest)
				if x < 0 {
					x = -x
				}
				return NewInt(KindIntLong, x), err
			},
			"degtobyte": func(ip *Interp, rest string) (Value, error) { return realToInt(ip, rest, num.DegToByte) },
			"degtobam":  func(ip *Interp, rest string) (Value, error) { return realToInt(ip, rest, num.DegToBAM) },
			"count":     (*Interp).countOf,
			"index":     (*Interp).indexOf,
			"length": func(ip *Interp, rest string) (Value, error) {
				s, err := ip.stringOperand(rest)
				return NewInt(KindIntLong, int64(len(s))), err
			},
		},
		FamilyString: {
			"mapname": func(ip *Interp, rest string) (Value, error) { return noOperand(rest, NewString(KindString, ip.Opts.MapName)) },
			"quote":   stringFunc(scan.Quote),
			"upper":   stringFunc(strings.ToUpper),
			"lower":   stringFunc(strings.ToLower),
			"trim":    stringFunc(strings.TrimSpace),
			"typeof":  (*Interp).typeOf,
		},
		FamilyBool: {
			"not": func(ip *Interp, rest string) (Value, error) {
				v, err := ip.operand(rest, boolFamily{})
				if err != nil {
					return Value{}, err
				}
				b, err := v.ToBool()
				return NewBool(!b), err
			},
			"exists":   nameTest(testExists),
			"volatile": nameTest(testVolatile),
			"private":  nameTest(testPrivate),
			"local": func(ip *Interp, rest string) (Value, error) {
				n, err := ip.resolveName(rest)
				if err != nil {
					return Value{}, err
				}
				_, err = ip.GetLocal(n)
				return NewBool(err == nil), nil
			},
			"global": func(ip *Interp, rest string) (Value, error) {
				n, err := ip.resolveName(rest)
				if err != nil {
					return Value{}, err
				}
				_, err = ip.lookupIn(ip.Root, n)
				return NewBool(err == nil), nil
			},
		},
	}

	callTable = map[string]callFunc{
		"min":    realFold(math.Min),
		"max":    realFold(math.Max),
		"hypot":  realFold(math.Hypot),
		"atan2":  realPair(func(y, x float64) (float64, error) { return math.Atan2(y, x), nil }),
		"pow":    realPair(func(x, y float64) (float64, error) { return math.Pow(x, y), nil }),
		"fmod":   realPair(fmod),
		"clamp":  callClamp,
		"random": callRandom,
		"strlen": func(ip *Interp, args []string) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return Value{}, err
			}
			s, err := ip.stringOperand(args[0])
			return NewInt(KindIntLong, int64(len(s))), err
		},
		"substr":  callSubstr,
		"replace": callReplace,
		"concat": func(ip *Interp, args []string) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				s, err := ip.stringOperand(a)
				if err != nil {
					return Value{}, err
				}
				b.WriteString(s)
			}
			return NewString(KindString, b.String()), nil
		},
		"any": boolFold(false),
		"all": boolFold(true),
		"typeof": func(ip *Interp, args []string) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return Value{}, err
			}
			return ip.typeOf(args[0])
		},
	}
}

// callUnary evaluates [name]rest for fam. Functions missing from fam's
// table are looked up in the other families and their result converted.
func (ip *Interp) callUnary(name, rest string, fam family) (Value, error) {
	key := strings.ToLower(name)
	fn, ok := unaryTables[fam.id()][key]
	if !ok {
		for _, f := range unaryFallback {
			if fn, ok = unaryTables[f][key]; ok {
				break
			}
		}
	}
	if !ok {
		return Value{}, fmt.Errorf("%w: [%s]", ErrUnknownFunction, name)
	}
	v, err := fn(ip, rest)
	if err != nil {
		return Value{}, err
	}
	return v.ConvertFamily(fam.id())
}

// callFunction evaluates <name>(args) for fam: a user function registered
// for the family first, then the builtin extension calls.
func (ip *Interp) callFunction(name string, args []string, fam family) (Value, error) {
	if fn, ok := ip.funcs[fam.id()][ip.fold(name)]; ok {
		return ip.callUser(fn, args, fam)
	}
	call, ok := callTable[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("%w: <%s>", ErrUnknownFunction, name)
	}
	v, err := call(ip, args)
	if err != nil {
		return Value{}, fmt.Errorf("<%s>: %w", name, err)
	}
	return v.ConvertFamily(fam.id())
}

func (ip *Interp) operand(rest string, fam family) (Value, error) {
	if strings.TrimSpace(rest) == "" {
		return Value{}, fmt.Errorf("%w: missing operand", ErrSyntax)
	}
	return ip.eval(rest, fam)
}

func (ip *Interp) intOperand(rest string) (int64, error) {
	v, err := ip.operand(rest, intFamily)
	if err != nil {
		return 0, err
	}
	return v.ToInt()
}

func (ip *Interp) realOperand(rest string) (float64, error) {
	v, err := ip.operand(rest, realFamily)
	if err != nil {
		return 0, err
	}
	return v.ToReal()
}

func (ip *Interp) stringOperand(rest string) (string, error) {
	v, err := ip.operand(rest, stringFamily{})
	if err != nil {
		return "", err
	}
	return v.ToString()
}

func constant(v Value) unaryFunc {
	return func(_ *Interp, rest string) (Value, error) { return noOperand(rest, v) }
}

func noOperand(rest string, v Value) (Value, error) {
	if strings.TrimSpace(rest) != "" {
		return Value{}, fmt.Errorf("%w: constant takes no operand, found %q", ErrSyntax, rest)
	}
	return v, nil
}

func realFunc(f func(float64) float64) unaryFunc {
	return func(ip *Interp, rest string) (Value, error) {
		x, err := ip.realOperand(rest)
		if err != nil {
			return Value{}, err
		}
		return NewReal(KindRealLong, f(x)), nil
	}
}

func intToReal(ip *Interp, rest string, f func(int64) float64) (Value, error) {
	x, err := ip.intOperand(rest)
	if err != nil {
		return Value{}, err
	}
	return NewReal(KindRealLong, f(x)), nil
}

func realToInt(ip *Interp, rest string, f func(float64) int64) (Value, error) {
	x, err := ip.realOperand(rest)
	if err != nil {
		return Value{}, err
	}
	return NewInt(KindIntLong, f(x)), nil
}

func stringFunc(f func(string) string) unaryFunc {
	return func(ip *Interp, rest string) (Value, error) {
		s, err := ip.stringOperand(rest)
		if err != nil {
			return Value{}, err
		}
		return NewString(KindString, f(s)), nil
	}
}

// countOf is [count]Type: the number of indexed objects of a type.
func (ip *Interp) countOf(rest string) (Value, error) {
	name := strings.TrimSpace(rest)
	if scan.IsQuoted(name) {
		name, _ = scan.Unquote(name)
	}
	t, err := ip.Type(name)
	if err != nil {
		return Value{}, err
	}
	return NewInt(KindIntLong, int64(len(ip.Store.List(t)))), nil
}

// indexOf is [index]name: the store index of the named object, -1 when it
// is not indexed.
func (ip *Interp) indexOf(rest string) (Value, error) {
	n, err := ip.resolveName(strings.TrimSpace(rest))
	if err != nil {
		return Value{}, err
	}
	o, err := ip.Get(n)
	if err != nil {
		return Value{}, err
	}
	return NewInt(KindIntLong, int64(o.Index())), nil
}

// typeOf names the type of an object, or the inferred type of an
// expression.
func (ip *Interp) typeOf(rest string) (Value, error) {
	rest = strings.TrimSpace(rest)
	if isWord(rest) {
		if n, err := ip.resolveName(rest); err == nil {
			if o, err := ip.Get(n); err == nil {
				return NewString(KindString, ip.TypeName(o.typ)), nil
			}
		}
	}
	t, _, err := ip.infer(rest)
	if err != nil {
		return Value{}, err
	}
	return NewString(KindString, ip.TypeName(t)), nil
}

type nameTestFunc func(ip *Interp, n Name, local bool) bool

func testExists(ip *Interp, n Name, local bool) bool {
	if local {
		_, err := ip.GetLocal(n)
		return err == nil
	}
	_, ok := ip.Find(n)
	return ok
}

func testVolatile(_ *Interp, n Name, _ bool) bool { return n.IsVolatile() }
func testPrivate(_ *Interp, n Name, _ bool) bool  { return n.IsPrivate() }

func nameTest(test nameTestFunc) unaryFunc {
	return func(ip *Interp, rest string) (Value, error) {
		n, err := ip.resolveName(strings.TrimSpace(rest))
		if err != nil {
			return Value{}, err
		}
		return NewBool(test(ip, n, false)), nil
	}
}

func arity(args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return fmt.Errorf("%w: want %d arguments, got %d", ErrSyntax, min, len(args))
		}
		return fmt.Errorf("%w: want at least %d arguments, got %d", ErrSyntax, min, len(args))
	}
	return nil
}

func (ip *Interp) realArgs(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		x, err := ip.realOperand(a)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// realFold reduces one or more real arguments with f.
func realFold(f func(a, b float64) float64) callFunc {
	return func(ip *Interp, args []string) (Value, error) {
		if err := arity(args, 1, -1); err != nil {
			return Value{}, err
		}
		xs, err := ip.realArgs(args)
		if err != nil {
			return Value{}, err
		}
		acc := xs[0]
		for _, x := range xs[1:] {
			acc = f(acc, x)
		}
		return NewReal(KindRealLong, acc), nil
	}
}

func realPair(f func(a, b float64) (float64, error)) callFunc {
	return func(ip *Interp, args []string) (Value, error) {
		if err := arity(args, 2, 2); err != nil {
			return Value{}, err
		}
		xs, err := ip.realArgs(args)
		if err != nil {
			return Value{}, err
		}
		r, err := f(xs[0], xs[1])
		return NewReal(KindRealLong, r), err
	}
}

func callClamp(ip *Interp, args []string) (Value, error) {
	if err := arity(args, 3, 3); err != nil {
		return Value{}, err
	}
	xs, err := ip.realArgs(args)
	if err != nil {
		return Value{}, err
	}
	lo, hi := xs[1], xs[2]
	if lo > hi {
		lo, hi = hi, lo
	}
	return NewReal(KindRealLong, math.Max(lo, math.Min(hi, xs[0]))), nil
}

// callRandom is <random>(lo, hi): an integer in [lo, hi].
func callRandom(ip *Interp, args []string) (Value, error) {
	if err := arity(args, 2, 2); err != nil {
		return Value{}, err
	}
	lo, err := ip.intOperand(args[0])
	if err != nil {
		return Value{}, err
	}
	hi, err := ip.intOperand(args[1])
	if err != nil {
		return Value{}, err
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return NewInt(KindIntLong, lo+ip.rand.Int()%(hi-lo+1)), nil
}

// callSubstr is <substr>(s, start[, length]) over bytes. Out of range
// bounds are clipped.
func callSubstr(ip *Interp, args []string) (Value, error) {
	if err := arity(args, 2, 3); err != nil {
		return Value{}, err
	}
	s, err := ip.stringOperand(args[0])
	if err != nil {
		return Value{}, err
	}
	start, err := ip.intOperand(args[1])
	if err != nil {
		return Value{}, err
	}
	start = max(0, min(start, int64(len(s))))
	end := int64(len(s))
	if len(args) == 3 {
		n, err := ip.intOperand(args[2])
		if err != nil {
			return Value{}, err
		}
		end = max(start, min(start+n, end))
	}
	return NewString(KindString, s[start:end]), nil
}

func callReplace(ip *Interp, args []string) (Value, error) {
	if err := arity(args, 3, 3); err != nil {
		return Value{}, err
	}
	var ss [3]string
	for i, a := range args {
		s, err := ip.stringOperand(a)
		if err != nil {
			return Value{}, err
		}
		ss[i] = s
	}
	return NewString(KindString, strings.ReplaceAll(ss[0], ss[1], ss[2])), nil
}

// boolFold is <any> (want false) and <all> (want true).
func boolFold(all bool) callFunc {
	return func(ip *Interp, args []string) (Value, error) {
		for _, a := range args {
			v, err := ip.operand(a, boolFamily{})
			if err != nil {
				return Value{}, err
			}
			b, err := v.ToBool()
			if err != nil {
				return Value{}, err
			}
			if b != all {
				return NewBool(!all), nil
			}
		}
		return NewBool(all), nil
	}
}

// BuiltinFunctions lists the bracket functions and extension calls, for
// the CLI's types listing.
func BuiltinFunctions() (unary map[string][]string, calls []string) {
	unary = make(map[string][]string)
	for f, table := range unaryTables {
		for name := range table {
			unary[f.String()] = append(unary[f.String()], name)
		}
	}
	for name := range callTable {
		calls = append(calls, name)
	}
	return unary, calls
}
