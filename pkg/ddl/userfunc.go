package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"dhlx/pkg/ddl/scan"
)

// Param is one declared parameter of a user function. An empty Type means
// the argument's type is inferred at the call site.
type Param struct {
	Name string
	Type string
}

// Function is a user function defined with #function.
type Function struct {
	Name   string
	Return Type
	Params []Param
	Body   scan.Block
	Syntax scan.Syntax
}

// parseFunctionHead parses "RetType name(p1, type p2)" or the DDL form
// "RetType:name". A lone name declares a dynamic return type.
func parseFunctionHead(args string) (ret, name string, params []Param, err error) {
	head, list := args, ""
	if i := strings.IndexByte(args, '('); i >= 0 {
		end := matchClose(args, i)
		if end < 0 || strings.TrimSpace(args[end+1:]) != "" {
			return "", "", nil, fmt.Errorf("%w: malformed parameter list in %q", ErrSyntax, args)
		}
		head, list = args[:i], args[i+1:end]
	}
	words := scan.SplitFields(strings.ReplaceAll(head, ":", " "))
	switch len(words) {
	case 1:
		ret, name = "dynamic", words[0]
	case 2:
		ret, name = words[0], words[1]
	default:
		return "", "", nil, fmt.Errorf("%w: expected [type] name in function head %q", ErrSyntax, args)
	}
	if !isWord(name) {
		return "", "", nil, fmt.Errorf("%w: %q is not a function name", ErrSyntax, name)
	}
	for _, p := range scan.SplitTop(list, ',') {
		f := scan.SplitFields(p)
		switch len(f) {
		case 1:
			params = append(params, Param{Name: f[0]})
		case 2:
			params = append(params, Param{Type: f[0], Name: f[1]})
		default:
			return "", "", nil, fmt.Errorf("%w: bad parameter %q", ErrSyntax, p)
		}
	}
	return ret, name, params, nil
}

// DefineFunction registers fn for the family of its return type, or for
// every scalar family when the return type is dynamic.
func (ip *Interp) DefineFunction(fn *Function) error {
	var fams []Family
	switch mode := ip.Types.Mode(fn.Return); {
	case mode == ModeDynamic:
		fams = []Family{FamilyBool, FamilyInt, FamilyReal, FamilyString}
	case mode.IsMap():
		return fmt.Errorf("%w: function %s cannot return object type %s", ErrInvalidType, fn.Name, ip.TypeName(fn.Return))
	default:
		fams = []Family{ip.Types.Native(fn.Return).Family()}
	}
	key := ip.fold(fn.Name)
	for _, f := range fams {
		if ip.funcs[f] == nil {
			ip.funcs[f] = make(map[string]*Function)
		}
		ip.funcs[f][key] = fn
	}
	return nil
}

// Functions returns the user functions registered for f.
func (ip *Interp) Functions(f Family) []*Function {
	out := make([]*Function, 0, len(ip.funcs[f]))
	for _, fn := range ip.funcs[f] {
		out = append(out, fn)
	}
	return out
}

// callUser runs fn against a fresh frame object seeded with argc, argN,
// the named parameters and return_type, and returns its return_value
// converted to fam.
func (ip *Interp) callUser(fn *Function, args []string, fam family) (Value, error) {
	if ip.calls >= maxCallDepth {
		return Value{}, fmt.Errorf("%w: %s nested more than %d calls deep", ErrRecursion, fn.Name, maxCallDepth)
	}
	ip.calls++
	defer func() { ip.calls-- }()

	frame := NewMapObject(TypeNull)
	frame.name = fn.Name
	fields := frame.Map()
	for i, a := range args {
		o, err := ip.argument(fn, i, a)
		if err != nil {
			return Value{}, fmt.Errorf("%s argument %d: %w", fn.Name, i, err)
		}
		fields.Set("arg"+strconv.Itoa(i), o)
		if i < len(fn.Params) {
			fields.Set(ip.fold(fn.Params[i].Name), o)
		}
	}
	for i := len(args); i < len(fn.Params); i++ {
		p := fn.Params[i]
		if p.Type == "" {
			return Value{}, fmt.Errorf("%w: %s needs argument %s", ErrSyntax, fn.Name, p.Name)
		}
		t, err := ip.Type(p.Type)
		if err != nil {
			return Value{}, err
		}
		o := ip.NewObject(t)
		o.parent = frame
		fields.Set(ip.fold(p.Name), o)
	}
	fields.Set("argc", &Object{typ: ip.mustType("int"), val: NewInt(KindInt, int64(len(args))), parent: frame, index: -1})
	retName := ip.TypeName(fn.Return)
	if ip.Types.Mode(fn.Return) == ModeDynamic {
		retName = fam.id().Kind().String()
	}
	fields.Set("return_type", &Object{typ: ip.mustType("string"), val: NewString(KindString, retName), parent: frame, index: -1})

	defer ip.unregister(frame)
	if err := ip.runBlock(frame, fn.Body, fn.Syntax); err != nil {
		return Value{}, err
	}
	rv, ok := frame.Field("return_value")
	if !ok {
		return Zero(fam.id().Kind()), nil
	}
	return ip.valueOf(rv).ConvertFamily(fam.id())
}

// argument evaluates the i-th call argument in the caller's scope. Map
// objects are passed by reference; everything else is copied into a leaf
// owned by the frame.
func (ip *Interp) argument(fn *Function, i int, text string) (*Object, error) {
	var (
		t   Type
		v   Value
		err error
	)
	if i < len(fn.Params) && fn.Params[i].Type != "" {
		if t, err = ip.Type(fn.Params[i].Type); err != nil {
			return nil, err
		}
		v, err = ip.Eval(text, t)
	} else {
		t, v, err = ip.infer(text)
	}
	if err != nil {
		return nil, err
	}
	if v.kind == KindObject && v.obj != nil {
		return v.obj, nil
	}
	if ip.Types.Mode(t).IsMap() {
		// an index outside the store list
		t = ip.mustType("int")
	}
	return NewLeaf(t, v), nil
}

// mustType looks up a builtin type name.
func (ip *Interp) mustType(name string) Type {
	t, err := ip.Types.Lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}
