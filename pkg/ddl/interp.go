// Package ddl is the level description engine: the Value union, the object
// graph with its global store and scope stack, the expression parser and
// the command interpreter that builds the graph from DDL or DHLX source.
//
// All mutable state of one compilation lives in an Interp. Nothing in the
// package is global, so independent compilations can run side by side.
package ddl

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dhlx/pkg/ddl/num"
	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

// Options control one compilation.
type Options struct {
	// CaseSensitive keeps names and type names as written. Otherwise both
	// are folded to lower case.
	CaseSensitive bool
	// Strict disables literal inference for fields without a default type
	// and bare-word strings.
	Strict bool
	// ScopedIf gives every block its own #if/#else chain state instead of
	// one flat "last if result".
	ScopedIf bool
	// ErrorLimit aborts the run once this many errors were reported.
	// Zero or less means no limit.
	ErrorLimit int
	MapName    string
	// Precision is the number of fractional digits used for reals in text
	// output. Negative prints the shortest exact form.
	Precision    int
	Seed         uint64
	IncludePaths []string
}

// DefaultOptions returns the options the CLI starts from.
func DefaultOptions() Options {
	return Options{
		ErrorLimit: 10,
		MapName:    "MAP01",
		Precision:  3,
		Seed:       1,
	}
}

// Template is a compound object template: source run against a new object
// of its type the first time it receives inline data.
type Template struct {
	Block  scan.Block
	Syntax scan.Syntax
}

const maxCallDepth = 128

// Interp is the interpreter context of one compilation.
type Interp struct {
	Opts  Options
	Types *Registry
	Store *Store
	Root  *Object
	Log   *diag.Logger

	// ReadFile loads #include targets and files passed to RunFile.
	ReadFile func(path string) ([]byte, error)

	stack     []*Object
	lastIf    bool
	compounds map[Type]Template
	funcs     map[Family]map[string]*Function
	scripts   map[string]*Script
	scriptSeq []string
	included  map[string]bool
	files     []string
	errs      int
	anon      int
	calls     int
	rand      *num.Random
}

// New returns an interpreter with an empty graph and the builtin types.
func New(opts Options, log *diag.Logger) *Interp {
	if log == nil {
		log = diag.Discard()
	}
	if opts.MapName == "" {
		opts.MapName = "MAP01"
	}
	ip := &Interp{
		Opts:      opts,
		Types:     NewRegistry(!opts.CaseSensitive),
		Store:     NewStore(),
		Root:      NewMapObject(TypeNull),
		Log:       log,
		ReadFile:  os.ReadFile,
		lastIf:    true,
		compounds: make(map[Type]Template),
		funcs:     make(map[Family]map[string]*Function),
		scripts:   make(map[string]*Script),
		included:  make(map[string]bool),
		rand:      num.NewRandom(opts.Seed),
	}
	ip.Root.name = NameGlobal
	return ip
}

// Errors is the number of errors reported so far.
func (ip *Interp) Errors() int { return ip.errs }

// Push makes o the innermost scope.
func (ip *Interp) Push(o *Object) { ip.stack = append(ip.stack, o) }

// Pop removes the innermost scope.
func (ip *Interp) Pop() {
	if n := len(ip.stack); n > 0 {
		ip.stack[n-1] = nil
		ip.stack = ip.stack[:n-1]
	}
}

// Depth is the scope stack depth.
func (ip *Interp) Depth() int { return len(ip.stack) }

// Current is the innermost scope, or the root object when the stack is
// empty.
func (ip *Interp) Current() *Object {
	if n := len(ip.stack); n > 0 {
		return ip.stack[n-1]
	}
	return ip.Root
}

// withScope runs fn with o pushed, popping it on every exit path.
func (ip *Interp) withScope(o *Object, fn func() error) error {
	ip.Push(o)
	depth := len(ip.stack)
	defer func() {
		for len(ip.stack) >= depth {
			ip.Pop()
		}
	}()
	return fn()
}

func (ip *Interp) fold(s string) string {
	if ip.Opts.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// Type resolves a type name. A dynamic type resolves to the type named by
// the nearest return_type field in scope.
func (ip *Interp) Type(name string) (Type, error) {
	t, err := ip.Types.Lookup(name)
	if err != nil {
		return TypeNull, err
	}
	if ip.Types.Mode(t) != ModeDynamic {
		return t, nil
	}
	rt, ok := ip.Find(NewName("return_type"))
	if !ok {
		return TypeNull, fmt.Errorf("%w: %s outside of a function", ErrUnknownType, name)
	}
	s, err := rt.val.ToString()
	if err != nil {
		return TypeNull, err
	}
	t, err = ip.Types.Lookup(s)
	if err != nil {
		return TypeNull, err
	}
	if ip.Types.Mode(t) == ModeDynamic {
		return TypeNull, fmt.Errorf("%w: return type of %s is itself dynamic", ErrUnknownType, name)
	}
	return t, nil
}

// TypeName is a shorthand for ip.Types.Name.
func (ip *Interp) TypeName(t Type) string { return ip.Types.Name(t) }

// lookupIn resolves n relative to o.
func (ip *Interp) lookupIn(o *Object, n Name) (*Object, error) {
	for !n.IsEmpty() {
		switch n.First() {
		case NameGlobal:
			o = ip.Root
		case NameThis:
		default:
			m := o.Map()
			if m == nil {
				return nil, fmt.Errorf("%w: %s is a %s, not an object", ErrInvalidType, describe(o), ip.TypeName(o.typ))
			}
			child, ok := m.Get(n.First())
			if !ok {
				return nil, fmt.Errorf("%w: %s in %s", ErrNoSuchElement, n.First(), describe(o))
			}
			o = child
		}
		n = n.Rest()
	}
	return o, nil
}

func describe(o *Object) string {
	if o.name == "" {
		return "anonymous object"
	}
	return o.name
}

// Find resolves n against the scope stack, innermost first, then the root
// object. The pseudo-names global and this anchor the lookup at the root
// or the innermost scope.
func (ip *Interp) Find(n Name) (*Object, bool) {
	o, err := ip.Get(n)
	return o, err == nil
}

// Get is Find with an error describing what failed.
func (ip *Interp) Get(n Name) (*Object, error) {
	if n.IsEmpty() {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownElement)
	}
	switch n.First() {
	case NameGlobal:
		return ip.lookupIn(ip.Root, n.Rest())
	case NameThis:
		return ip.lookupIn(ip.Current(), n.Rest())
	}
	for i := len(ip.stack) - 1; i >= 0; i-- {
		if m := ip.stack[i].Map(); m != nil && m.Has(n.First()) {
			return ip.lookupIn(ip.stack[i], n)
		}
	}
	if ip.Root.Map().Has(n.First()) {
		return ip.lookupIn(ip.Root, n)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownElement, n)
}

// GetLocal resolves n in the innermost scope only.
func (ip *Interp) GetLocal(n Name) (*Object, error) {
	return ip.lookupIn(ip.Current(), n)
}

// indexable reports whether objects of type t go to the global store.
func (ip *Interp) indexable(t Type) bool {
	m := ip.Types.Mode(t)
	return m == ModeObject || m == ModeCompound
}

// register indexes o and every map object it owns.
func (ip *Interp) register(o *Object) {
	if ip.indexable(o.typ) {
		ip.Store.Add(o)
	}
	if m := o.Map(); m != nil {
		for _, child := range m.All() {
			if child.parent == o {
				ip.register(child)
			}
		}
	}
}

// unregister removes o and every map object it owns from the store.
func (ip *Interp) unregister(o *Object) {
	ip.Store.Remove(o)
	if m := o.Map(); m != nil {
		for _, child := range m.All() {
			if child.parent == o {
				ip.unregister(child)
			}
		}
	}
}

// Objects returns the indexed objects of the named type in index order,
// or nil when no such type exists.
func (ip *Interp) Objects(typeName string) []*Object {
	t, err := ip.Types.Lookup(typeName)
	if err != nil {
		return nil
	}
	return ip.Store.List(t)
}

// AddObject stores obj under n in owner. A multi-part name stores into the
// object named by all but the last part; an empty name appends obj as an
// anonymous entry when its type is inline. Objects of indexed types are
// added to the global store. Replacing an owned field drops the old object
// from the store.
func (ip *Interp) AddObject(owner *Object, n Name, obj *Object) error {
	if !n.Parent().IsEmpty() {
		o, err := ip.lookupIn(owner, n.Parent())
		if err != nil {
			return err
		}
		owner = o
	} else if n.First() == NameGlobal {
		return fmt.Errorf("%w: cannot assign to %s", ErrInvalidType, NameGlobal)
	}
	m := owner.Map()
	if m == nil {
		return fmt.Errorf("%w: %s is a %s, not an object", ErrInvalidType, describe(owner), ip.TypeName(owner.typ))
	}
	key := n.Last()
	if key == "" && ip.Types.Mode(obj.typ) != ModeInline && !ip.Types.Mode(obj.typ).IsMap() {
		return fmt.Errorf("%w: value of type %s needs a name", ErrSyntax, ip.TypeName(obj.typ))
	}
	if obj.parent == nil && obj != ip.Root {
		obj.parent = owner
		if obj.name == "" {
			obj.name = key
		}
	}
	if old, ok := m.Get(key); ok && key != "" && old != obj && old.parent == owner {
		ip.unregister(old)
	}
	if key == "" {
		m.Append(obj)
	} else {
		m.Set(key, obj)
	}
	if obj.parent == owner {
		ip.register(obj)
	}
	return nil
}

// DeleteObject removes the field n from owner. Objects owned by the field
// leave the store.
func (ip *Interp) DeleteObject(owner *Object, n Name) error {
	if !n.Parent().IsEmpty() {
		o, err := ip.lookupIn(owner, n.Parent())
		if err != nil {
			return err
		}
		owner = o
	}
	m := owner.Map()
	if m == nil {
		return fmt.Errorf("%w: %s is not an object", ErrInvalidType, describe(owner))
	}
	o, ok := m.Delete(n.Last())
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNoSuchElement, n.Last(), describe(owner))
	}
	if o.parent == owner {
		ip.unregister(o)
	}
	return nil
}

// deleteWhere removes every field of owner whose key matches, recursing
// into owned map children when deep is set. It returns the number of
// fields removed.
func (ip *Interp) deleteWhere(owner *Object, match func(string) bool, deep bool) int {
	m := owner.Map()
	if m == nil {
		return 0
	}
	removed := m.DeleteFunc(func(k string, _ *Object) bool { return match(k) })
	for _, o := range removed {
		if o.parent == owner {
			ip.unregister(o)
		}
	}
	n := len(removed)
	if deep {
		for _, child := range m.All() {
			if child.parent == owner && child.IsMap() {
				n += ip.deleteWhere(child, match, true)
			}
		}
	}
	return n
}

// AddBase merges the fields of the object named base into target. Fields
// target already has are kept. Owned sub-objects are copied; references
// stay shared.
func (ip *Interp) AddBase(target *Object, base string) error {
	b, err := ip.Get(ParseName(base))
	if err != nil {
		return err
	}
	if !b.IsMap() {
		return fmt.Errorf("%w: base %s is a %s, not an object", ErrInvalidType, base, ip.TypeName(b.typ))
	}
	tm := target.Map()
	if tm == nil {
		return fmt.Errorf("%w: %s cannot inherit fields", ErrInvalidType, describe(target))
	}
	if b == target {
		return nil
	}
	tm.Merge(b.Map(), func(o *Object) *Object {
		if o.parent != b {
			return o
		}
		c := o.Clone()
		c.parent = target
		ip.register(c)
		return c
	})
	return nil
}

// SetType retypes o in place. Map types keep the field map; value types
// parse value, or convert the current payload when value is empty.
func (ip *Interp) SetType(o *Object, t Type, value string) error {
	if o.typ == TypeNull {
		return fmt.Errorf("%w: cannot retype %s", ErrInvalidType, describe(o))
	}
	mode := ip.Types.Mode(t)
	if mode == ModeNone || mode == ModeDynamic {
		return fmt.Errorf("%w: %s", ErrInvalidType, ip.TypeName(t))
	}
	var v Value
	switch {
	case mode.IsMap():
		if o.IsMap() {
			v = o.val
		} else {
			v = NewMap(NewObjectMap())
		}
	case strings.TrimSpace(value) != "":
		nv, err := ip.Eval(value, t)
		if err != nil {
			return err
		}
		v = nv
	case o.IsMap():
		v = Zero(ip.Types.Native(t))
	default:
		nv, err := o.val.Convert(ip.Types.Native(t))
		if err != nil {
			return err
		}
		v = nv
	}
	wasIndexed := o.indexed
	ip.Store.Remove(o)
	o.typ, o.val = t, v
	if wasIndexed || o.parent != nil {
		if ip.indexable(t) {
			ip.Store.Add(o)
		}
	}
	return nil
}

// NewObject returns an empty object of type t: an empty map for map types,
// the native zero value otherwise.
func (ip *Interp) NewObject(t Type) *Object {
	if ip.Types.Mode(t).IsMap() {
		return NewMapObject(t)
	}
	return NewLeaf(t, Zero(ip.Types.Native(t)))
}

// AddCompound registers the compound template of type t. Last write wins.
func (ip *Interp) AddCompound(t Type, tpl Template) { ip.compounds[t] = tpl }

// Compound returns the template registered for t.
func (ip *Interp) Compound(t Type) (Template, bool) {
	tpl, ok := ip.compounds[t]
	return tpl, ok
}

// Report logs err and counts it against the error budget. Fatal errors
// and an exhausted budget are returned so the caller aborts.
func (ip *Interp) Report(err error) error {
	if err == nil {
		return nil
	}
	var pos diag.Pos
	msg := err.Error()
	var se *SourceError
	if errors.As(err, &se) {
		pos = diag.Pos{File: se.File, Line: se.Line}
		msg = se.Err.Error()
		if se.Token != "" {
			msg = fmt.Sprintf("%s (near %q)", msg, se.Token)
		}
	}
	if IsFatal(err) {
		ip.Log.Log(diag.LevelFatal, pos, msg)
		return err
	}
	ip.Log.Log(diag.LevelError, pos, msg)
	return ip.countError()
}

func (ip *Interp) countError() error {
	ip.errs++
	if ip.Opts.ErrorLimit > 0 && ip.errs >= ip.Opts.ErrorLimit {
		return fmt.Errorf("%w: %d errors", ErrErrorLimit, ip.errs)
	}
	return nil
}

// anonName returns the next automatic name for an unnamed object.
func (ip *Interp) anonName() string {
	ip.anon++
	return fmt.Sprintf("__anon%d", ip.anon)
}
