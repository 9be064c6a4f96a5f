package ddl

import (
	"fmt"
	"path/filepath"

	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

// RunFile reads path and interprets it into the root object. The syntax
// is picked from the file extension.
func (ip *Interp) RunFile(path string) error {
	data, err := ip.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	ip.included[filepath.Clean(path)] = true
	return ip.RunSource(path, string(data), scan.SyntaxForFile(path))
}

// RunSource interprets src into the root object. Errors in a statement are
// reported and counted, and interpretation resumes at the next top-level
// statement. Only fatal errors and an exhausted error budget are returned.
func (ip *Interp) RunSource(file, src string, syntax scan.Syntax) error {
	return ip.runFile(ip.Root, scan.New(file, src, syntax))
}

// Files lists the source files interpreted so far, includes included.
func (ip *Interp) Files() []string { return ip.files }

func (ip *Interp) runFile(target *Object, sc *scan.Scanner) error {
	ip.files = append(ip.files, sc.File())
	return ip.withScope(target, func() error {
		base := sc.Depth()
		for {
			if target.breaked || target.continued || target.returned {
				if target != ip.Root {
					return nil
				}
				ip.Log.Log(diag.LevelWarn, diag.Pos{File: sc.File(), Line: sc.Line()}, "#break or #continue outside of a loop")
				target.breaked, target.continued, target.returned = false, false, false
			}
			t, err := sc.Peek()
			if err == nil {
				if t.Kind == scan.EOF {
					return nil
				}
				err = ip.statement(target, sc)
			} else {
				err = at(sc.File(), sc.Line(), "", err)
			}
			if err == nil {
				continue
			}
			if ferr := ip.Report(err); ferr != nil {
				return ferr
			}
			if sc.Depth() > base || !sc.AtStatementEnd() {
				sc.SkipStatement(base)
			}
		}
	})
}

// runBlock interprets an extracted block against target.
func (ip *Interp) runBlock(target *Object, b scan.Block, syntax scan.Syntax) error {
	return ip.addData(target, scan.FromBlock(b, syntax), false)
}

// addData interprets statements against target with target pushed as the
// innermost scope. With inBlock set it stops after the '}' closing the
// body, otherwise at end of input. A pending break, continue or return on
// target skips the remaining statements.
func (ip *Interp) addData(target *Object, sc *scan.Scanner, inBlock bool) error {
	return ip.withScope(target, func() error {
		if ip.Opts.ScopedIf {
			saved := ip.lastIf
			ip.lastIf = true
			defer func() { ip.lastIf = saved }()
		}
		base := sc.Depth()
		for {
			if target.breaked || target.continued || target.returned {
				skipRest(sc, base, inBlock)
				return nil
			}
			t, err := sc.Peek()
			if err != nil {
				return at(sc.File(), sc.Line(), "", err)
			}
			switch {
			case t.Kind == scan.EOF:
				if inBlock {
					return at(sc.File(), t.Line, "", fmt.Errorf("%w: missing '}'", ErrSyntax))
				}
				return nil
			case t.Is("}"):
				if !inBlock {
					return at(sc.File(), t.Line, "}", fmt.Errorf("%w: unexpected '}'", ErrSyntax))
				}
				sc.Next()
				return nil
			}
			if err := ip.statement(target, sc); err != nil {
				return err
			}
		}
	})
}

// skipRest discards the rest of a body: up to and including its closing
// brace, or to end of input for a whole block.
func skipRest(sc *scan.Scanner, base int, inBlock bool) {
	for {
		t, err := sc.Next()
		if err != nil {
			continue
		}
		if t.Kind == scan.EOF || (inBlock && sc.Depth() < base) {
			return
		}
	}
}

// statement interprets one statement and attaches its position to any
// error that does not carry one yet.
func (ip *Interp) statement(target *Object, sc *scan.Scanner) error {
	t, err := sc.Next()
	if err != nil {
		return at(sc.File(), sc.Line(), "", err)
	}
	switch {
	case t.Kind == scan.Command:
		err = ip.command(target, sc, t)
	case t.Kind == scan.Word:
		err = ip.declaration(target, sc, t)
	case t.Is(";"):
		return nil
	default:
		err = fmt.Errorf("%w: unexpected %q", ErrSyntax, t.String())
	}
	return at(sc.File(), t.Line, t.String(), err)
}

// decl is a parsed declaration head: [type] name [: bases].
type decl struct {
	typeName string
	name     string
	anon     bool
	bases    []string
	file     string
	line     int
}

func (ip *Interp) declaration(target *Object, sc *scan.Scanner, first scan.Token) error {
	d := decl{file: sc.File(), line: first.Line}
	next, err := sc.Next()
	if err != nil {
		return err
	}
	switch {
	case next.Kind == scan.Word:
		d.typeName, d.name = first.Text, next.Text
		if next, err = sc.Next(); err != nil {
			return err
		}
	case (next.Is("{") || next.Is(":")) && ip.isAnonType(target, first.Text):
		d.typeName, d.anon = first.Text, true
	default:
		d.name = first.Text
	}
	if next.Is(":") {
		if d.bases, next, err = readBases(sc); err != nil {
			return err
		}
	}
	switch {
	case next.Is("{"):
		return ip.objectBody(target, sc, d)
	case d.anon:
		return fmt.Errorf("%w: expected '{' after %s", ErrSyntax, d.typeName)
	case next.Is("="):
		return ip.assign(target, sc, d, false)
	case next.Is("+="):
		return ip.assign(target, sc, d, true)
	case next.Is(";"):
		return ip.declare(target, d)
	}
	sc.Unget(next)
	return fmt.Errorf("%w: expected '=', '{' or ';' after %s, found %q", ErrSyntax, d.name, next.String())
}

// isAnonType reports whether a lone word before '{' names the type of an
// anonymous object rather than a field.
func (ip *Interp) isAnonType(target *Object, word string) bool {
	t, err := ip.Types.Lookup(word)
	if err != nil || !ip.Types.Mode(t).IsMap() {
		return false
	}
	if m := target.Map(); m != nil && m.Has(ip.fold(word)) {
		return false
	}
	return !ip.Types.HasDefault(word, target.typ)
}

func readBases(sc *scan.Scanner) ([]string, scan.Token, error) {
	var bases []string
	for {
		t, err := sc.Next()
		if err != nil {
			return nil, t, err
		}
		if t.Kind != scan.Word {
			return nil, t, fmt.Errorf("%w: expected base name, found %q", ErrSyntax, t.String())
		}
		bases = append(bases, t.Text)
		if t, err = sc.Next(); err != nil {
			return nil, t, err
		}
		if !t.Is(":") && !t.Is(",") {
			return bases, t, nil
		}
	}
}

// fieldType picks the type of a field declared as n in target: the
// explicit type, the existing field's type, then the default type for the
// field in the owner's context. known is false when the type has to be
// inferred from the value.
func (ip *Interp) fieldType(target *Object, typeName string, n Name, existing *Object) (t Type, known bool, err error) {
	if typeName != "" {
		t, err = ip.Type(typeName)
		return t, err == nil, err
	}
	if existing != nil {
		return existing.typ, true, nil
	}
	owner := target
	if !n.Parent().IsEmpty() {
		if o, err := ip.lookupIn(target, n.Parent()); err == nil {
			owner = o
		}
	}
	if t, ok := ip.Types.Default(n.Last(), owner.typ); ok {
		if ip.Types.Mode(t) == ModeDynamic {
			t, err = ip.Type(ip.TypeName(t))
			return t, err == nil, err
		}
		return t, true, nil
	}
	if ip.Opts.Strict {
		return TypeNull, false, fmt.Errorf("%w: %s in %s", ErrNoDefaultType, n, ip.TypeName(owner.typ))
	}
	return TypeNull, false, nil
}

// assign handles "name = value;" and "name += value;".
func (ip *Interp) assign(target *Object, sc *scan.Scanner, d decl, add bool) error {
	n, err := ip.resolveName(d.name)
	if err != nil {
		sc.ReadValue()
		return err
	}
	existing, _ := ip.lookupIn(target, n)
	t, known, err := ip.fieldType(target, d.typeName, n, existing)
	if err != nil {
		sc.ReadValue()
		return err
	}
	if len(d.bases) > 0 {
		sc.ReadValue()
		return fmt.Errorf("%w: bases need an object body", ErrSyntax)
	}

	var v Value
	switch {
	case !known:
		text, err := sc.ReadValue()
		if err != nil {
			return err
		}
		if t, v, err = ip.infer(text); err != nil {
			return err
		}
	case ip.Types.Mode(t).IsMap():
		text, err := sc.ReadValue()
		if err != nil {
			return err
		}
		if v, err = ip.evalObject(text, t); err != nil {
			return err
		}
	default:
		if v, err = ip.readValue(sc, t); err != nil {
			return err
		}
	}
	return ip.store(target, n, existing, t, v, add, d)
}

// readValue reads the value of a field of value type t and the ';' after
// it.
func (ip *Interp) readValue(sc *scan.Scanner, t Type) (Value, error) {
	if sc.Syntax() == scan.DHLX {
		v, err := ip.EvalStream(sc, t)
		if err != nil {
			return Value{}, err
		}
		next, err := sc.Peek()
		if err != nil {
			return Value{}, err
		}
		switch {
		case next.Is(";"):
			sc.Next()
		case next.Is("}") || next.Kind == scan.EOF:
		default:
			return Value{}, fmt.Errorf("%w: expected ';', found %q", ErrSyntax, next.String())
		}
		return v, nil
	}
	text, err := sc.ReadValue()
	if err != nil {
		return Value{}, err
	}
	return ip.Eval(text, t)
}

// store writes v into the field n. A reference to a map object makes the
// field share that object. An existing leaf of the same type is updated in
// place; otherwise a new leaf replaces whatever was there.
func (ip *Interp) store(target *Object, n Name, existing *Object, t Type, v Value, add bool, d decl) error {
	if v.kind == KindObject && v.obj != nil && v.obj.IsMap() {
		if add {
			return fmt.Errorf("%w: += on object %s", ErrInvalidType, n)
		}
		return ip.AddObject(target, n, v.obj)
	}
	if existing != nil && !existing.IsMap() && existing.typ == t {
		if add {
			return existing.val.Add(v)
		}
		existing.val = v
		return nil
	}
	if add {
		if existing != nil && existing.IsMap() {
			return fmt.Errorf("%w: += on object %s", ErrInvalidType, n)
		}
		z := Zero(ip.Types.Native(t))
		if ip.Types.Mode(t).IsMap() {
			z = NewInt(KindInt, 0)
		}
		if err := z.Add(v); err != nil {
			return err
		}
		v = z
	}
	o := NewLeaf(t, v)
	o.file, o.line = d.file, d.line
	return ip.AddObject(target, n, o)
}

// declare handles "type name;": a new field holding the type's zero value.
func (ip *Interp) declare(target *Object, d decl) error {
	n, err := ip.resolveName(d.name)
	if err != nil {
		return err
	}
	existing, _ := ip.lookupIn(target, n)
	if existing != nil && d.typeName == "" {
		return nil
	}
	t, known, err := ip.fieldType(target, d.typeName, n, nil)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: %s needs a type or a value", ErrNoDefaultType, n)
	}
	if existing != nil && existing.typ == t {
		return nil
	}
	o := ip.NewObject(t)
	o.file, o.line = d.file, d.line
	return ip.AddObject(target, n, o)
}

// objectBody handles "[type] name [: bases] { body }" and anonymous
// "Type { body }". An existing object of the same type is reopened.
func (ip *Interp) objectBody(target *Object, sc *scan.Scanner, d decl) error {
	var (
		n        Name
		existing *Object
		err      error
	)
	if !d.anon {
		if n, err = ip.resolveName(d.name); err != nil {
			sc.SkipBlock()
			return err
		}
		existing, _ = ip.lookupIn(target, n)
	}
	t, known, err := ip.fieldType(target, d.typeName, n, existing)
	if err != nil {
		return err
	}
	if !known {
		t = ip.mustType("object")
	}
	if !ip.Types.Mode(t).IsMap() {
		return fmt.Errorf("%w: %s is a value type and cannot take a body", ErrInvalidType, ip.TypeName(t))
	}

	obj := existing
	if obj == nil || !obj.IsMap() || obj.typ != t {
		obj = NewMapObject(t)
		obj.file, obj.line = d.file, d.line
		if d.anon && ip.Types.Mode(t) != ModeInline {
			n = NewName(ip.anonName())
		}
		if err := ip.AddObject(target, n, obj); err != nil {
			return err
		}
	}
	for _, b := range d.bases {
		if err := ip.AddBase(obj, b); err != nil {
			return err
		}
	}
	// The template only lands on objects that receive inline data.
	if next, _ := sc.Peek(); !next.Is("}") {
		if err := ip.expandCompound(obj, t); err != nil {
			return err
		}
	}
	err = ip.addData(obj, sc, true)
	obj.breaked, obj.continued, obj.returned = false, false, false
	return err
}

// expandCompound runs the compound template of t into obj once. Template
// fields never replace fields obj already has.
func (ip *Interp) expandCompound(obj *Object, t Type) error {
	if obj.compounded {
		return nil
	}
	tpl, ok := ip.compounds[t]
	if !ok {
		return nil
	}
	obj.compounded = true
	scratch := NewMapObject(t)
	scratch.name = obj.name
	if err := ip.runBlock(scratch, tpl.Block, tpl.Syntax); err != nil {
		ip.unregister(scratch)
		return err
	}
	obj.Map().Merge(scratch.Map(), func(o *Object) *Object {
		if o.parent == scratch {
			o.parent = obj
		}
		return o
	})
	for _, child := range scratch.Map().All() {
		if child.parent == scratch {
			ip.unregister(child)
		}
	}
	return nil
}
