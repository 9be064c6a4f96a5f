package ddl

import (
	"fmt"
	"path/filepath"
	"strings"

	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

// commandFunc implements one #command. It must consume the command's whole
// syntax (arguments, then a block or the terminating ';') before acting.
type commandFunc func(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error

var commands map[string]commandFunc

func init() {
	commands = map[string]commandFunc{
		"break":    cmdFlag(func(o *Object) { o.breaked = true }),
		"continue": cmdFlag(func(o *Object) { o.continued = true }),
		"return":   cmdReturn,

		"if":        cmdIf,
		"ifcmp":     cmdIf,
		"elseif":    cmdIf,
		"elseifcmp": cmdIf,
		"else":      cmdElse,
		"for":       cmdFor,
		"while":     cmdWhile,
		"do":        cmdDo,

		"compound":       cmdCompound,
		"delete":         cmdDelete,
		"deletevolatile": cmdDeleteVolatile(true),
		"delete_":        cmdDeleteVolatile(false),
		"changetype":     cmdChangeType,

		"script":          cmdScript(ScriptGeneric, ""),
		"scriptacs":       cmdScript(ScriptACS, "SCRIPTS"),
		"scriptextradata": cmdScript(ScriptExtraData, "EXTRADATA"),
		"scriptfraggle":   cmdScript(ScriptFraggle, "FSSCRIPTS"),
		"scriptfs":        cmdScript(ScriptFraggle, "FSSCRIPTS"),

		"debug": cmdMessage(diag.LevelDebug),
		"info":  cmdMessage(diag.LevelInfo),
		"warn":  cmdMessage(diag.LevelWarn),
		"error": cmdMessage(diag.LevelError),

		"include":        cmdInclude,
		"base":           cmdBase,
		"compoundobject": cmdCompoundObject,
		"type":           cmdType,
		"defaulttype":    cmdDefaultType,
		"redirect":       cmdRedirect,
		"function":       cmdFunction,
	}
}

// Commands lists the names of the supported #commands.
func Commands() []string {
	out := make([]string, 0, len(commands))
	for name := range commands {
		out = append(out, name)
	}
	return out
}

func (ip *Interp) command(target *Object, sc *scan.Scanner, cmd scan.Token) error {
	fn, ok := commands[strings.ToLower(cmd.Text)]
	if !ok {
		return fmt.Errorf("%w: #%s", ErrUnknownCommand, cmd.Text)
	}
	return fn(ip, target, sc, cmd)
}

// endCommand consumes the ';' after a command without a block. A command
// directly before '}' or the end of input needs none.
func endCommand(sc *scan.Scanner) error {
	t, err := sc.Peek()
	if err != nil {
		return err
	}
	switch {
	case t.Is(";"):
		sc.Next()
	case t.Is("}") || t.Kind == scan.EOF:
	default:
		return fmt.Errorf("%w: expected ';', found %q", ErrSyntax, t.String())
	}
	return nil
}

// plainArgs reads the arguments of a command without a block.
func plainArgs(sc *scan.Scanner) (string, error) {
	args, err := sc.ReadArgs()
	if err != nil {
		return "", err
	}
	return args, endCommand(sc)
}

func blockArgs(sc *scan.Scanner) (string, scan.Block, error) {
	args, err := sc.ReadArgs()
	if err != nil {
		return "", scan.Block{}, err
	}
	b, err := sc.ReadBlock()
	return args, b, err
}

// argParts splits command arguments on ':' when present, else on
// whitespace.
func argParts(args string) []string {
	if parts := scan.SplitTop(args, ':'); len(parts) > 1 {
		return parts
	}
	return scan.SplitFields(args)
}

func unquoted(s string) string {
	s = strings.TrimSpace(s)
	if scan.IsQuoted(s) {
		if u, err := scan.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

func cmdFlag(set func(*Object)) commandFunc {
	return func(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error {
		args, err := plainArgs(sc)
		if err != nil {
			return err
		}
		if args != "" {
			return fmt.Errorf("%w: #%s takes no arguments", ErrSyntax, cmd.Text)
		}
		set(target)
		return nil
	}
}

// scopeWith returns the innermost scope that has a field named key.
func (ip *Interp) scopeWith(key string) *Object {
	for i := len(ip.stack) - 1; i >= 0; i-- {
		if m := ip.stack[i].Map(); m != nil && m.Has(key) {
			return ip.stack[i]
		}
	}
	return nil
}

func cmdReturn(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	frame := ip.scopeWith("return_type")
	if frame == nil {
		return fmt.Errorf("%w: #return outside of a function", ErrSyntax)
	}
	if args != "" {
		rt, _ := frame.Field("return_type")
		name, err := rt.val.ToString()
		if err != nil {
			return err
		}
		t, err := ip.Type(name)
		if err != nil {
			return err
		}
		v, err := ip.Eval(args, t)
		if err != nil {
			return err
		}
		if err := ip.AddObject(frame, NewName("return_value"), NewLeaf(t, v)); err != nil {
			return err
		}
	}
	frame.returned = true
	target.returned = true
	return nil
}

// branch records the outcome of a conditional and runs its block when it
// holds. The outcome is recorded before the block runs, so a conditional
// inside the block can change what a following #else sees unless
// Options.ScopedIf is set.
func (ip *Interp) branch(target *Object, run bool, b scan.Block, syntax scan.Syntax) error {
	ip.lastIf = run
	if !run {
		return nil
	}
	return ip.runBlock(target, b, syntax)
}

func cmdIf(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	name := strings.ToLower(cmd.Text)
	if strings.HasPrefix(name, "else") && ip.lastIf {
		return nil
	}
	run, err := ip.condition(args, strings.HasSuffix(name, "cmp"))
	if err != nil {
		return err
	}
	return ip.branch(target, run, b, sc.Syntax())
}

func cmdElse(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	if args != "" {
		return fmt.Errorf("%w: #else takes no condition, use #elseif", ErrSyntax)
	}
	if ip.lastIf {
		return nil
	}
	return ip.branch(target, true, b, sc.Syntax())
}

// iterate runs one loop body and consumes the loop control flags. It
// reports whether the loop has to stop.
func (ip *Interp) iterate(target *Object, b scan.Block, syntax scan.Syntax) (bool, error) {
	target.continued = false
	if err := ip.runBlock(target, b, syntax); err != nil {
		return true, err
	}
	target.continued = false
	if target.returned {
		return true, nil
	}
	if target.breaked {
		target.breaked = false
		return true, nil
	}
	return false, nil
}

// cmdFor is #for [type] name : start : stop [: step]. The loop runs while
// the variable is below stop (above it for a negative step); stop is
// evaluated again before every iteration. The variable lives in the
// target only for the duration of the loop.
func cmdFor(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	parts := scan.SplitTop(args, ':')
	// DDL writes a typed loop as "type:name:start:stop[:step]".
	if len(parts) >= 4 && ip.Types.Has(strings.TrimSpace(parts[0])) && isWord(strings.TrimSpace(parts[1])) {
		parts = append([]string{parts[0] + " " + parts[1]}, parts[2:]...)
	}
	if len(parts) < 3 || len(parts) > 4 {
		return fmt.Errorf("%w: #for needs [type] name : start : stop [: step]", ErrSyntax)
	}
	head := scan.SplitFields(parts[0])
	var typeName, varName string
	switch len(head) {
	case 1:
		varName = head[0]
	case 2:
		typeName, varName = head[0], head[1]
	default:
		return fmt.Errorf("%w: bad loop variable %q", ErrSyntax, parts[0])
	}
	if !isWord(varName) || strings.Contains(varName, ".") {
		return fmt.Errorf("%w: %q is not a loop variable name", ErrSyntax, varName)
	}
	var t Type
	switch {
	case typeName != "":
		t, err = ip.Type(typeName)
	default:
		var ok bool
		if t, ok = ip.Types.Default(varName, target.typ); !ok {
			t, err = ip.Types.Lookup("int")
		}
	}
	if err != nil {
		return err
	}
	if f := ip.Types.Native(t).Family(); f != FamilyInt && f != FamilyReal {
		return fmt.Errorf("%w: loop variable %s must be numeric, not %s", ErrInvalidType, varName, ip.TypeName(t))
	}
	start, err := ip.Eval(parts[1], t)
	if err != nil {
		return err
	}
	step := NewInt(KindInt, 1)
	if len(parts) == 4 {
		if step, err = ip.Eval(parts[3], t); err != nil {
			return err
		}
	}
	sign, err := Cmp(step, Zero(step.kind))
	if err != nil {
		return err
	}
	if sign == 0 {
		return fmt.Errorf("%w: #for step is zero", ErrInvalidValue)
	}

	m := target.Map()
	if m == nil {
		return fmt.Errorf("%w: #for in %s, which is not an object", ErrInvalidType, describe(target))
	}
	key := ip.fold(varName)
	saved, hadSaved := m.Get(key)
	loopVar := NewLeaf(t, start)
	loopVar.parent, loopVar.name = target, key
	m.Set(key, loopVar)
	defer func() {
		if hadSaved {
			m.Set(key, saved)
		} else {
			m.Delete(key)
		}
	}()

	for {
		stop, err := ip.Eval(parts[2], t)
		if err != nil {
			return err
		}
		c, err := Cmp(loopVar.val, stop)
		if err != nil {
			return err
		}
		if (sign > 0 && c >= 0) || (sign < 0 && c <= 0) {
			return nil
		}
		done, err := ip.iterate(target, b, sc.Syntax())
		if err != nil || done {
			return err
		}
		if err := loopVar.val.Add(step); err != nil {
			return err
		}
	}
}

func cmdWhile(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	for {
		ok, err := ip.condition(args, false)
		if err != nil || !ok {
			return err
		}
		done, err := ip.iterate(target, b, sc.Syntax())
		if err != nil || done {
			return err
		}
	}
}

// cmdDo is #do { body } while cond; The body runs at least once.
func cmdDo(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	if args != "" {
		return fmt.Errorf("%w: #do takes no arguments", ErrSyntax)
	}
	t, err := sc.Next()
	if err != nil {
		return err
	}
	if (t.Kind != scan.Word && t.Kind != scan.Command) || !strings.EqualFold(t.Text, "while") {
		return fmt.Errorf("%w: expected while after #do block, found %q", ErrSyntax, t.String())
	}
	cond, err := plainArgs(sc)
	if err != nil {
		return err
	}
	for {
		done, err := ip.iterate(target, b, sc.Syntax())
		if err != nil || done {
			return err
		}
		ok, err := ip.condition(cond, false)
		if err != nil || !ok {
			return err
		}
	}
}

func cmdCompound(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	t := target.typ
	if args != "" {
		if t, err = ip.Type(args); err != nil {
			return err
		}
	}
	if target.compounded {
		return nil
	}
	if _, ok := ip.compounds[t]; !ok {
		return fmt.Errorf("%w: no compound template for %s", ErrUnknownType, ip.TypeName(t))
	}
	if target.Map() == nil {
		return fmt.Errorf("%w: %s is not an object", ErrInvalidType, describe(target))
	}
	return ip.expandCompound(target, t)
}

func cmdDelete(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	names := scan.SplitTop(args, ',')
	if len(names) == 0 {
		return fmt.Errorf("%w: #delete needs a name", ErrSyntax)
	}
	for _, s := range names {
		n, err := ip.resolveName(s)
		if err != nil {
			return err
		}
		if err := ip.DeleteObject(target, n); err != nil {
			return err
		}
	}
	return nil
}

// cmdDeleteVolatile removes the fields whose names start with exactly one
// underscore; deep also sweeps the target's owned sub-objects.
func cmdDeleteVolatile(deep bool) commandFunc {
	return func(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error {
		args, err := plainArgs(sc)
		if err != nil {
			return err
		}
		if args != "" {
			return fmt.Errorf("%w: #%s takes no arguments", ErrSyntax, cmd.Text)
		}
		n := ip.deleteWhere(target, IsVolatileKey, deep)
		ip.Log.Logf(diag.LevelDebug, diag.Pos{File: sc.File(), Line: cmd.Line}, "#%s removed %d fields", cmd.Text, n)
		return nil
	}
}

// cmdChangeType is #changetype Type [value].
func cmdChangeType(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	typeName, value := args, ""
	if parts := scan.SplitTop(args, ':'); len(parts) > 1 {
		typeName, value = parts[0], strings.Join(parts[1:], ":")
	} else if f := scan.SplitFields(args); len(f) > 1 {
		typeName, value = f[0], strings.TrimSpace(strings.TrimPrefix(args, f[0]))
	}
	if typeName == "" {
		return fmt.Errorf("%w: #changetype needs a type", ErrSyntax)
	}
	t, err := ip.Type(typeName)
	if err != nil {
		return err
	}
	return ip.SetType(target, t, value)
}

func cmdScript(kind ScriptKind, defaultName string) commandFunc {
	return func(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error {
		args, b, err := blockArgs(sc)
		if err != nil {
			return err
		}
		name := unquoted(args)
		if name == "" {
			name = defaultName
		}
		if name == "" {
			return fmt.Errorf("%w: #%s needs an output file name", ErrSyntax, cmd.Text)
		}
		text, err := ip.renderScript(target, b)
		if err != nil {
			return err
		}
		ip.script(name, kind).append(text)
		return nil
	}
}

// message evaluates the text of a diagnostic command as a string
// expression, falling back to the text itself.
func (ip *Interp) message(args string) string {
	if args == "" {
		return ""
	}
	if v, err := ip.EvalFamily(args, FamilyString); err == nil {
		if s, err := v.ToString(); err == nil {
			return s
		}
	}
	return unquoted(args)
}

func cmdMessage(level diag.Level) commandFunc {
	return func(ip *Interp, target *Object, sc *scan.Scanner, cmd scan.Token) error {
		args, err := plainArgs(sc)
		if err != nil {
			return err
		}
		ip.Log.Log(level, diag.Pos{File: sc.File(), Line: cmd.Line}, ip.message(args))
		if level != diag.LevelError {
			return nil
		}
		if err := ip.countError(); err != nil {
			return fmt.Errorf("%w: %w", ErrUserError, err)
		}
		return nil
	}
}

// cmdInclude interprets another file into the target. The name is looked
// up next to the including file, then in the include paths. A file is
// only ever included once.
func cmdInclude(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	name := unquoted(args)
	if name == "" {
		return fmt.Errorf("%w: #include needs a file name", ErrSyntax)
	}
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(filepath.Dir(sc.File()), name)}
		for _, dir := range ip.Opts.IncludePaths {
			candidates = append(candidates, filepath.Join(dir, name))
		}
		candidates = append(candidates, name)
	}
	for _, path := range candidates {
		path = filepath.Clean(path)
		if ip.included[path] {
			ip.Log.Debugf("%s already included", path)
			return nil
		}
		data, err := ip.ReadFile(path)
		if err != nil {
			continue
		}
		ip.included[path] = true
		return ip.runFile(target, scan.New(path, string(data), scan.SyntaxForFile(path)))
	}
	return fmt.Errorf("%w: %s", ErrIncludeNotFound, name)
}

func cmdBase(ip *Interp, target *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	var names []string
	for _, p := range argParts(args) {
		names = append(names, scan.SplitTop(p, ',')...)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: #base needs a name", ErrSyntax)
	}
	for _, b := range names {
		if err := ip.AddBase(target, b); err != nil {
			return err
		}
	}
	return nil
}

func cmdCompoundObject(ip *Interp, _ *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	t, err := ip.Types.Lookup(unquoted(args))
	if err != nil {
		return err
	}
	if !ip.Types.Mode(t).IsMap() {
		return fmt.Errorf("%w: compound template for value type %s", ErrInvalidType, ip.TypeName(t))
	}
	ip.AddCompound(t, Template{Block: b, Syntax: sc.Syntax()})
	return nil
}

// cmdType is #type name : mode [: native].
func cmdType(ip *Interp, _ *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	parts := argParts(args)
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("%w: #type needs name : mode [: native]", ErrSyntax)
	}
	return ip.DefineType(parts[0], parts[1], strings.Join(parts[2:], ""))
}

// DefineType registers a type from its textual description. Value types
// need a native kind; map types ignore it.
func (ip *Interp) DefineType(name, mode, native string) error {
	m, err := ParseMode(strings.ToLower(mode))
	if err != nil {
		return err
	}
	if m == ModeNone {
		return fmt.Errorf("%w: mode none", ErrInvalidType)
	}
	k := KindNull
	if m == ModeValue {
		var ok bool
		if k, ok = ParseKind(strings.ToLower(native)); !ok || k.Family() == FamilyObject || k == KindNull {
			return fmt.Errorf("%w: %q is not a native kind", ErrInvalidType, native)
		}
	}
	_, err = ip.Types.Add(name, m, k)
	return err
}

// cmdDefaultType is #defaulttype field : context : type, or field : type
// for a global default.
func cmdDefaultType(ip *Interp, _ *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	parts := argParts(args)
	switch len(parts) {
	case 2:
		return ip.DefineDefault(parts[0], "", parts[1])
	case 3:
		return ip.DefineDefault(parts[0], parts[1], parts[2])
	}
	return fmt.Errorf("%w: #defaulttype needs field : [context :] type", ErrSyntax)
}

// DefineDefault records the default type of field inside objects of type
// context. An empty context, "global" or "null" makes a global default.
func (ip *Interp) DefineDefault(field, context, typeName string) error {
	ctx := TypeNull
	switch strings.ToLower(context) {
	case "", NameGlobal, "null":
	default:
		t, err := ip.Types.Lookup(context)
		if err != nil {
			return err
		}
		ctx = t
	}
	t, err := ip.Types.Lookup(typeName)
	if err != nil {
		return err
	}
	ip.Types.AddDefault(field, ctx, t)
	return nil
}

func cmdRedirect(ip *Interp, _ *Object, sc *scan.Scanner, _ scan.Token) error {
	args, err := plainArgs(sc)
	if err != nil {
		return err
	}
	parts := argParts(args)
	if len(parts) != 2 {
		return fmt.Errorf("%w: #redirect needs alias : type", ErrSyntax)
	}
	ip.Types.AddRedirect(parts[0], parts[1])
	return nil
}

func cmdFunction(ip *Interp, _ *Object, sc *scan.Scanner, _ scan.Token) error {
	args, b, err := blockArgs(sc)
	if err != nil {
		return err
	}
	ret, name, params, err := parseFunctionHead(args)
	if err != nil {
		return err
	}
	rt, err := ip.Types.Lookup(ret)
	if err != nil {
		return err
	}
	return ip.DefineFunction(&Function{Name: name, Return: rt, Params: params, Body: b, Syntax: sc.Syntax()})
}
