package ddl

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

func mustContain(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}

func compile(t *testing.T, opts Options, src string) (*Interp, string) {
	t.Helper()
	return compileAs(t, opts, scan.DHLX, src)
}

func compileAs(t *testing.T, opts Options, syntax scan.Syntax, src string) (*Interp, string) {
	t.Helper()
	var buf bytes.Buffer
	ip := New(opts, diag.New(&buf))
	if err := ip.RunSource("test.src", src, syntax); err != nil {
		t.Fatalf("RunSource: %v\n%s", err, buf.String())
	}
	return ip, buf.String()
}

func lookup(t *testing.T, ip *Interp, name string) *Object {
	t.Helper()
	o, err := ip.Get(ParseName(name))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return o
}

func intField(t *testing.T, ip *Interp, name string) int64 {
	t.Helper()
	i, err := lookup(t, ip, name).Value().ToInt()
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return i
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"if taken", `#if 1 == 1 { r = 1; } #else { r = 2; }`, 1},
		{"else taken", `#if 1 == 2 { r = 1; } #else { r = 3; }`, 3},
		{"elseif chain", `#if 1 == 2 { r = 1; } #elseif 2 > 1 { r = 2; } #else { r = 3; }`, 2},
		{"ifcmp words", `#ifcmp 3 ge 3 { r = 4; }`, 4},
		{"unspaced operator", `#if 2!=3 { r = 5; }`, 5},
		{"named test", `a = 1; #if exists a { r = 6; }`, 6},
		{"negated test", `#if not exists zz { r = 7; }`, 7},
		{"bool expression", `#if true { r = 8; }`, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ip, out := compile(t, DefaultOptions(), tc.src)
			if ip.Errors() != 0 {
				t.Fatalf("unexpected errors:\n%s", out)
			}
			if got := intField(t, ip, "r"); got != tc.want {
				t.Fatalf("r = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIfChain_NestedConditional(t *testing.T) {
	src := `#if 1 == 1 { #if 1 == 2 { } }
#else { r = 1; }`

	ip, _ := compile(t, DefaultOptions(), src)
	if _, ok := ip.Find(NewName("r")); !ok {
		t.Fatalf("with a flat chain the inner #if decides the outer #else")
	}

	opts := DefaultOptions()
	opts.ScopedIf = true
	ip, _ = compile(t, opts, src)
	if _, ok := ip.Find(NewName("r")); ok {
		t.Fatalf("with scoped chains the outer #else must not run")
	}
}

func TestFor(t *testing.T) {
	src := `sum = 0;
#for i : 0 : 5 { sum += i; }
#for i : 5 : 0 : -1 { down += 1; }
#for int i : 0 : 10 {
	#if i == 3 { #break; }
	early += 1;
}`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "sum"); got != 10 {
		t.Fatalf("sum = %d, want 10", got)
	}
	if got := intField(t, ip, "down"); got != 5 {
		t.Fatalf("down = %d, want 5", got)
	}
	if got := intField(t, ip, "early"); got != 3 {
		t.Fatalf("early = %d, want 3", got)
	}
	if _, ok := ip.Find(NewName("i")); ok {
		t.Fatalf("loop variable must not outlive the loop")
	}
}

func TestFor_ZeroStep(t *testing.T) {
	ip, out := compile(t, DefaultOptions(), `#for i : 0 : 3 : 0 { n += 1; }`)
	if ip.Errors() != 1 {
		t.Fatalf("expected one error, got %d:\n%s", ip.Errors(), out)
	}
	mustContain(t, out, "step is zero")
}

func TestWhileAndDo(t *testing.T) {
	src := `n = 0;
#while n < 4 { n += 1; }
m = 10;
#do { m += 1; } while m < 5;`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "n"); got != 4 {
		t.Fatalf("n = %d, want 4", got)
	}
	if got := intField(t, ip, "m"); got != 11 {
		t.Fatalf("do body runs once, m = %d", got)
	}
}

func TestFunctions(t *testing.T) {
	src := `#function int add(a, b) { #return a + b; }
#function int fact(n) {
	#if n <= 1 { #return 1; }
	#return n * <fact>(n - 1);
}
x = <add>(2, 3);
f = <fact>(5);`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "x"); got != 5 {
		t.Fatalf("x = %d, want 5", got)
	}
	if got := intField(t, ip, "f"); got != 120 {
		t.Fatalf("f = %d, want 120", got)
	}
	if ip.Depth() != 0 || ip.calls != 0 {
		t.Fatalf("call state leaked: depth %d calls %d", ip.Depth(), ip.calls)
	}
}

func TestDDLSyntax(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"if", `#if:1:eq:1{ r = 1; }#else{ r = 2; }`, 1},
		{"else", `#if:1:eq:2{ r = 1; }#else{ r = 3; }`, 3},
		{"elseif", `#if:1:gt:2{ r = 1; }#elseif:2:ge:2{ r = 2; }#else{ r = 3; }`, 2},
		{"typed comparison", `int a = 4; #ifcmp:int:a:lt:5{ r = 4; }`, 4},
		{"for", `r = 0; #for:i:0:5:1{ r += i; }`, 10},
		{"for break", `#for:int:i:0:10{ #if:i:eq:3{ #break; } r += 1; }`, 3},
		{"typed for with step", `#for:int:i:0:10:2{ r += 1; }`, 5},
		{"while", `r = 0; #while:r:lt:6{ r += 2; }`, 6},
		{"function", `#function:int:add(a, b){ #return:a + b; } r = <add>(2, 3);`, 5},
		{"typed expression", `int r = 16 * 2;`, 32},
		{"untyped expression", `r = 2 + 3;`, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ip, out := compileAs(t, DefaultOptions(), scan.DDL, tc.src)
			if ip.Errors() != 0 {
				t.Fatalf("unexpected errors:\n%s", out)
			}
			if got := intField(t, ip, "r"); got != tc.want {
				t.Fatalf("r = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestUntypedExpressions(t *testing.T) {
	src := `x = 2 + 3;
y = 16 * 2;
z = 0 - 4;
h = 1.5 * 2;
s = "a" + "b";
#function int sq(n) { #return n * n; }
c = <sq>(2 + 1);`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	for name, want := range map[string]int64{"x": 5, "y": 32, "z": -4, "c": 9} {
		if got := intField(t, ip, name); got != want {
			t.Fatalf("%s = %d, want %d", name, got, want)
		}
		if tn := ip.TypeName(lookup(t, ip, name).Type()); tn != "int" {
			t.Fatalf("%s inferred as %s, want int", name, tn)
		}
	}
	h := lookup(t, ip, "h")
	if f, _ := h.Value().ToReal(); f != 3 || ip.TypeName(h.Type()) != "real" {
		t.Fatalf("h = %v (%s), want real 3", h.Value(), ip.TypeName(h.Type()))
	}
	if got := lookup(t, ip, "s").Value().String(); got != "ab" {
		t.Fatalf("s = %q, want %q", got, "ab")
	}
}

func TestInfer(t *testing.T) {
	ip, _ := compile(t, DefaultOptions(), `real r = 0.5;`)
	tests := []struct {
		text string
		typ  string
		want string
	}{
		{"7", "int", "7"},
		{"0x10", "int", "16"},
		{"2.5", "real", "2.5"},
		{"2 + 3", "int", "5"},
		{"10 - 2 * 3", "int", "4"},
		{"r * 4", "real", "2.0"},
		{`"hi"`, "string", "hi"},
		{"true", "bool", "true"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			typ, v, err := ip.Infer(tc.text)
			if err != nil {
				t.Fatalf("Infer(%q): %v", tc.text, err)
			}
			if got := ip.TypeName(typ); got != tc.typ {
				t.Fatalf("type %s, want %s", got, tc.typ)
			}
			if got := v.String(); got != tc.want {
				t.Fatalf("value %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDynamicReturnType(t *testing.T) {
	src := `#function twice(x) { #return x + x; }
#function half(x) { dynamic h = x / 2; #return h; }
int i = <twice>(4);
string s = <twice>("ab");
int hi = <half>(7);
real hr = <half>(7);`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "i"); got != 8 {
		t.Fatalf("i = %d, want 8", got)
	}
	if got := lookup(t, ip, "s").Value().String(); got != "abab" {
		t.Fatalf("s = %q, want %q", got, "abab")
	}
	if got := intField(t, ip, "hi"); got != 3 {
		t.Fatalf("hi = %d, want 3", got)
	}
	if f, _ := lookup(t, ip, "hr").Value().ToReal(); f != 3.5 {
		t.Fatalf("hr = %v, want 3.5", f)
	}
	if _, err := ip.Type("dynamic"); err == nil {
		t.Fatalf("dynamic must not resolve outside of a function")
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	ip, out := compile(t, DefaultOptions(), `#return 1;`)
	if ip.Errors() != 1 {
		t.Fatalf("expected one error, got %d:\n%s", ip.Errors(), out)
	}
	mustContain(t, out, "outside of a function")
}

func TestStreamExpressions(t *testing.T) {
	src := `int x = 2 + 3 * 4;
int y = (2 + 3) * 4;
string s = "a" + "b";
real h = <hypot>(3, 4);
int a = [abs](0 - 7);`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "x"); got != 14 {
		t.Fatalf("x = %d, want 14", got)
	}
	if got := intField(t, ip, "y"); got != 20 {
		t.Fatalf("y = %d, want 20", got)
	}
	if got := lookup(t, ip, "s").Value().String(); got != "ab" {
		t.Fatalf("s = %q, want ab", got)
	}
	if got, _ := lookup(t, ip, "h").Value().ToReal(); got != 5 {
		t.Fatalf("h = %v, want 5", got)
	}
	if got := intField(t, ip, "a"); got != 7 {
		t.Fatalf("a = %d, want 7", got)
	}
}

func TestErrorRecovery(t *testing.T) {
	src := `a = 1;
#bogus;
object o { b = 2; #bogus; c = 3; }
d = 4;`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 2 {
		t.Fatalf("expected 2 errors, got %d:\n%s", ip.Errors(), out)
	}
	mustContain(t, out, "test.dhlx:2:")
	mustContain(t, out, "unknown command")
	if ip.Depth() != 0 {
		t.Fatalf("scope stack not balanced after errors: depth %d", ip.Depth())
	}
	if intField(t, ip, "o.b") != 2 || intField(t, ip, "d") != 4 {
		t.Fatalf("statements around the errors must still run")
	}
	if _, ok := ip.Find(ParseName("o.c")); ok {
		t.Fatalf("rest of the failed statement must be skipped")
	}
}

func TestErrorLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.ErrorLimit = 2
	ip := New(opts, diag.Discard())
	err := ip.RunSource("t.dhlx", `a = 1; #bogus; b = 2; #bogus; c = 3;`, scan.DHLX)
	if !errors.Is(err, ErrErrorLimit) {
		t.Fatalf("expected ErrErrorLimit, got %v", err)
	}
	if _, ok := ip.Find(NewName("b")); !ok {
		t.Fatalf("b must run before the limit is reached")
	}
	if _, ok := ip.Find(NewName("c")); ok {
		t.Fatalf("nothing may run after the limit is reached")
	}
}

func TestUserError(t *testing.T) {
	opts := DefaultOptions()
	opts.ErrorLimit = 1
	var buf bytes.Buffer
	ip := New(opts, diag.New(&buf))
	err := ip.RunSource("t.dhlx", `#error "broken " + "map"; a = 1;`, scan.DHLX)
	if !errors.Is(err, ErrUserError) || !errors.Is(err, ErrErrorLimit) {
		t.Fatalf("expected user error at the limit, got %v", err)
	}
	mustContain(t, buf.String(), "broken map")
}

func TestDefaultTypes(t *testing.T) {
	src := `#type vertex : object;
#defaulttype x : vertex : int;
vertex v { x = 3; }
vertex w { x = 4; }`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	vt, _ := ip.Types.Lookup("vertex")
	if got := len(ip.Store.List(vt)); got != 2 {
		t.Fatalf("expected 2 indexed vertices, got %d", got)
	}
	x := lookup(t, ip, "w.x")
	if ip.TypeName(x.Type()) != "int" {
		t.Fatalf("x must take its default type, got %s", ip.TypeName(x.Type()))
	}
	if lookup(t, ip, "w").Index() != 1 {
		t.Fatalf("w must be the second vertex")
	}
}

func TestStrictNeedsDefaultType(t *testing.T) {
	opts := DefaultOptions()
	opts.Strict = true
	ip, out := compile(t, opts, `#type thing : object; thing t { y = 1; }`)
	if ip.Errors() != 1 {
		t.Fatalf("expected one error, got %d:\n%s", ip.Errors(), out)
	}
	mustContain(t, out, "no default type")
}

func TestStore_ReindexOnDelete(t *testing.T) {
	ip, out := compile(t, DefaultOptions(), `object a { } object b { } object c { } #delete b;`)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	ot, _ := ip.Types.Lookup("object")
	list := ip.Store.List(ot)
	if len(list) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(list))
	}
	for i, o := range list {
		if o.Index() != i {
			t.Fatalf("%s has index %d at position %d", o.Name(), o.Index(), i)
		}
	}
	if c := lookup(t, ip, "c"); c.Index() != 1 {
		t.Fatalf("c must move down to index 1, got %d", c.Index())
	}
}

func TestBases_DoNotOverride(t *testing.T) {
	src := `object proto { light = 160; tag = 1; }
object room : proto { tag = 9; }
object hall { tag = 5; #base proto; }`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if intField(t, ip, "room.light") != 160 || intField(t, ip, "room.tag") != 9 {
		t.Fatalf("room must inherit light and keep its own tag")
	}
	if intField(t, ip, "hall.tag") != 5 || intField(t, ip, "hall.light") != 160 {
		t.Fatalf("#base must not replace fields hall already has")
	}
}

func TestCompound_ExpandsOnce(t *testing.T) {
	src := `#type room : compound;
#compoundobject room { size = 1; }
room r { size = 5; #compound; }
room r { }
room q { tag = 2; }
room e { }`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	if got := intField(t, ip, "r.size"); got != 5 {
		t.Fatalf("template must not clobber the body, r.size = %d", got)
	}
	if got := intField(t, ip, "q.size"); got != 1 {
		t.Fatalf("q.size = %d, want the template value 1", got)
	}
	if _, ok := ip.Find(ParseName("e.size")); ok {
		t.Fatalf("an empty body must not expand the template")
	}
	rt, _ := ip.Types.Lookup("room")
	if got := len(ip.Store.List(rt)); got != 3 {
		t.Fatalf("expected 3 rooms in the store, got %d", got)
	}
}

func TestInclude_Once(t *testing.T) {
	files := map[string]string{
		"lib.dhlx":         `count += 1; b = 7;`,
		"inc/common.dhlx": `c = 9;`,
	}
	opts := DefaultOptions()
	opts.IncludePaths = []string{"inc"}
	var buf bytes.Buffer
	ip := New(opts, diag.New(&buf))
	ip.ReadFile = func(path string) ([]byte, error) {
		if s, ok := files[path]; ok {
			return []byte(s), nil
		}
		return nil, fs.ErrNotExist
	}
	src := `#include "lib.dhlx";
#include "lib.dhlx";
#include "common.dhlx";
a = b;`
	if err := ip.RunSource("main.dhlx", src, scan.DHLX); err != nil {
		t.Fatal(err)
	}
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	if got := intField(t, ip, "count"); got != 1 {
		t.Fatalf("lib.dhlx must be included once, count = %d", got)
	}
	if intField(t, ip, "a") != 7 || intField(t, ip, "c") != 9 {
		t.Fatalf("included fields missing")
	}

	err := ip.RunSource("main.dhlx", `#include "missing.dhlx";`, scan.DHLX)
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, buf.String(), "include file not found")
}

func TestDeleteVolatile(t *testing.T) {
	src := `object o { _a = 1; __b = 2; c = 3; object inner { _d = 4; e = 5; } }
o { #deletevolatile; }
object p { _a = 1; object inner { _d = 4; } #delete_; }`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	for _, gone := range []string{"o._a", "o.inner._d", "p._a"} {
		if _, ok := ip.Find(ParseName(gone)); ok {
			t.Fatalf("%s must be deleted", gone)
		}
	}
	for _, kept := range []string{"o.__b", "o.c", "o.inner.e", "p.inner._d"} {
		if _, ok := ip.Find(ParseName(kept)); !ok {
			t.Fatalf("%s must be kept", kept)
		}
	}
}

func TestRedirectAndChangeType(t *testing.T) {
	src := `#type thing : object;
#redirect monster : thing;
monster m { hp = 1; }
object w { #changetype thing; }`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	tt, _ := ip.Types.Lookup("thing")
	if lookup(t, ip, "m").Type() != tt {
		t.Fatalf("monster must resolve to thing")
	}
	w := lookup(t, ip, "w")
	if w.Type() != tt || w.Index() != 1 {
		t.Fatalf("w must be retyped and indexed as the second thing, got %s/%d", ip.TypeName(w.Type()), w.Index())
	}
}

func TestScripts(t *testing.T) {
	src := `#scriptacs { script 1 OPEN { } }
object o {
	tag = 5;
	#script "OUT.TXT" { tag {{.tag}} sum {{eval "2 + 3"}} }
}`
	ip, out := compile(t, DefaultOptions(), src)
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", out)
	}
	scripts := ip.Scripts()
	if len(scripts) != 2 {
		t.Fatalf("expected 2 script buffers, got %d", len(scripts))
	}
	if scripts[0].Name != "SCRIPTS" || scripts[0].Kind != ScriptACS {
		t.Fatalf("unexpected first buffer %s/%s", scripts[0].Name, scripts[0].Kind)
	}
	mustContain(t, scripts[0].Text(), "script 1 OPEN")
	mustContain(t, scripts[1].Text(), "tag 5 sum 5")
}

func TestCaseFolding(t *testing.T) {
	ip, _ := compile(t, DefaultOptions(), `Object Room { Light = 1; }`)
	if intField(t, ip, "room.light") != 1 {
		t.Fatalf("names must fold to lower case")
	}

	opts := DefaultOptions()
	opts.CaseSensitive = true
	ip, _ = compile(t, opts, `object Room { Light = 1; }`)
	if _, ok := ip.Find(ParseName("room.light")); ok {
		t.Fatalf("case-sensitive names must not fold")
	}
}
