package ddlyaml

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"dhlx/pkg/ddl"
	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

func requireParseOK(t *testing.T, doc string) Table {
	t.Helper()
	tb, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tb
}

func requireParseErr(t *testing.T, doc, want string) {
	t.Helper()
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatalf("expected error containing %q", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error containing %q, got %v", want, err)
	}
}

func requireLoadOK(t *testing.T, names ...string) (*ddl.Interp, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ip := ddl.New(ddl.DefaultOptions(), diag.New(&buf))
	if _, err := Load(ip, names...); err != nil {
		t.Fatalf("Load(%v): %v\n%s", names, err, buf.String())
	}
	return ip, &buf
}

func TestParse_Table(t *testing.T) {
	tb := requireParseOK(t, `
library: demo
requires: [common]
namespace: zdoom
types:
  room: compound
  tag: int
  door: {mode: object}
redirects:
  rooms: room
defaults:
  global:
    name: string
  room:
    w, h: int
compounds:
  room: |
    w = 64;
source: |
  answer = 42;
`)
	if tb.Library != "demo" || tb.Namespace != "zdoom" || !slices.Equal(tb.Requires, []string{"common"}) {
		t.Fatalf("unexpected header %+v", tb)
	}
	want := []TypeDef{{"room", "compound", ""}, {"tag", "value", "int"}, {"door", "object", ""}}
	if !slices.Equal(tb.Types, want) {
		t.Fatalf("types must keep document order, got %+v", tb.Types)
	}
	if len(tb.Redirects) != 1 || tb.Redirects[0] != [2]string{"rooms", "room"} {
		t.Fatalf("unexpected redirects %v", tb.Redirects)
	}
	wantDefaults := []Default{
		{Context: "", Field: "name", Type: "string"},
		{Context: "room", Field: "w", Type: "int"},
		{Context: "room", Field: "h", Type: "int"},
	}
	if !slices.Equal(tb.Defaults, wantDefaults) {
		t.Fatalf("unexpected defaults %+v", tb.Defaults)
	}
	if len(tb.Compounds) != 1 || !strings.Contains(tb.Compounds[0].Source, "w = 64;") {
		t.Fatalf("unexpected compounds %+v", tb.Compounds)
	}
	if !strings.Contains(tb.Source, "answer = 42;") {
		t.Fatalf("source not kept: %q", tb.Source)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", ``, "empty YAML"},
		{"not a mapping", `- a`, "expected a mapping"},
		{"no library", `types: {a: object}`, "path=library"},
		{"types list", "library: x\ntypes: [a]", "phase=parse path=types"},
		{"type without mode", "library: x\ntypes:\n  a: {native: int}", "missing mode"},
		{"nested default", "library: x\ndefaults:\n  a:\n    b: [int]", "path=defaults"},
		{"redirect list", "library: x\nredirects:\n  a: [b]", "path=redirects"},
		{"compound mapping", "library: x\ncompounds:\n  a: {b: c}", "path=compounds"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			requireParseErr(t, tc.doc, tc.want)
		})
	}
}

func TestLibraries_AllParse(t *testing.T) {
	names := Libraries()
	for _, want := range []string{"common", "doom", "extradata", "heretic", "hexen", "strife", "udmf", "usdf"} {
		if !slices.Contains(names, want) {
			t.Fatalf("library %s missing from %v", want, names)
		}
	}
	for _, name := range names {
		tb, err := Library(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tb.Library != name {
			t.Fatalf("%s.yml declares library %q", name, tb.Library)
		}
	}
	if _, err := Library("quake"); err == nil || !strings.Contains(err.Error(), "unknown library") {
		t.Fatalf("expected unknown library error, got %v", err)
	}
}

func TestResolve_RequiresFirst(t *testing.T) {
	ts, err := Resolve("extradata", "doom")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, tb := range ts {
		got = append(got, tb.Library)
	}
	if want := []string{"common", "doom", "extradata"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLoad_Doom(t *testing.T) {
	ip, buf := requireLoadOK(t, "doom")
	src := `vertex A { x = 0; y = 0; }
sector s { lightlevel = 200; }
sector q { special = 0; }
sector e { }
linedef l { v1 = A; }
int lit = <lightclamp>(300);`
	if err := ip.RunSource("map.dhlx", src, scan.DHLX); err != nil {
		t.Fatal(err)
	}
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	get := func(name string) *ddl.Object {
		o, err := ip.Get(ddl.ParseName(name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return o
	}
	if v, _ := get("s.lightlevel").Value().ToInt(); v != 200 {
		t.Fatalf("body must override the sector template, got %d", v)
	}
	if v, _ := get("q.lightlevel").Value().ToInt(); v != 160 {
		t.Fatalf("template light level expected, got %d", v)
	}
	if _, ok := ip.Find(ddl.ParseName("e.lightlevel")); ok {
		t.Fatalf("an empty sector body must not pick up the template")
	}
	if s := get("q.texturefloor").Value().String(); s != "FLOOR4_8" {
		t.Fatalf("template floor texture expected, got %q", s)
	}
	if get("l.v1") != get("a") {
		t.Fatalf("v1 must reference vertex A")
	}
	if v, _ := get("lit").Value().ToInt(); v != 255 {
		t.Fatalf("library function must be callable, got %d", v)
	}
	if len(ip.Objects("vertexes")) != 1 {
		t.Fatalf("redirected type name must list the vertices")
	}
}

func TestLoad_UDMF(t *testing.T) {
	var buf bytes.Buffer
	ip := ddl.New(ddl.DefaultOptions(), diag.New(&buf))
	ns, err := Load(ip, "udmf")
	if err != nil {
		t.Fatal(err)
	}
	if ns != "zdoom" {
		t.Fatalf("namespace = %q, want zdoom", ns)
	}
	if err := ip.RunSource("map.dhlx", `vertex v { x = 1.5; y = 2; }`, scan.DHLX); err != nil {
		t.Fatal(err)
	}
	x, err := ip.Get(ddl.ParseName("v.x"))
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := x.Value().ToReal(); f != 1.5 {
		t.Fatalf("udmf coordinates are reals, got %v", x.Value())
	}
}

func TestApply_Errors(t *testing.T) {
	ip := ddl.New(ddl.DefaultOptions(), diag.Discard())
	tb := requireParseOK(t, "library: bad\ndefaults:\n  global:\n    a: nosuchtype\n")
	err := Apply(ip, tb)
	if err == nil || !strings.Contains(err.Error(), "phase=apply path=bad/defaults") {
		t.Fatalf("expected apply error, got %v", err)
	}

	tb = requireParseOK(t, "library: broken\nsource: |\n  #bogus;\n")
	err = Apply(ip, tb)
	if err == nil || !strings.Contains(err.Error(), "1 errors") {
		t.Fatalf("errors in library source must fail the load, got %v", err)
	}
}
