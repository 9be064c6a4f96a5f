package main

import (
	"bytes"
	"errors"
	"testing"

	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

func TestBraceDepth(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{`vertex a { x = 0;`, 1},
		{`vertex a { x = 0; }`, 0},
		{`s = "{";`, 0},
		{`s = "\"{"; o {`, 1},
	}
	for _, tt := range tests {
		if got := braceDepth(tt.src); got != tt.want {
			t.Errorf("braceDepth(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}

func TestReplCommand(t *testing.T) {
	b, err := newBuild(defaultConfig(), diag.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.ip.RunSource("<repl>", `vertex a { x = 3; y = 4; }
linedef l { v1 = a; }`, scan.DHLX); err != nil {
		t.Fatal(err)
	}

	run := func(line string) (string, bool, error) {
		var buf bytes.Buffer
		done, err := replCommand(&buf, b.ip, line)
		return buf.String(), done, err
	}

	out, done, err := run("?42")
	if !done || err != nil {
		t.Fatalf("done = %v, err = %v", done, err)
	}
	mustContain(t, out, "int = 42")

	out, _, _ = run(":dump l")
	mustContain(t, out, "l : linedef #0 {")
	mustContain(t, out, "v1 -> vertex a #0")

	out, _, _ = run(":types")
	mustContain(t, out, "vertex")

	if _, _, err := run(":quit"); !errors.Is(err, errQuit) {
		t.Fatalf("expected errQuit, got %v", err)
	}
	if _, _, err := run(":nope"); err == nil {
		t.Fatal("expected an unknown command error")
	}
	if _, done, _ := run("vertex b { x = 1; }"); done {
		t.Fatal("source lines are not session commands")
	}
}

func TestStoreEntries(t *testing.T) {
	b, err := newBuild(defaultConfig(), diag.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.ip.RunSource("map.dhlx", `vertex a { x = 0; y = 0; }
vertex { x = 1; y = 1; }
thing { type = 1; }`, scan.DHLX); err != nil {
		t.Fatal(err)
	}
	if got := len(storeEntries(b.ip, "")); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}
	vs := storeEntries(b.ip, "vertices")
	if len(vs) != 2 || vs[0].Key() != "a" {
		t.Fatalf("unexpected vertex entries %+v", vs)
	}
	var buf bytes.Buffer
	printEntries(&buf, vs)
	mustContain(t, buf.String(), "x=0 y=0")
	if storeEntries(b.ip, "nosuchtype") != nil {
		t.Fatal("unknown types list nothing")
	}
}
