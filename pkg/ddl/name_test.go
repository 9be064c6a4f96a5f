package ddl

import (
	"slices"
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a", []string{"a"}},
		{"a.b.c", []string{"a", "b", "c"}},
		{"line[i.x].v1", []string{"line[i.x]", "v1"}},
		{"s<a.b>.x", []string{"s<a.b>", "x"}},
		{" a . b ", []string{"a", "b"}},
		{"a..b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseName(tt.in).Parts(); !slices.Equal(got, tt.want) {
				t.Fatalf("ParseName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestName_Decompose(t *testing.T) {
	n := ParseName("a.b.c")
	if n.First() != "a" || n.Rest().String() != "b.c" || n.Last() != "c" || n.Parent().String() != "a.b" {
		t.Fatalf("unexpected decomposition of %s", n)
	}
	if !NewName("x").Rest().IsEmpty() {
		t.Fatal("the rest of a single part name is empty")
	}
	if !ParseName("a.b").Equal(ParseName("a.c")) {
		t.Fatal("names compare by their first part")
	}
}

func TestName_Classification(t *testing.T) {
	tests := []struct {
		name              string
		volatile, private bool
	}{
		{"_foo", true, false},
		{"__foo", false, true},
		{"foo", false, false},
		{"_a._b", false, false},
		{"__a.b", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ParseName(tt.name)
			if n.IsVolatile() != tt.volatile || n.IsPrivate() != tt.private {
				t.Fatalf("volatile/private = %v/%v, want %v/%v", n.IsVolatile(), n.IsPrivate(), tt.volatile, tt.private)
			}
		})
	}
}
