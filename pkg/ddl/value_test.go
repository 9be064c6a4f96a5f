package ddl

import (
	"errors"
	"testing"
)

func TestConvert_Closure(t *testing.T) {
	scalars := []Value{
		NewBool(true),
		NewInt(KindInt, 42),
		NewInt(KindUByte, 7),
		NewReal(KindReal, 2.5),
		NewString(KindString, "12"),
	}
	kinds := []Kind{KindBool, KindInt, KindIntLong, KindUWord, KindReal, KindRealShort, KindString, KindString8}
	for _, v := range scalars {
		for _, k := range kinds {
			got, err := v.Convert(k)
			if err != nil {
				t.Fatalf("%v -> %s: %v", v, k, err)
			}
			if got.Kind() != k {
				t.Fatalf("%v -> %s: got kind %s", v, k, got.Kind())
			}
		}
	}
}

func TestConvert_Failures(t *testing.T) {
	if _, err := Null().Convert(KindInt); !errors.Is(err, ErrInvalidConversion) {
		t.Fatalf("null to int: expected ErrInvalidConversion, got %v", err)
	}
	if _, err := NewMap(NewObjectMap()).Convert(KindString); !errors.Is(err, ErrInvalidConversion) {
		t.Fatalf("map to string: expected ErrInvalidConversion, got %v", err)
	}
	if _, err := NewString(KindString, "wall").Convert(KindInt); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("non-numeric string to int: expected ErrInvalidValue, got %v", err)
	}
}

func TestConvert_Values(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		to   Kind
		want string
	}{
		{"real truncates", NewReal(KindReal, -2.9), KindInt, "-2"},
		{"ubyte wraps", NewInt(KindInt, 300), KindUByte, "44"},
		{"sword wraps", NewInt(KindInt, 40000), KindSWord, "-25536"},
		{"string8 truncates", NewString(KindString, "STARTAN3X"), KindString8, "STARTAN3"},
		{"bool from yes", NewString(KindString, "yes"), KindBool, "true"},
		{"int to real", NewInt(KindInt, 3), KindReal, "3.0"},
		{"hex string", NewString(KindString, "0x10"), KindInt, "16"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Convert(tc.to)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tc.want {
				t.Fatalf("got %q want %q", got.String(), tc.want)
			}
		})
	}
}

func TestCmp(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
	}{
		{NewInt(KindInt, 1), NewInt(KindInt, 2), -1},
		{NewInt(KindInt, 2), NewReal(KindReal, 2.9), 0},
		{NewReal(KindReal, 2.5), NewInt(KindInt, 2), 1},
		{NewString(KindString, "a"), NewString(KindString, "b"), -1},
		{NewBool(true), NewInt(KindInt, 5), 0},
	}
	for _, tc := range tests {
		got, err := Cmp(tc.a, tc.b)
		if err != nil {
			t.Fatalf("Cmp(%v, %v): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("Cmp(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
	if _, err := Cmp(Null(), NewInt(KindInt, 1)); !errors.Is(err, ErrInvalidConversion) {
		t.Fatalf("expected null to be unorderable, got %v", err)
	}
}

func TestCmp_ObjectRefs(t *testing.T) {
	s := NewStore()
	a, b := NewMapObject(Type(1)), NewMapObject(Type(1))
	s.Add(a)
	s.Add(b)
	if c, _ := Cmp(NewObjectRef(a), NewObjectRef(a)); c != 0 {
		t.Fatalf("same object must compare equal, got %d", c)
	}
	if c, _ := Cmp(NewObjectRef(a), NewObjectRef(b)); c != -1 {
		t.Fatalf("lower index must order first, got %d", c)
	}
	if c, _ := Cmp(NewObjectRef(nil), NewObjectRef(b)); c != -1 {
		t.Fatalf("nil reference must order first, got %d", c)
	}
}

func TestAdd(t *testing.T) {
	v := NewInt(KindUByte, 250)
	if err := v.Add(NewInt(KindInt, 10)); err != nil {
		t.Fatal(err)
	}
	if v.String() != "4" {
		t.Fatalf("ubyte add must wrap, got %s", v)
	}

	s := NewString(KindString8, "ABCDEF")
	if err := s.Add(NewString(KindString, "GHIJ")); err != nil {
		t.Fatal(err)
	}
	if s.String() != "ABCDEFGH" {
		t.Fatalf("string8 add must truncate, got %q", s)
	}

	b := NewBool(false)
	if err := b.Add(NewBool(true)); err != nil {
		t.Fatal(err)
	}
	if b.String() != "true" {
		t.Fatalf("bool add is logical or, got %s", b)
	}

	m := NewMap(NewObjectMap())
	if err := m.Add(NewInt(KindInt, 1)); !errors.Is(err, ErrInvalidConversion) {
		t.Fatalf("adding to a map must fail, got %v", err)
	}
}

func TestZero(t *testing.T) {
	for _, k := range []Kind{KindBool, KindInt, KindReal, KindString80, KindUDWord} {
		z := Zero(k)
		if z.Kind() != k {
			t.Fatalf("Zero(%s) has kind %s", k, z.Kind())
		}
		if b, _ := z.ToBool(); b {
			t.Fatalf("Zero(%s) must be false", k)
		}
	}
}
