package ddl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dhlx/pkg/ddl/num"
)

// Kind is the variant tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindIntShort
	KindInt
	KindIntLong
	KindRealShort
	KindReal
	KindRealLong
	KindString
	KindString8
	KindString16
	KindString32
	KindString80
	KindString320
	KindUByte
	KindSWord
	KindUWord
	KindSDWord
	KindUDWord
	KindObject
	KindObjectMap
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindIntShort:  "shortint",
	KindInt:       "int",
	KindIntLong:   "longint",
	KindRealShort: "shortreal",
	KindReal:      "real",
	KindRealLong:  "longreal",
	KindString:    "string",
	KindString8:   "string8",
	KindString16:  "string16",
	KindString32:  "string32",
	KindString80:  "string80",
	KindString320: "string320",
	KindUByte:     "ubyte",
	KindSWord:     "sword",
	KindUWord:     "uword",
	KindSDWord:    "sdword",
	KindUDWord:    "udword",
	KindObject:    "object",
	KindObjectMap: "objectmap",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a native type name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindNull, false
}

// Width is the byte width of fixed-width string and binary kinds, 0 for
// everything else.
func (k Kind) Width() int {
	switch k {
	case KindString8:
		return 8
	case KindString16:
		return 16
	case KindString32:
		return 32
	case KindString80:
		return 80
	case KindString320:
		return 320
	case KindUByte:
		return 1
	case KindSWord, KindUWord:
		return 2
	case KindSDWord, KindUDWord:
		return 4
	}
	return 0
}

// Family groups kinds that share one set of operators and literal rules.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyBool
	FamilyInt
	FamilyReal
	FamilyString
	FamilyObject
)

func (f Family) String() string {
	switch f {
	case FamilyBool:
		return "bool"
	case FamilyInt:
		return "int"
	case FamilyReal:
		return "real"
	case FamilyString:
		return "string"
	case FamilyObject:
		return "object"
	}
	return "none"
}

// Kind is the canonical kind of the family.
func (f Family) Kind() Kind {
	switch f {
	case FamilyBool:
		return KindBool
	case FamilyInt:
		return KindInt
	case FamilyReal:
		return KindReal
	case FamilyString:
		return KindString
	case FamilyObject:
		return KindObject
	}
	return KindNull
}

func (k Kind) Family() Family {
	switch k {
	case KindBool:
		return FamilyBool
	case KindIntShort, KindInt, KindIntLong, KindUByte, KindSWord, KindUWord, KindSDWord, KindUDWord:
		return FamilyInt
	case KindRealShort, KindReal, KindRealLong:
		return FamilyReal
	case KindString, KindString8, KindString16, KindString32, KindString80, KindString320:
		return FamilyString
	case KindObject, KindObjectMap:
		return FamilyObject
	}
	return FamilyNone
}

// Value is the tagged union stored in every leaf Object. The zero Value is
// Null. Values are small and copied by assignment; the ObjectMap variant is
// the only one that shares state, and Clone copies it deeply.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
	obj  *Object
	m    *ObjectMap
}

func Null() Value { return Value{} }

func NewBool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// NewInt stores v in the integer kind k, wrapping it to the kind's width.
func NewInt(k Kind, v int64) Value {
	if k.Family() != FamilyInt {
		k = KindInt
	}
	return Value{kind: k, i: wrapInt(k, v)}
}

func NewReal(k Kind, v float64) Value {
	if k.Family() != FamilyReal {
		k = KindReal
	}
	if k == KindRealShort {
		v = float64(float32(v))
	}
	return Value{kind: k, r: v}
}

// NewString stores s in the string kind k. Fixed-width kinds truncate to
// their byte width; padding happens when the value is encoded.
func NewString(k Kind, s string) Value {
	if k.Family() != FamilyString {
		k = KindString
	}
	if w := k.Width(); w > 0 && len(s) > w {
		s = s[:w]
	}
	return Value{kind: k, s: s}
}

func NewObjectRef(o *Object) Value { return Value{kind: KindObject, obj: o} }
func NewMap(m *ObjectMap) Value    { return Value{kind: KindObjectMap, m: m} }

func (v Value) Kind() Kind        { return v.kind }
func (v Value) Family() Family    { return v.kind.Family() }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsMap() bool       { return v.kind == KindObjectMap }
func (v Value) IsObjectRef() bool { return v.kind == KindObject }

func mismatch(v Value, want string) error {
	return fmt.Errorf("%w: %s value read as %s", ErrTypeMismatch, v.kind, want)
}

func wrapInt(k Kind, v int64) int64 {
	switch k {
	case KindIntShort, KindSWord:
		return int64(int16(v))
	case KindInt, KindSDWord:
		return int64(int32(v))
	case KindUByte:
		return int64(uint8(v))
	case KindUWord:
		return int64(uint16(v))
	case KindUDWord:
		return int64(uint32(v))
	}
	return v
}

// Typed getters. They fail with ErrTypeMismatch when the stored variant is
// not of the requested family.

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, mismatch(v, "bool")
	}
	return v.i != 0, nil
}

func (v Value) AsInt() (int64, error) {
	if v.Family() != FamilyInt {
		return 0, mismatch(v, "int")
	}
	return v.i, nil
}

func (v Value) AsReal() (float64, error) {
	if v.Family() != FamilyReal {
		return 0, mismatch(v, "real")
	}
	return v.r, nil
}

func (v Value) AsString() (string, error) {
	if v.Family() != FamilyString {
		return "", mismatch(v, "string")
	}
	return v.s, nil
}

func (v Value) AsObject() (*Object, error) {
	if v.kind != KindObject {
		return nil, mismatch(v, "object")
	}
	return v.obj, nil
}

func (v Value) AsMap() (*ObjectMap, error) {
	if v.kind != KindObjectMap {
		return nil, mismatch(v, "objectmap")
	}
	return v.m, nil
}

func badConversion(v Value, to string) error {
	return fmt.Errorf("%w: %s to %s", ErrInvalidConversion, v.kind, to)
}

// deref replaces an object reference to a leaf object by the leaf's payload.
func (v Value) deref() Value {
	for depth := 0; v.kind == KindObject && v.obj != nil && !v.obj.val.IsMap() && depth < 16; depth++ {
		v = v.obj.val
	}
	return v
}

// ToBool converts any scalar to a boolean. Numbers are true when non-zero;
// strings accept true/false, yes/no, on/off, the empty string and numbers.
func (v Value) ToBool() (bool, error) {
	v = v.deref()
	switch v.Family() {
	case FamilyBool, FamilyInt:
		return v.i != 0, nil
	case FamilyReal:
		return v.r != 0, nil
	case FamilyString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off", "":
			return false, nil
		}
		if f, err := num.ParseReal(v.s); err == nil {
			return f != 0, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v.s)
	case FamilyObject:
		if v.kind == KindObject {
			return v.obj != nil, nil
		}
	}
	return false, badConversion(v, "bool")
}

// ToInt converts any scalar to an integer. Reals truncate toward zero and
// references to map objects yield the object's store index.
func (v Value) ToInt() (int64, error) {
	v = v.deref()
	switch v.Family() {
	case FamilyBool, FamilyInt:
		return v.i, nil
	case FamilyReal:
		if math.IsNaN(v.r) {
			return 0, nil
		}
		return int64(v.r), nil
	case FamilyString:
		s := strings.TrimSpace(v.s)
		if i, err := num.ParseInt(s); err == nil {
			return i, nil
		}
		if f, err := num.ParseReal(s); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v.s)
	case FamilyObject:
		if v.kind == KindObject && v.obj != nil {
			return int64(v.obj.Index()), nil
		}
	}
	return 0, badConversion(v, "int")
}

func (v Value) ToReal() (float64, error) {
	v = v.deref()
	switch v.Family() {
	case FamilyBool, FamilyInt:
		return float64(v.i), nil
	case FamilyReal:
		return v.r, nil
	case FamilyString:
		f, err := num.ParseReal(v.s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v.s)
		}
		return f, nil
	case FamilyObject:
		if v.kind == KindObject && v.obj != nil {
			return float64(v.obj.Index()), nil
		}
	}
	return 0, badConversion(v, "real")
}

// ToString renders any scalar as text. Reals use the shortest form that
// parses back to the same value; references to map objects yield the
// object's name.
func (v Value) ToString() (string, error) {
	v = v.deref()
	switch v.Family() {
	case FamilyBool:
		return strconv.FormatBool(v.i != 0), nil
	case FamilyInt:
		return strconv.FormatInt(v.i, 10), nil
	case FamilyReal:
		return num.FormatReal(v.r, -1), nil
	case FamilyString:
		return v.s, nil
	case FamilyObject:
		if v.kind == KindObject && v.obj != nil {
			return v.obj.Name(), nil
		}
	}
	return "", badConversion(v, "string")
}

// Convert coerces v to the kind k. Converting from Null or an ObjectMap, or
// to an object kind from a scalar, fails with ErrInvalidConversion.
func (v Value) Convert(k Kind) (Value, error) {
	if v.kind == k && k != KindObject {
		return v, nil
	}
	if v.kind == KindNull {
		return Value{}, badConversion(v, k.String())
	}
	switch k.Family() {
	case FamilyBool:
		b, err := v.ToBool()
		return NewBool(b), err
	case FamilyInt:
		i, err := v.ToInt()
		return NewInt(k, i), err
	case FamilyReal:
		f, err := v.ToReal()
		return NewReal(k, f), err
	case FamilyString:
		s, err := v.ToString()
		return NewString(k, s), err
	case FamilyObject:
		if k == KindObject && v.kind == KindObject {
			return v, nil
		}
	}
	return Value{}, badConversion(v, k.String())
}

// ConvertFamily coerces v to the canonical kind of f, keeping v's own kind
// when it already belongs to f.
func (v Value) ConvertFamily(f Family) (Value, error) {
	if v.Family() == f && v.kind != KindObjectMap {
		return v, nil
	}
	return v.Convert(f.Kind())
}

func checkOrderable(v Value) error {
	if v.kind == KindNull || v.kind == KindObjectMap {
		return fmt.Errorf("%w: cannot compare %s values", ErrInvalidConversion, v.kind)
	}
	return nil
}

// Cmp orders a and b. The right operand is coerced to the left operand's
// family; two object references compare by identity, then store index.
func Cmp(a, b Value) (int, error) {
	if err := checkOrderable(a); err != nil {
		return 0, err
	}
	if err := checkOrderable(b); err != nil {
		return 0, err
	}
	if a.kind == KindObject && b.kind == KindObject {
		switch {
		case a.obj == b.obj:
			return 0, nil
		case a.obj == nil:
			return -1, nil
		case b.obj == nil:
			return 1, nil
		}
		if c := cmpOrdered(a.obj.Index(), b.obj.Index()); c != 0 {
			return c, nil
		}
		return strings.Compare(a.obj.Name(), b.obj.Name()), nil
	}
	a = a.deref()
	fam := a.Family()
	if fam == FamilyObject {
		fam = b.deref().Family()
	}
	switch fam {
	case FamilyBool:
		x, err := a.ToBool()
		if err != nil {
			return 0, err
		}
		y, err := b.ToBool()
		if err != nil {
			return 0, err
		}
		return cmpOrdered(b2i(x), b2i(y)), nil
	case FamilyInt:
		x, err := a.ToInt()
		if err != nil {
			return 0, err
		}
		y, err := b.ToInt()
		if err != nil {
			return 0, err
		}
		return cmpOrdered(x, y), nil
	case FamilyReal:
		x, err := a.ToReal()
		if err != nil {
			return 0, err
		}
		y, err := b.ToReal()
		if err != nil {
			return 0, err
		}
		return cmpOrdered(x, y), nil
	case FamilyString:
		x, err := a.ToString()
		if err != nil {
			return 0, err
		}
		y, err := b.ToString()
		if err != nil {
			return 0, err
		}
		return strings.Compare(x, y), nil
	}
	return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrInvalidConversion, a.kind, b.kind)
}

func cmpOrdered[T int | int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Add performs v += b: numeric addition wrapped to v's width, string
// concatenation truncated to v's width, logical or for booleans.
func (v *Value) Add(b Value) error {
	switch v.kind {
	case KindNull, KindObjectMap, KindObject:
		return fmt.Errorf("%w: cannot add to a %s value", ErrInvalidConversion, v.kind)
	}
	switch b.kind {
	case KindNull, KindObjectMap:
		return fmt.Errorf("%w: cannot add a %s value", ErrInvalidConversion, b.kind)
	}
	switch v.Family() {
	case FamilyBool:
		x, err := b.ToBool()
		if err != nil {
			return err
		}
		*v = NewBool(v.i != 0 || x)
	case FamilyInt:
		x, err := b.ToInt()
		if err != nil {
			return err
		}
		*v = NewInt(v.kind, v.i+x)
	case FamilyReal:
		x, err := b.ToReal()
		if err != nil {
			return err
		}
		*v = NewReal(v.kind, v.r+x)
	case FamilyString:
		x, err := b.ToString()
		if err != nil {
			return err
		}
		*v = NewString(v.kind, v.s+x)
	}
	return nil
}

// Format renders v for output: reals with the given number of fractional
// digits (negative for the shortest exact form), strings unquoted.
func (v Value) Format(precision int) string {
	v = v.deref()
	switch v.Family() {
	case FamilyReal:
		return num.FormatReal(v.r, precision)
	case FamilyObject:
		if v.kind == KindObjectMap {
			return fmt.Sprintf("{%d fields}", v.m.Len())
		}
	case FamilyNone:
		return "null"
	}
	s, _ := v.ToString()
	return s
}

func (v Value) String() string { return v.Format(-1) }

// Zero returns the zero value of kind k.
func Zero(k Kind) Value {
	switch k.Family() {
	case FamilyBool:
		return NewBool(false)
	case FamilyInt:
		return NewInt(k, 0)
	case FamilyReal:
		return NewReal(k, 0)
	case FamilyString:
		return NewString(k, "")
	case FamilyObject:
		if k == KindObjectMap {
			return NewMap(NewObjectMap())
		}
		return NewObjectRef(nil)
	}
	return Null()
}
