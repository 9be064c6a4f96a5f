package ddl

import (
	"fmt"
	"slices"
	"strings"
)

// Mode is the storage mode of a type.
type Mode uint8

const (
	ModeNone     Mode = iota // placeholder; never resolvable
	ModeDynamic              // resolved through the return_type field in scope
	ModeValue                // leaf scalar of the type's native kind
	ModeObject               // named, indexed object map
	ModeCompound             // object map with a compound template
	ModeInline               // anonymous, positional object map
)

var modeNames = [...]string{
	ModeNone:     "none",
	ModeDynamic:  "dynamic",
	ModeValue:    "value",
	ModeObject:   "object",
	ModeCompound: "compoundobject",
	ModeInline:   "inline",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode?"
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, n := range modeNames {
		if n == s {
			return Mode(m), nil
		}
	}
	if s == "compound" {
		return ModeCompound, nil
	}
	return ModeNone, fmt.Errorf("%w: unknown mode %q", ErrInvalidType, s)
}

// IsMap reports whether instances of the mode hold an object map.
func (m Mode) IsMap() bool {
	return m == ModeObject || m == ModeCompound || m == ModeInline
}

// Type is a stable index into the registry. The zero Type is the null type.
type Type int

const TypeNull Type = 0

type typeInfo struct {
	name   string
	mode   Mode
	native Kind
}

type defaultKey struct {
	field   string
	context Type
}

// Registry is the table of named types, their per-context defaults and
// aliases. Types are only ever added.
type Registry struct {
	types     []typeInfo
	byName    map[string]Type
	redirects map[string]string
	defaults  map[defaultKey]Type
	fold      bool
}

// NewRegistry returns a registry holding the null type and the builtin
// scalar types, one per native kind, plus "object" and "dynamic".
// foldCase makes every name lookup case-insensitive.
func NewRegistry(foldCase bool) *Registry {
	r := &Registry{
		byName:    make(map[string]Type),
		redirects: make(map[string]string),
		defaults:  make(map[defaultKey]Type),
		fold:      foldCase,
	}
	r.types = append(r.types, typeInfo{name: "null", mode: ModeNone})
	r.byName["null"] = TypeNull
	for k := KindBool; k < KindObject; k++ {
		r.mustAdd(k.String(), ModeValue, k)
	}
	r.mustAdd("object", ModeObject, KindObjectMap)
	r.mustAdd("inline", ModeInline, KindObjectMap)
	r.mustAdd("dynamic", ModeDynamic, KindNull)
	return r
}

func (r *Registry) mustAdd(name string, mode Mode, native Kind) Type {
	t, err := r.Add(name, mode, native)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Registry) key(name string) string {
	if r.fold {
		return strings.ToLower(name)
	}
	return name
}

// Add registers a type and returns its handle. Registering the same name
// again with the same mode and native kind returns the existing handle;
// any other redefinition fails with ErrTypeAlreadyExists.
func (r *Registry) Add(name string, mode Mode, native Kind) (Type, error) {
	if name == "" {
		return TypeNull, fmt.Errorf("%w: empty type name", ErrInvalidType)
	}
	if mode.IsMap() {
		native = KindObjectMap
	}
	k := r.key(name)
	if t, ok := r.byName[k]; ok {
		ti := r.types[t]
		if ti.mode == mode && ti.native == native {
			return t, nil
		}
		return TypeNull, fmt.Errorf("%w: %s (%s)", ErrTypeAlreadyExists, name, ti.mode)
	}
	if mode == ModeValue && native.Family() == FamilyNone {
		return TypeNull, fmt.Errorf("%w: value type %s needs a native kind", ErrInvalidType, name)
	}
	t := Type(len(r.types))
	r.types = append(r.types, typeInfo{name: k, mode: mode, native: native})
	r.byName[k] = t
	return t, nil
}

// Lookup resolves name through the redirect table, then the type table.
// It fails with ErrUnknownType when neither matches or the type's mode is
// ModeNone. A ModeDynamic type is returned as is; Interp.Type resolves it.
func (r *Registry) Lookup(name string) (Type, error) {
	k := r.key(name)
	for hops := 0; hops < 8; hops++ {
		to, ok := r.redirects[k]
		if !ok {
			break
		}
		k = to
	}
	t, ok := r.byName[k]
	if !ok || r.types[t].mode == ModeNone {
		return TypeNull, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Has reports whether name resolves to a usable type.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// AddRedirect makes alias resolve to target. Last write wins.
func (r *Registry) AddRedirect(alias, target string) {
	r.redirects[r.key(alias)] = r.key(target)
}

// Redirects returns the alias table sorted by alias.
func (r *Registry) Redirects() [][2]string {
	out := make([][2]string, 0, len(r.redirects))
	for a, t := range r.redirects {
		out = append(out, [2]string{a, t})
	}
	slices.SortFunc(out, func(x, y [2]string) int { return strings.Compare(x[0], y[0]) })
	return out
}

// AddDefault records the type of field when it is declared without one
// inside an object of type context (TypeNull for global defaults).
func (r *Registry) AddDefault(field string, context, t Type) {
	r.defaults[defaultKey{r.key(field), context}] = t
}

// Default returns the default type of field in context, falling back to the
// global default.
func (r *Registry) Default(field string, context Type) (Type, bool) {
	k := r.key(field)
	if t, ok := r.defaults[defaultKey{k, context}]; ok {
		return t, true
	}
	t, ok := r.defaults[defaultKey{k, TypeNull}]
	return t, ok
}

// HasDefault reports whether field has a default in context itself,
// ignoring global defaults.
func (r *Registry) HasDefault(field string, context Type) bool {
	_, ok := r.defaults[defaultKey{r.key(field), context}]
	return ok
}

func (r *Registry) valid(t Type) bool { return t >= 0 && int(t) < len(r.types) }

func (r *Registry) Name(t Type) string {
	if !r.valid(t) {
		return "null"
	}
	return r.types[t].name
}

func (r *Registry) Mode(t Type) Mode {
	if !r.valid(t) {
		return ModeNone
	}
	return r.types[t].mode
}

func (r *Registry) Native(t Type) Kind {
	if !r.valid(t) {
		return KindNull
	}
	return r.types[t].native
}

// Len is the number of registered types, including the null type.
func (r *Registry) Len() int { return len(r.types) }

// Types returns every usable type handle in registration order.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.types))
	for i, ti := range r.types {
		if ti.mode != ModeNone {
			out = append(out, Type(i))
		}
	}
	return out
}

// Defaults returns the default-type table as (context, field, type) rows
// sorted by context then field.
func (r *Registry) Defaults() []DefaultEntry {
	out := make([]DefaultEntry, 0, len(r.defaults))
	for k, t := range r.defaults {
		out = append(out, DefaultEntry{Field: k.field, Context: k.context, Type: t})
	}
	slices.SortFunc(out, func(a, b DefaultEntry) int {
		if c := strings.Compare(r.Name(a.Context), r.Name(b.Context)); c != 0 {
			return c
		}
		return strings.Compare(a.Field, b.Field)
	})
	return out
}

// DefaultEntry is one row of the default-type table.
type DefaultEntry struct {
	Field   string
	Context Type
	Type    Type
}
