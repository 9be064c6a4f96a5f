// Package encode turns the object store of a finished compilation into map
// lumps: the binary Doom family formats, UDMF TEXTMAP, USDF dialogue and
// Eternity ExtraData.
package encode

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"dhlx/pkg/ddl"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrMissingField  = errors.New("missing required field")
	ErrOutOfRange    = errors.New("value out of range")
)

// Source is the read side of an interpreter the encoders need.
type Source interface {
	Objects(typeName string) []*ddl.Object
	TypeName(t ddl.Type) string
	Find(n ddl.Name) (*ddl.Object, bool)
	Scripts() []*ddl.Script
}

// Lump is one named output blob.
type Lump struct {
	Name string
	Data []byte
}

// Options tune the text encoders.
type Options struct {
	// Namespace overrides the namespace written to UDMF and USDF lumps.
	Namespace string
	// Precision is the number of fractional digits written for reals.
	Precision int
}

// Format is one output format.
type Format struct {
	Name        string
	Description string
	// Library is the table that declares the format's types.
	Library string
	// Namespace is written when neither the options nor the map set one.
	Namespace string
	// Embeds lists script kinds the format writes into its own lumps
	// instead of separate files.
	Embeds []ddl.ScriptKind
	Encode func(src Source, opts Options) ([]Lump, error)
}

var formats = []Format{
	{Name: "doom", Description: "Doom binary map lumps", Library: "doom", Encode: encodeDoom(doomThingFlags, doomLineFlags)},
	{Name: "heretic", Description: "Heretic binary map lumps", Library: "heretic", Encode: encodeDoom(hereticThingFlags, doomLineFlags)},
	{Name: "strife", Description: "Strife binary map lumps", Library: "strife", Encode: encodeDoom(strifeThingFlags, strifeLineFlags)},
	{Name: "hexen", Description: "Hexen binary map lumps", Library: "hexen", Encode: encodeHexen},
	{Name: "udmf", Description: "UDMF TEXTMAP", Library: "udmf", Namespace: "zdoom", Encode: encodeTextMap},
	{Name: "usdf", Description: "USDF DIALOGUE", Library: "usdf", Namespace: "strife", Encode: encodeDialogue},
	{
		Name: "extradata", Description: "Doom binary lumps plus Eternity EXTRADATA", Library: "extradata",
		Embeds: []ddl.ScriptKind{ddl.ScriptExtraData}, Encode: encodeExtraData,
	},
}

// Formats returns every known output format.
func Formats() []Format { return slices.Clone(formats) }

// Lookup returns the format called name.
func Lookup(name string) (Format, error) {
	for _, f := range formats {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// ScriptFiles returns the script buffers of src that f does not embed,
// one lump per buffer.
func ScriptFiles(src Source, f Format) []Lump {
	var out []Lump
	for _, s := range src.Scripts() {
		if slices.Contains(f.Embeds, s.Kind) {
			continue
		}
		out = append(out, Lump{Name: s.Name, Data: []byte(s.Text())})
	}
	return out
}

// namespace picks the namespace for text formats: the option, then a
// global "namespace" field, then the format default.
func namespace(src Source, opts Options, def string) string {
	if opts.Namespace != "" {
		return opts.Namespace
	}
	if o, ok := src.Find(ddl.NewName("namespace")); ok && !o.IsMap() {
		if s, err := o.Value().ToString(); err == nil && s != "" {
			return s
		}
	}
	return def
}

// fields reads typed fields off objects. The first failure is kept and
// later reads return zero values.
type fields struct {
	src Source
	err error
}

func (r *fields) fail(o *ddl.Object, key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s %d: field %s: %w", r.src.TypeName(o.Type()), o.Index(), key, err)
	}
}

// integer reads key as an integer. Map fields yield their store index.
func (r *fields) integer(o *ddl.Object, key string, def int64) int64 {
	f, ok := o.Field(key)
	if !ok {
		return def
	}
	if f.IsMap() {
		return int64(f.Index())
	}
	if f.Value().IsNull() {
		return def
	}
	i, err := f.Value().ToInt()
	if err != nil {
		r.fail(o, key, err)
	}
	return i
}

// ref reads a cross-reference: the index of the referenced object, or -1.
func (r *fields) ref(o *ddl.Object, key string) int64 { return r.integer(o, key, -1) }

func (r *fields) flag(o *ddl.Object, key string) bool {
	f, ok := o.Field(key)
	if !ok || f.IsMap() {
		return false
	}
	b, err := f.Value().ToBool()
	if err != nil {
		r.fail(o, key, err)
	}
	return b
}

func (r *fields) text(o *ddl.Object, key, def string) string {
	f, ok := o.Field(key)
	if !ok || f.IsMap() || f.Value().IsNull() {
		return def
	}
	s, err := f.Value().ToString()
	if err != nil {
		r.fail(o, key, err)
	}
	return s
}

// flagBit names one bit of a flags word.
type flagBit struct {
	field string
	bit   int64
}

// flags ORs the raw "flags" field with the bits of every true flag field.
func (r *fields) flags(o *ddl.Object, bits []flagBit) int64 {
	v := r.integer(o, "flags", 0)
	for _, b := range bits {
		if r.flag(o, b.field) {
			v |= b.bit
		}
	}
	return v
}

func require(src Source, o *ddl.Object, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := o.Field(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s %d: %w: %s", src.TypeName(o.Type()), o.Index(), ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}
