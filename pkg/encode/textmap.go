package encode

import (
	"fmt"
	"strconv"
	"strings"

	"dhlx/pkg/ddl"
)

// udmfOrder is the block order of a TEXTMAP lump.
var udmfOrder = []string{"thing", "vertex", "linedef", "sidedef", "sector"}

// udmfRequired lists the fields UDMF readers insist on.
var udmfRequired = map[string][]string{
	"thing":   {"x", "y", "type"},
	"vertex":  {"x", "y"},
	"linedef": {"v1", "v2", "sidefront"},
	"sidedef": {"sector"},
	"sector":  {"texturefloor", "textureceiling"},
}

// blockWriter writes UDMF style text: "key = value;" assignments and
// "name { ... }" blocks.
type blockWriter struct {
	src       Source
	sb        strings.Builder
	precision int
	// terminator ends every assignment; ExtraData leaves it empty.
	terminator string
	// skipFalse drops false booleans, the UDMF default.
	skipFalse bool
}

func newBlockWriter(src Source, opts Options) *blockWriter {
	return &blockWriter{src: src, precision: opts.Precision, terminator: ";", skipFalse: true}
}

func (w *blockWriter) assign(indent int, key, value string) {
	fmt.Fprintf(&w.sb, "%s%s = %s%s\n", strings.Repeat("\t", indent), key, value, w.terminator)
}

// block writes one object as "header { fields }" with its exported fields
// in definition order. Volatile and private fields are compile-time only.
// Named fields holding indexed objects are written as the index; other
// map fields become nested blocks.
func (w *blockWriter) block(indent int, header string, o *ddl.Object) error {
	pad := strings.Repeat("\t", indent)
	fmt.Fprintf(&w.sb, "%s%s\n%s{\n", pad, header, pad)
	if m := o.Map(); m != nil {
		for key, child := range m.All() {
			if ddl.IsVolatileKey(key) || ddl.IsPrivateKey(key) {
				continue
			}
			if child.IsMap() {
				if key != "" && child.Index() >= 0 {
					w.assign(indent+1, key, strconv.Itoa(child.Index()))
					continue
				}
				name := key
				if name == "" {
					name = w.src.TypeName(child.Type())
				}
				if err := w.block(indent+1, name, child); err != nil {
					return err
				}
				continue
			}
			s, ok, err := w.literal(child.Value())
			if err != nil {
				return fmt.Errorf("%s: field %s: %w", header, key, err)
			}
			if ok {
				w.assign(indent+1, key, s)
			}
		}
	}
	fmt.Fprintf(&w.sb, "%s}\n", pad)
	return nil
}

// literal renders a scalar. ok is false for values that are not written.
func (w *blockWriter) literal(v ddl.Value) (string, bool, error) {
	switch v.Family() {
	case ddl.FamilyNone:
		return "", false, nil
	case ddl.FamilyBool:
		b, err := v.ToBool()
		if err != nil || !b && w.skipFalse {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	case ddl.FamilyInt:
		i, err := v.ToInt()
		return strconv.FormatInt(i, 10), err == nil, err
	case ddl.FamilyReal:
		return v.Format(w.precision), true, nil
	case ddl.FamilyString:
		s, err := v.ToString()
		return quote(s), err == nil, err
	case ddl.FamilyObject:
		if v.IsObjectRef() {
			i, err := v.ToInt()
			return strconv.FormatInt(i, 10), err == nil, err
		}
	}
	return "", false, fmt.Errorf("%w: cannot write %s", ErrOutOfRange, v.Kind())
}

// quote writes a UDMF string: double quotes with backslash escapes for
// quotes and backslashes only.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func (w *blockWriter) header(ns string) {
	fmt.Fprintf(&w.sb, "namespace = %s;\n", quote(ns))
}

// objects writes every indexed object of typeName, each followed by a
// comment with its index.
func (w *blockWriter) objects(typeName string, required []string) error {
	for _, o := range w.src.Objects(typeName) {
		if err := require(w.src, o, required...); err != nil {
			return err
		}
		w.sb.WriteByte('\n')
		if err := w.block(0, fmt.Sprintf("%s // %d", typeName, o.Index()), o); err != nil {
			return err
		}
	}
	return nil
}

func encodeTextMap(src Source, opts Options) ([]Lump, error) {
	w := newBlockWriter(src, opts)
	w.header(namespace(src, opts, "zdoom"))
	for _, t := range udmfOrder {
		if err := w.objects(t, udmfRequired[t]); err != nil {
			return nil, fmt.Errorf("TEXTMAP: %w", err)
		}
	}
	return []Lump{{Name: "TEXTMAP", Data: []byte(w.sb.String())}}, nil
}

func encodeDialogue(src Source, opts Options) ([]Lump, error) {
	w := newBlockWriter(src, opts)
	w.header(namespace(src, opts, "strife"))
	if err := w.objects("conversation", []string{"actor"}); err != nil {
		return nil, fmt.Errorf("DIALOGUE: %w", err)
	}
	return []Lump{{Name: "DIALOGUE", Data: []byte(w.sb.String())}}, nil
}
