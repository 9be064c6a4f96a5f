package encode

import (
	"fmt"
	"strconv"
	"strings"

	"dhlx/pkg/ddl"
)

// extraRecords maps record types to their ExtraData section names.
var extraRecords = []struct{ typeName, section string }{
	{"edthing", "mapthing"},
	{"edline", "linedef"},
	{"edsector", "sector"},
}

// encodeExtraData writes the Doom lumps of the map followed by an
// EXTRADATA lump: the #scriptextradata text, then one record per edthing,
// edline and edsector object. A record without a recordnum takes its store
// index.
func encodeExtraData(src Source, opts Options) ([]Lump, error) {
	lumps, err := encodeDoom(doomThingFlags, doomLineFlags)(src, opts)
	if err != nil {
		return nil, err
	}
	w := newBlockWriter(src, opts)
	w.terminator, w.skipFalse = "", false
	for _, s := range src.Scripts() {
		if s.Kind == ddl.ScriptExtraData {
			w.sb.WriteString(s.Text())
		}
	}
	for _, r := range extraRecords {
		for _, o := range src.Objects(r.typeName) {
			if err := w.record(r.section, o); err != nil {
				return nil, fmt.Errorf("EXTRADATA: %w", err)
			}
		}
	}
	return append(lumps, Lump{Name: "EXTRADATA", Data: []byte(w.sb.String())}), nil
}

func (w *blockWriter) record(section string, o *ddl.Object) error {
	f := fields{src: w.src}
	num := f.integer(o, "recordnum", int64(o.Index()))
	if f.err != nil {
		return f.err
	}
	fmt.Fprintf(&w.sb, "\n%s\n{\n", section)
	w.assign(1, "recordnum", strconv.FormatInt(num, 10))
	for key, child := range o.Map().All() {
		if key == "" || key == "recordnum" || child.IsMap() || ddl.IsVolatileKey(key) || ddl.IsPrivateKey(key) {
			continue
		}
		if key == "args" {
			w.assign(1, key, argList(child.Value().String()))
			continue
		}
		s, ok, err := w.literal(child.Value())
		if err != nil {
			return fmt.Errorf("%s %d: field %s: %w", section, num, key, err)
		}
		if ok {
			w.assign(1, key, s)
		}
	}
	w.sb.WriteString("}\n")
	return nil
}

// argList renders an args field as a braced list; "1 2 3", "1, 2, 3" and
// "{1,2,3}" all give "{ 1, 2, 3 }".
func argList(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "{}")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	return "{ " + strings.Join(parts, ", ") + " }"
}
