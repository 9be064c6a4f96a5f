package encode

import (
	"encoding/binary"
	"fmt"
	"strings"

	"dhlx/pkg/ddl"
)

// Record sizes of the binary map lumps.
const (
	DoomThingSize   = 10
	DoomLineSize    = 14
	HexenThingSize  = 20
	HexenLineSize   = 16
	SideSize        = 30
	VertexSize      = 4
	SectorSize      = 26
	nameWidth       = 8
	noTexture       = "-"
	maxHexenSpecial = 255
)

var (
	doomThingFlags = []flagBit{
		{"easy", 0x0001}, {"medium", 0x0002}, {"hard", 0x0004}, {"ambush", 0x0008},
		{"notsingle", 0x0010}, {"notdm", 0x0020}, {"notcoop", 0x0040}, {"friend", 0x0080},
	}
	hereticThingFlags = doomThingFlags[:5]
	strifeThingFlags  = []flagBit{
		{"easy", 0x0001}, {"medium", 0x0002}, {"hard", 0x0004}, {"standing", 0x0008},
		{"notsingle", 0x0010}, {"ambush", 0x0020}, {"ally", 0x0040},
		{"translucent", 0x0100}, {"invisible", 0x0200},
	}
	hexenThingFlags = []flagBit{
		{"easy", 0x0001}, {"medium", 0x0002}, {"hard", 0x0004}, {"ambush", 0x0008},
		{"dormant", 0x0010}, {"fighter", 0x0020}, {"cleric", 0x0040}, {"mage", 0x0080},
		{"single", 0x0100}, {"coop", 0x0200}, {"dm", 0x0400},
	}

	commonLineFlags = []flagBit{
		{"blocking", 0x0001}, {"blockmonsters", 0x0002}, {"twosided", 0x0004},
		{"dontpegtop", 0x0008}, {"dontpegbottom", 0x0010}, {"secret", 0x0020},
		{"blocksound", 0x0040}, {"dontdraw", 0x0080}, {"mapped", 0x0100},
	}
	doomLineFlags   = append(commonLineFlags[:9:9], flagBit{"passuse", 0x0200})
	strifeLineFlags = append(commonLineFlags[:9:9],
		flagBit{"jumpover", 0x0200}, flagBit{"blockfloaters", 0x0400},
		flagBit{"translucent", 0x0800}, flagBit{"translucent75", 0x1000})
	hexenLineFlags = append(commonLineFlags[:9:9], flagBit{"repeatspecial", 0x0200})
)

// writer appends little-endian records and keeps the first range error.
type writer struct {
	fields
	buf []byte
}

// word writes a 16-bit value. Both signed and unsigned readings are
// accepted so that -1 and 0xFFFF both mean "no reference".
func (w *writer) word(o *ddl.Object, key string, v int64) {
	if v < -0x8000 || v > 0xFFFF {
		w.fail(o, key, fmt.Errorf("%w: %d does not fit 16 bits", ErrOutOfRange, v))
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
}

func (w *writer) octet(o *ddl.Object, key string, v int64) {
	if v < -0x80 || v > 0xFF {
		w.fail(o, key, fmt.Errorf("%w: %d does not fit 8 bits", ErrOutOfRange, v))
	}
	w.buf = append(w.buf, uint8(v))
}

// name writes an 8-byte, zero padded, upper case lump name.
func (w *writer) name(s string) {
	s = strings.ToUpper(s)
	if len(s) > nameWidth {
		s = s[:nameWidth]
	}
	var b [nameWidth]byte
	copy(b[:], s)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) intWord(o *ddl.Object, key string, def int64) {
	w.word(o, key, w.integer(o, key, def))
}

// tag reads the tag of a line or sector: "id", falling back to "tag".
func (w *writer) tag(o *ddl.Object) int64 {
	if _, ok := o.Field("id"); ok {
		return w.integer(o, "id", 0)
	}
	return w.integer(o, "tag", 0)
}

func (w *writer) lump(name string) (Lump, error) {
	if w.err != nil {
		return Lump{}, fmt.Errorf("%s: %w", name, w.err)
	}
	return Lump{Name: name, Data: w.buf}, nil
}

func newWriter(src Source, n, size int) *writer {
	return &writer{fields: fields{src: src}, buf: make([]byte, 0, n*size)}
}

// lumpFunc encodes every object of one type into one lump.
type lumpFunc func(src Source) (Lump, error)

func runLumps(src Source, fns ...lumpFunc) ([]Lump, error) {
	out := make([]Lump, 0, len(fns))
	for _, fn := range fns {
		l, err := fn(src)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func encodeDoom(thingFlags, lineFlags []flagBit) func(Source, Options) ([]Lump, error) {
	return func(src Source, _ Options) ([]Lump, error) {
		return runLumps(src, doomThings(thingFlags), doomLines(lineFlags), sides, vertexes, sectors)
	}
}

func encodeHexen(src Source, _ Options) ([]Lump, error) {
	return runLumps(src, hexenThings, hexenLines, sides, vertexes, sectors)
}

func doomThings(bits []flagBit) lumpFunc {
	return func(src Source) (Lump, error) {
		list := src.Objects("thing")
		w := newWriter(src, len(list), DoomThingSize)
		for _, o := range list {
			w.intWord(o, "x", 0)
			w.intWord(o, "y", 0)
			w.intWord(o, "angle", 0)
			w.intWord(o, "type", 0)
			w.word(o, "flags", w.flags(o, bits))
		}
		return w.lump("THINGS")
	}
}

func hexenThings(src Source) (Lump, error) {
	list := src.Objects("thing")
	w := newWriter(src, len(list), HexenThingSize)
	for _, o := range list {
		w.intWord(o, "id", 0)
		w.intWord(o, "x", 0)
		w.intWord(o, "y", 0)
		w.intWord(o, "height", 0)
		w.intWord(o, "angle", 0)
		w.intWord(o, "type", 0)
		w.word(o, "flags", w.flags(o, hexenThingFlags))
		w.octet(o, "special", w.integer(o, "special", 0))
		hexenArgs(w, o)
	}
	return w.lump("THINGS")
}

func hexenArgs(w *writer, o *ddl.Object) {
	for i := range 5 {
		key := fmt.Sprintf("arg%d", i)
		w.octet(o, key, w.integer(o, key, 0))
	}
}

func doomLines(bits []flagBit) lumpFunc {
	return func(src Source) (Lump, error) {
		list := src.Objects("linedef")
		w := newWriter(src, len(list), DoomLineSize)
		for _, o := range list {
			w.word(o, "v1", w.ref(o, "v1"))
			w.word(o, "v2", w.ref(o, "v2"))
			w.word(o, "flags", w.flags(o, bits))
			w.intWord(o, "special", 0)
			w.word(o, "id", w.tag(o))
			w.word(o, "sidefront", w.ref(o, "sidefront"))
			w.word(o, "sideback", w.ref(o, "sideback"))
		}
		return w.lump("LINEDEFS")
	}
}

func hexenLines(src Source) (Lump, error) {
	list := src.Objects("linedef")
	w := newWriter(src, len(list), HexenLineSize)
	for _, o := range list {
		w.word(o, "v1", w.ref(o, "v1"))
		w.word(o, "v2", w.ref(o, "v2"))
		flags := w.flags(o, hexenLineFlags)
		spac := w.integer(o, "spac", 0)
		if spac < 0 || spac > 7 {
			w.fail(o, "spac", fmt.Errorf("%w: activation %d is not 0-7", ErrOutOfRange, spac))
		}
		w.word(o, "flags", flags|spac<<10)
		special := w.integer(o, "special", 0)
		if special > maxHexenSpecial {
			w.fail(o, "special", fmt.Errorf("%w: special %d", ErrOutOfRange, special))
		}
		w.octet(o, "special", special)
		hexenArgs(w, o)
		w.word(o, "sidefront", w.ref(o, "sidefront"))
		w.word(o, "sideback", w.ref(o, "sideback"))
	}
	return w.lump("LINEDEFS")
}

func sides(src Source) (Lump, error) {
	list := src.Objects("sidedef")
	w := newWriter(src, len(list), SideSize)
	for _, o := range list {
		w.intWord(o, "offsetx", 0)
		w.intWord(o, "offsety", 0)
		w.name(w.text(o, "texturetop", noTexture))
		w.name(w.text(o, "texturebottom", noTexture))
		w.name(w.text(o, "texturemiddle", noTexture))
		w.word(o, "sector", w.ref(o, "sector"))
	}
	return w.lump("SIDEDEFS")
}

func vertexes(src Source) (Lump, error) {
	list := src.Objects("vertex")
	w := newWriter(src, len(list), VertexSize)
	for _, o := range list {
		w.intWord(o, "x", 0)
		w.intWord(o, "y", 0)
	}
	return w.lump("VERTEXES")
}

func sectors(src Source) (Lump, error) {
	list := src.Objects("sector")
	w := newWriter(src, len(list), SectorSize)
	for _, o := range list {
		w.intWord(o, "heightfloor", 0)
		w.intWord(o, "heightceiling", 0)
		w.name(w.text(o, "texturefloor", noTexture))
		w.name(w.text(o, "textureceiling", noTexture))
		w.intWord(o, "lightlevel", 0)
		w.intWord(o, "special", 0)
		w.word(o, "id", w.tag(o))
	}
	return w.lump("SECTORS")
}
