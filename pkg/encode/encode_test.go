package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"dhlx/pkg/ddl"
	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/ddlyaml"
	"dhlx/pkg/diag"
)

func mustContain(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}

func compileMap(t *testing.T, library, src string) *ddl.Interp {
	t.Helper()
	var buf bytes.Buffer
	ip := ddl.New(ddl.DefaultOptions(), diag.New(&buf))
	if _, err := ddlyaml.Load(ip, library); err != nil {
		t.Fatalf("load %s: %v", library, err)
	}
	if err := ip.RunSource("map.dhlx", src, scan.DHLX); err != nil {
		t.Fatalf("RunSource: %v\n%s", err, buf.String())
	}
	if ip.Errors() != 0 {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	return ip
}

func encodeAs(t *testing.T, format string, ip *ddl.Interp, opts Options) []Lump {
	t.Helper()
	f, err := Lookup(format)
	if err != nil {
		t.Fatal(err)
	}
	lumps, err := f.Encode(ip, opts)
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return lumps
}

func lumpData(t *testing.T, lumps []Lump, name string) []byte {
	t.Helper()
	for _, l := range lumps {
		if l.Name == name {
			return l.Data
		}
	}
	t.Fatalf("no %s lump", name)
	return nil
}

func le16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }

func TestDoom_VertexesAndLinedefs(t *testing.T) {
	ip := compileMap(t, "doom", `vertex A { x = 0; y = 0; }
vertex B { x = 16; y = 0; }
linedef { v1 = A; v2 = B; }`)
	lumps := encodeAs(t, "doom", ip, Options{})

	var names []string
	for _, l := range lumps {
		names = append(names, l.Name)
	}
	if got := strings.Join(names, " "); got != "THINGS LINEDEFS SIDEDEFS VERTEXES SECTORS" {
		t.Fatalf("unexpected lump order %s", got)
	}
	want := []byte{0, 0, 0, 0, 16, 0, 0, 0}
	if v := lumpData(t, lumps, "VERTEXES"); !bytes.Equal(v, want) {
		t.Fatalf("VERTEXES = % x, want % x", v, want)
	}
	l := lumpData(t, lumps, "LINEDEFS")
	if len(l) != DoomLineSize {
		t.Fatalf("expected one %d byte linedef, got %d bytes", DoomLineSize, len(l))
	}
	if le16(l, 0) != 0 || le16(l, 2) != 1 {
		t.Fatalf("v1/v2 = %d/%d, want 0/1", le16(l, 0), le16(l, 2))
	}
	if le16(l, 10) != 0xFFFF || le16(l, 12) != 0xFFFF {
		t.Fatalf("missing sides must encode as 0xFFFF, got % x", l[10:])
	}
}

func TestDoom_RenumberAfterDelete(t *testing.T) {
	ip := compileMap(t, "doom", `vertex a { x = 0; y = 0; }
vertex b { x = 8; y = 8; }
vertex c { x = 16; y = 0; }
linedef l { v1 = a; v2 = c; }
#delete b;`)
	lumps := encodeAs(t, "doom", ip, Options{})
	if v := lumpData(t, lumps, "VERTEXES"); len(v) != 2*VertexSize || le16(v, 4) != 16 {
		t.Fatalf("VERTEXES = % x", v)
	}
	if l := lumpData(t, lumps, "LINEDEFS"); le16(l, 2) != 1 {
		t.Fatalf("v2 must follow c to index 1, got %d", le16(l, 2))
	}
}

func TestDoom_SectorsAndSides(t *testing.T) {
	ip := compileMap(t, "doom", `sector s { id = 7; }
sidedef sd { sector = s; texturemiddle = "startan3"; offsetx = -8; }`)
	lumps := encodeAs(t, "doom", ip, Options{})

	sd := lumpData(t, lumps, "SIDEDEFS")
	if len(sd) != SideSize {
		t.Fatalf("SIDEDEFS has %d bytes", len(sd))
	}
	if int16(le16(sd, 0)) != -8 {
		t.Fatalf("offsetx = %d", int16(le16(sd, 0)))
	}
	if top := string(sd[4:12]); top != "-\x00\x00\x00\x00\x00\x00\x00" {
		t.Fatalf("missing texture must be '-', got %q", top)
	}
	if mid := string(sd[20:28]); mid != "STARTAN3" {
		t.Fatalf("texturemiddle = %q", mid)
	}
	if le16(sd, 28) != 0 {
		t.Fatalf("sector ref = %d", le16(sd, 28))
	}

	sec := lumpData(t, lumps, "SECTORS")
	if len(sec) != SectorSize {
		t.Fatalf("SECTORS has %d bytes", len(sec))
	}
	if le16(sec, 2) != 128 || le16(sec, 20) != 160 || le16(sec, 24) != 7 {
		t.Fatalf("unexpected sector % x", sec)
	}
	if floor := strings.TrimRight(string(sec[4:12]), "\x00"); floor != "FLOOR4_8" {
		t.Fatalf("floor texture = %q", floor)
	}
}

func TestThingFlags(t *testing.T) {
	tests := []struct {
		format string
		src    string
		want   uint16
	}{
		{"doom", `thing { type = 1; easy = true; ambush = true; }`, 0x0009},
		{"doom", `thing { type = 1; flags = 64; friend = true; }`, 0x00C0},
		{"strife", `thing { type = 1; standing = true; ally = true; }`, 0x0048},
		{"heretic", `thing { type = 1; notsingle = true; }`, 0x0010},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			ip := compileMap(t, tc.format, tc.src)
			th := lumpData(t, encodeAs(t, tc.format, ip, Options{}), "THINGS")
			if len(th) != DoomThingSize {
				t.Fatalf("THINGS has %d bytes", len(th))
			}
			if got := le16(th, 8); got != tc.want {
				t.Fatalf("flags = %#x, want %#x", got, tc.want)
			}
		})
	}
}

func TestHexen_Records(t *testing.T) {
	ip := compileMap(t, "hexen", `vertex a { x = 0; y = 0; }
vertex b { x = 0; y = 64; }
linedef { v1 = a; v2 = b; spac = 2; repeatspecial = true; special = 80; arg0 = 3; }
thing { id = 5; x = 1; y = -2; type = 3; single = true; special = 80; arg0 = 1; }`)
	lumps := encodeAs(t, "hexen", ip, Options{})

	l := lumpData(t, lumps, "LINEDEFS")
	if len(l) != HexenLineSize {
		t.Fatalf("LINEDEFS has %d bytes", len(l))
	}
	if got := le16(l, 4); got != 0x0A00 {
		t.Fatalf("flags = %#x, want 0xa00", got)
	}
	if l[6] != 80 || l[7] != 3 {
		t.Fatalf("special/arg0 = %d/%d", l[6], l[7])
	}

	th := lumpData(t, lumps, "THINGS")
	if len(th) != HexenThingSize {
		t.Fatalf("THINGS has %d bytes", len(th))
	}
	if le16(th, 0) != 5 || int16(le16(th, 4)) != -2 || le16(th, 12) != 0x0100 {
		t.Fatalf("unexpected thing % x", th)
	}
	if th[14] != 80 || th[15] != 1 {
		t.Fatalf("special/arg0 = %d/%d", th[14], th[15])
	}
}

func TestBinary_OutOfRange(t *testing.T) {
	ip := compileMap(t, "doom", `vertex v { x = 70000; y = 0; }`)
	f, _ := Lookup("doom")
	_, err := f.Encode(ip, Options{})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	mustContain(t, err.Error(), "VERTEXES")
}

func TestTextMap(t *testing.T) {
	ip := compileMap(t, "udmf", `vertex a { x = 0; y = 0; }
vertex b { x = 64; y = 0; }
sector s { special = 0; }
sidedef sd { sector = s; comment = "say \"hi\""; }
linedef { v1 = a; v2 = b; sidefront = sd; blocking = true; twosided = false; }
thing { x = 1; y = 2; type = 1; _note = 1; }`)
	out := string(lumpData(t, encodeAs(t, "udmf", ip, Options{Precision: 3}), "TEXTMAP"))

	mustContain(t, out, "namespace = \"zdoom\";\n")
	mustContain(t, out, "vertex // 1\n{\n\tx = 64.000;\n")
	mustContain(t, out, "\tv2 = 1;\n")
	mustContain(t, out, "\tsidefront = 0;\n")
	mustContain(t, out, "\tblocking = true;\n")
	mustContain(t, out, "\ttexturefloor = \"FLOOR4_8\";\n")
	mustContain(t, out, `comment = "say \"hi\"";`)
	if strings.Contains(out, "twosided") || strings.Contains(out, "_note") {
		t.Fatalf("false flags and volatile fields must not be written:\n%s", out)
	}
	if strings.Index(out, "thing // 0") > strings.Index(out, "vertex // 0") {
		t.Fatalf("things must come first:\n%s", out)
	}
}

func TestTextMap_RequiredFields(t *testing.T) {
	ip := compileMap(t, "udmf", `vertex a { x = 0; y = 0; } linedef { v1 = a; v2 = a; }`)
	f, _ := Lookup("udmf")
	_, err := f.Encode(ip, Options{})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	mustContain(t, err.Error(), "sidefront")
}

func TestTextMap_Namespace(t *testing.T) {
	ip := compileMap(t, "udmf", `namespace = "hexen";`)
	out := string(lumpData(t, encodeAs(t, "udmf", ip, Options{}), "TEXTMAP"))
	mustContain(t, out, `namespace = "hexen";`)

	out = string(lumpData(t, encodeAs(t, "udmf", ip, Options{Namespace: "eternity"}), "TEXTMAP"))
	mustContain(t, out, `namespace = "eternity";`)
}

func TestDialogue(t *testing.T) {
	ip := compileMap(t, "usdf", `conversation guard {
	actor = 3001;
	page {
		name = "Guard";
		dialog = "Halt!";
		choice { text = "Bye"; closedialog = true; }
	}
}`)
	out := string(lumpData(t, encodeAs(t, "usdf", ip, Options{}), "DIALOGUE"))
	mustContain(t, out, "namespace = \"strife\";\n")
	mustContain(t, out, "conversation // 0\n{\n\tactor = 3001;\n")
	mustContain(t, out, "\tpage\n\t{\n\t\tname = \"Guard\";\n")
	mustContain(t, out, "\t\tchoice\n\t\t{\n\t\t\ttext = \"Bye\";\n\t\t\tclosedialog = true;\n")
}

func TestExtraData(t *testing.T) {
	ip := compileMap(t, "extradata", `#scriptextradata { mapthing { recordnum = 99 } }
edthing { type = 3004; args = "1 2"; }
edline { recordnum = 4; special = 270; }
#script "NOTES.TXT" { keep me }`)
	f, _ := Lookup("extradata")
	lumps, err := f.Encode(ip, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lumps) != 6 || lumps[5].Name != "EXTRADATA" {
		t.Fatalf("expected the Doom lumps plus EXTRADATA, got %d lumps", len(lumps))
	}
	out := string(lumps[5].Data)
	mustContain(t, out, "recordnum = 99")
	mustContain(t, out, "mapthing\n{\n\trecordnum = 0\n\ttype = 3004\n\targs = { 1, 2 }\n}")
	mustContain(t, out, "linedef\n{\n\trecordnum = 4\n\tspecial = 270\n}")

	files := ScriptFiles(ip, f)
	if len(files) != 1 || files[0].Name != "NOTES.TXT" {
		t.Fatalf("extradata scripts are embedded, only NOTES.TXT remains: %+v", files)
	}
	doom, _ := Lookup("doom")
	if got := len(ScriptFiles(ip, doom)); got != 2 {
		t.Fatalf("doom writes every script buffer as a file, got %d", got)
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("quake"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if f, err := Lookup("UDMF"); err != nil || f.Name != "udmf" {
		t.Fatalf("lookup must ignore case, got %v %v", f.Name, err)
	}
	for _, f := range Formats() {
		if _, err := ddlyaml.Library(f.Library); err != nil {
			t.Fatalf("format %s names missing library %s: %v", f.Name, f.Library, err)
		}
	}
}
