package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractExampleBlock(t *testing.T) {
	for name, starter := range map[string][]byte{"config": initConfigYAML, "example": initExampleDHLX} {
		t.Run(name, func(t *testing.T) {
			block := extractExampleBlock(starter)
			if block == nil {
				t.Fatal("starter file has no example block")
			}
			lines := bytes.Split(block, []byte("\n"))
			if !isMarker(lines[0], examplesStartMarker) || !isMarker(lines[len(lines)-1], examplesEndMarker) {
				t.Fatalf("block must span the markers:\n%s", block)
			}
		})
	}
}

func TestReplaceExampleBlock(t *testing.T) {
	newBlock := []byte("// @dhlxc-examples-start\n// new\n// @dhlxc-examples-end")
	tests := []struct {
		name    string
		content string
		want    string
		changed bool
	}{
		{
			name:    "replaces",
			content: "keep\n// @dhlxc-examples-start\n// old\n// @dhlxc-examples-end\ntail\n",
			want:    "keep\n// @dhlxc-examples-start\n// new\n// @dhlxc-examples-end\ntail\n",
			changed: true,
		},
		{
			name:    "up to date",
			content: "keep\n// @dhlxc-examples-start\n// new\n// @dhlxc-examples-end\n",
			want:    "keep\n// @dhlxc-examples-start\n// new\n// @dhlxc-examples-end\n",
		},
		{
			name:    "no markers",
			content: "vertex a { x = 0; y = 0; }\n",
			want:    "vertex a { x = 0; y = 0; }\n",
		},
		{
			name:    "unterminated",
			content: "// @dhlxc-examples-start\n// old\n",
			want:    "// @dhlxc-examples-start\n// old\n",
		},
		{
			name:    "markers reversed",
			content: "// @dhlxc-examples-end\n// @dhlxc-examples-start\n",
			want:    "// @dhlxc-examples-end\n// @dhlxc-examples-start\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := replaceExampleBlock([]byte(tt.content), newBlock)
			if changed != tt.changed {
				t.Fatalf("changed = %v, want %v", changed, tt.changed)
			}
			if string(got) != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestUpdateExampleBlock_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	writeFile(t, path, "map_name: E1M1\n# @dhlxc-examples-start\n# stale\n# @dhlxc-examples-end\n")

	changed, err := updateExampleBlock(path, extractExampleBlock(initConfigYAML))
	if err != nil || !changed {
		t.Fatalf("changed = %v, err = %v", changed, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, string(data), "map_name: E1M1\n")
	mustContain(t, string(data), "# libraries: [doom]")

	changed, err = updateExampleBlock(filepath.Join(dir, "absent.yml"), []byte("x"))
	if err != nil || changed {
		t.Fatalf("a missing file is skipped, changed = %v, err = %v", changed, err)
	}
}

func TestRefreshExamples(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), "# @dhlxc-examples-start\n# stale\n# @dhlxc-examples-end\n")
	writeFile(t, filepath.Join(dir, "example.dhlx"), "vertex a { x = 0; y = 0; }\n")

	var out bytes.Buffer
	n, err := refreshExamples(dir, &out)
	if err != nil || n != 1 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
	mustContain(t, out.String(), "updated "+filepath.Join(dir, configFileName))

	n, err = refreshExamples(dir, &out)
	if err != nil || n != 0 {
		t.Fatalf("a second run must change nothing, n = %d, err = %v", n, err)
	}
}

func TestRenderConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.MapName = "E2M3"
	cfg.Formats = []string{"udmf"}
	out, err := renderConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, string(out), configHeader)
	mustContain(t, string(out), "map_name: E2M3\n")
	mustContain(t, string(out), "# @dhlxc-examples-end\n")

	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, string(out))
	back, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.MapName != "E2M3" || back.Formats[0] != "udmf" || back.Precision != cfg.Precision {
		t.Fatalf("rendered config does not read back: %+v", back)
	}
}

func TestWriteInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.dhlx")
	if err := writeInitFile(path, initExampleDHLX, false); err != nil {
		t.Fatal(err)
	}
	err := writeInitFile(path, initExampleDHLX, false)
	if err == nil {
		t.Fatal("expected an error for an existing file")
	}
	mustContain(t, err.Error(), "--force")
	if err := writeInitFile(path, []byte("x"), true); err != nil {
		t.Fatal(err)
	}
}
