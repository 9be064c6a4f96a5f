package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
)

const (
	examplesStartMarker = "@" + appName + "-examples-start"
	examplesEndMarker   = "@" + appName + "-examples-end"
)

var configUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the commented examples in an existing config directory",
	Long: "Rewrite the example section of config.yml and example.dhlx with the\n" +
		"one shipped in this build of dhlxc. The section runs from the\n" +
		"@dhlxc-examples-start comment to the @dhlxc-examples-end comment;\n" +
		"everything outside it is kept, and files without it are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			var err error
			if dir, err = resolveConfigDir(); err != nil {
				return err
			}
		}
		n, err := refreshExamples(dir, os.Stderr)
		if err == nil && n == 0 {
			fmt.Fprintln(os.Stderr, "everything up to date")
		}
		return err
	},
}

// refreshExamples brings the example sections under dir in line with the
// starter files and reports how many files it rewrote.
func refreshExamples(dir string, w io.Writer) (int, error) {
	starters := map[string][]byte{
		configFileName: initConfigYAML,
		"example.dhlx": initExampleDHLX,
	}
	n := 0
	for _, name := range sortedKeys(starters) {
		path := filepath.Join(dir, name)
		changed, err := updateExampleBlock(path, extractExampleBlock(starters[name]))
		if err != nil {
			return n, err
		}
		if changed {
			fmt.Fprintf(w, "updated %s\n", path)
			n++
		}
	}
	return n, nil
}

// isMarker matches a "#" or "//" comment line whose text is marker.
func isMarker(line []byte, marker string) bool {
	line = bytes.TrimSpace(line)
	for _, prefix := range []string{"#", "//"} {
		if rest, ok := bytes.CutPrefix(line, []byte(prefix)); ok {
			return string(bytes.TrimSpace(rest)) == marker
		}
	}
	return false
}

// exampleSpan finds the first start marker and the end marker after it.
// end is inclusive.
func exampleSpan(lines [][]byte) (start, end int, ok bool) {
	start = slices.IndexFunc(lines, func(l []byte) bool { return isMarker(l, examplesStartMarker) })
	if start < 0 {
		return 0, 0, false
	}
	off := slices.IndexFunc(lines[start:], func(l []byte) bool { return isMarker(l, examplesEndMarker) })
	if off < 0 {
		return 0, 0, false
	}
	return start, start + off, true
}

// extractExampleBlock returns the marker lines of content and everything
// between them, or nil when content has no complete section.
func extractExampleBlock(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))
	start, end, ok := exampleSpan(lines)
	if !ok {
		return nil
	}
	return bytes.Join(lines[start:end+1], []byte("\n"))
}

// updateExampleBlock rewrites the file at path when its example section
// differs from block. A missing file is not an error.
func updateExampleBlock(path string, block []byte) (bool, error) {
	if block == nil {
		return false, nil
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	out, changed := replaceExampleBlock(content, block)
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// replaceExampleBlock swaps the example section of content for block.
func replaceExampleBlock(content, block []byte) ([]byte, bool) {
	lines := bytes.Split(content, []byte("\n"))
	start, end, ok := exampleSpan(lines)
	if !ok || bytes.Equal(bytes.Join(lines[start:end+1], []byte("\n")), block) {
		return content, false
	}
	out := slices.Concat(lines[:start], bytes.Split(block, []byte("\n")), lines[end+1:])
	return bytes.Join(out, []byte("\n")), true
}

func init() {
	configUpdateCmd.Flags().String("dir", "", "config directory to update (default: the resolved config dir)")
}
