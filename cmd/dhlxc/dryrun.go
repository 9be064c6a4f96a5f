package main

import (
	"fmt"
	"io"
	"sort"
)

// dryRunOutputs prints the files a build would write, with their sizes.
func dryRunOutputs(w io.Writer, outs []output) {
	var total int
	for _, o := range outs {
		fmt.Fprintf(w, "[dry-run] write %s (%d bytes)\n", o.Path, len(o.Data))
		total += len(o.Data)
	}
	fmt.Fprintf(w, "[dry-run] %d files, %d bytes\n", len(outs), total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
