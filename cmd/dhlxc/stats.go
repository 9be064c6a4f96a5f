package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"

	"dhlx/pkg/diag"
)

// printStats writes a summary of a finished build: object counts per
// type, diagnostics, wall time and the resident memory of this process.
func printStats(w io.Writer, b *build, elapsed time.Duration) error {
	counts := make(map[string]int)
	for _, t := range b.ip.Store.Types() {
		counts[b.ip.TypeName(t)] = len(b.ip.Store.List(t))
	}
	fmt.Fprintf(w, "%-16s %8s\n", "TYPE", "OBJECTS")
	for _, name := range sortedKeys(counts) {
		fmt.Fprintf(w, "%-16s %8d\n", name, counts[name])
	}
	fmt.Fprintf(w, "%-16s %8d\n", "total", b.ip.Store.Len())
	fmt.Fprintf(w, "files: %d  scripts: %d  warnings: %d  errors: %d\n",
		len(b.ip.Files()), len(b.ip.Scripts()), b.log.Count(diag.LevelWarn), b.ip.Errors())

	rss, err := residentMemory()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "time: %s  rss: %s\n", elapsed.Round(time.Millisecond), humanize.IBytes(rss))
	return nil
}

func residentMemory() (uint64, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("unable to find PID %d: %w", pid, err)
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("reading memory of PID %d: %w", pid, err)
	}
	return mem.RSS, nil
}
