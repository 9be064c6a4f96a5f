package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"dhlx/pkg/ddl"
)

var (
	flagNoTUI       bool
	flagPick        bool
	flagInspectType string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <file>...",
	Short: "Browse the object store of a compiled map",
	Long: "Compile the files without writing output and browse every indexed\n" +
		"object in a table. Enter shows an object's fields, esc goes back.",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: sourceFileCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		b, err := newBuild(cfg, newLogger())
		if err != nil {
			return err
		}
		if err := b.run(args); err != nil {
			return err
		}
		entries := storeEntries(b.ip, flagInspectType)

		switch {
		case flagPick:
			e, err := pickEntry(entries)
			if err != nil {
				return err
			}
			dumpObject(os.Stdout, b.ip, e.Key(), e.Obj, 0)
			return nil
		case flagNoTUI:
			printEntries(os.Stdout, entries)
			return nil
		}
		p := tea.NewProgram(newModel(b.ip, entries), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

// entry is one row of the object browser.
type entry struct {
	Type string
	Obj  *ddl.Object
}

// Key is the name an object was declared under, or its store slot.
func (e entry) Key() string {
	if n := e.Obj.Name(); n != "" {
		return n
	}
	return fmt.Sprintf("%s[%d]", e.Type, e.Obj.Index())
}

// storeEntries lists indexed objects in store order, optionally only
// those of one type (aliases accepted).
func storeEntries(ip *ddl.Interp, only string) []entry {
	var out []entry
	if only != "" {
		t, err := ip.Types.Lookup(only)
		if err != nil {
			return nil
		}
		for _, o := range ip.Store.List(t) {
			out = append(out, entry{Type: ip.TypeName(t), Obj: o})
		}
		return out
	}
	for _, t := range ip.Store.Types() {
		for _, o := range ip.Store.List(t) {
			out = append(out, entry{Type: ip.TypeName(t), Obj: o})
		}
	}
	return out
}

func printEntries(w io.Writer, entries []entry) {
	fmt.Fprintf(w, "%-12s %-6s %-20s %s\n", "TYPE", "INDEX", "NAME", "FIELDS")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, e := range entries {
		fmt.Fprintf(w, "%-12s %-6d %-20s %s\n", e.Type, e.Obj.Index(), e.Key(), summary(e.Obj, 60))
	}
}

// pickEntry lets the user choose one object with a fuzzy finder.
func pickEntry(entries []entry) (entry, error) {
	if len(entries) == 0 {
		return entry{}, fmt.Errorf("no objects to pick from")
	}
	idx, err := fuzzyfinder.Find(
		entries,
		func(i int) string {
			return fmt.Sprintf("%s #%d %s", entries[i].Type, entries[i].Obj.Index(), entries[i].Key())
		},
		fuzzyfinder.WithPromptString("Select object: "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i < 0 {
				return ""
			}
			return summary(entries[i].Obj, 0)
		}),
	)
	if err != nil {
		return entry{}, err
	}
	return entries[idx], nil
}

func init() {
	bindInterpFlags(inspectCmd.Flags(), &flagCfg)
	inspectCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "print a plain table instead of the interactive browser")
	inspectCmd.Flags().BoolVar(&flagPick, "pick", false, "choose one object with a fuzzy finder and print it")
	inspectCmd.Flags().StringVarP(&flagInspectType, "type", "t", "", "only list objects of this type")
}
