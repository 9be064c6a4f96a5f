package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"dhlx/pkg/ddl"
)

var typesCmd = &cobra.Command{
	Use:   "types [flags] [file]...",
	Short: "List the types, aliases, default types and functions in effect",
	Long: "Load the library tables of the selected formats, interpret any files\n" +
		"given, and print the resulting type registry and user functions.",
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
		printRegistry(os.Stdout, b.ip)
		return nil
	},
}

func printRegistry(w io.Writer, ip *ddl.Interp) {
	r := ip.Types
	fmt.Fprintf(w, "%-16s %-15s %s\n", "TYPE", "MODE", "NATIVE")
	fmt.Fprintln(w, strings.Repeat("-", 44))
	for _, t := range r.Types() {
		native := ""
		if r.Mode(t) == ddl.ModeValue {
			native = r.Native(t).String()
		}
		fmt.Fprintf(w, "%-16s %-15s %s\n", r.Name(t), r.Mode(t), native)
	}

	if aliases := r.Redirects(); len(aliases) > 0 {
		fmt.Fprintf(w, "\n%-16s %s\n", "ALIAS", "TYPE")
		fmt.Fprintln(w, strings.Repeat("-", 44))
		for _, a := range aliases {
			fmt.Fprintf(w, "%-16s %s\n", a[0], a[1])
		}
	}

	if defs := r.Defaults(); len(defs) > 0 {
		fmt.Fprintf(w, "\n%-16s %-16s %s\n", "CONTEXT", "FIELD", "TYPE")
		fmt.Fprintln(w, strings.Repeat("-", 44))
		for _, d := range defs {
			ctx := r.Name(d.Context)
			if d.Context == ddl.TypeNull {
				ctx = "(global)"
			}
			fmt.Fprintf(w, "%-16s %-16s %s\n", ctx, d.Field, r.Name(d.Type))
		}
	}

	var fns []string
	for _, f := range []ddl.Family{ddl.FamilyBool, ddl.FamilyInt, ddl.FamilyReal, ddl.FamilyString} {
		for _, fn := range ip.Functions(f) {
			fns = append(fns, fmt.Sprintf("%-8s %s %s(%s)", f, r.Name(fn.Return), fn.Name, paramList(fn.Params)))
		}
	}
	if len(fns) > 0 {
		slices.Sort(fns)
		fmt.Fprintf(w, "\n%-8s %s\n", "FAMILY", "FUNCTION")
		fmt.Fprintln(w, strings.Repeat("-", 44))
		for _, s := range fns {
			fmt.Fprintln(w, s)
		}
	}
}

func paramList(ps []ddl.Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strings.TrimSpace(p.Type + " " + p.Name)
	}
	return strings.Join(parts, ", ")
}

func init() {
	bindInterpFlags(typesCmd.Flags(), &flagCfg)
}
