package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	flagDryRun bool
	flagStats  bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file>...",
	Short: "Compile source files into map lumps",
	Long: "Interpret the source files in order into one map and write the lumps of\n" +
		"every selected format. Files ending in .dhlx or .dh are read as DHLX,\n" +
		"everything else as DDL.\n\n" +
		"A map with reported errors is still written and the command exits\n" +
		"non-zero; nothing is written once the error limit is reached.",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: sourceFileCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		log := newLogger()
		start := time.Now()
		b, err := compile(cfg, log, args, flagDryRun)
		if flagStats && b != nil {
			if serr := printStats(os.Stderr, b, time.Since(start)); err == nil {
				err = serr
			}
		}
		return err
	},
}

// bindCompileFlags registers every compile flag on fs. The root command
// and the compile command share them.
func bindCompileFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&flagDryRun, "dry-run", false, "list the files that would be written")
	fs.BoolVar(&flagStats, "stats", false, "print object counts, timing and memory use")
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, compileCmd} {
		bindInterpFlags(c.Flags(), &flagCfg)
		bindOutputFlags(c.Flags(), &flagCfg)
		bindCompileFlags(c.Flags())
	}
}
