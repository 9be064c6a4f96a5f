package main

import (
	"os"

	"dhlx/pkg/diag"
	"dhlx/pkg/lib"
)

var (
	flagVerbose   bool
	flagQuiet     bool
	flagConfigDir string
)

func main() {
	rootCmd.AddCommand(compileCmd, typesCmd, replCmd, inspectCmd, configCmd)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "show debug diagnostics")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "hide info diagnostics")
	pf.StringVar(&flagConfigDir, "config-dir", "",
		"config directory (default: $"+envConfigDir+" > $XDG_CONFIG_HOME/"+appName+" > ~/.config/"+appName+")")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		lib.Exit(err)
	}
}

// newLogger returns the stderr diagnostic logger at the verbosity the
// persistent flags ask for.
func newLogger() *diag.Logger {
	log := diag.New(os.Stderr)
	switch {
	case flagVerbose:
		log.SetLevel(diag.LevelDebug)
	case flagQuiet:
		log.SetLevel(diag.LevelWarn)
	}
	return log
}
