package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Compile DDL and DHLX level sources into map lumps",
	Long: appName + " reads level descriptions written in DDL or DHLX and writes the\n" +
		"map lumps of one or more output formats (Doom, Heretic, Hexen, Strife,\n" +
		"UDMF, USDF and ExtraData).\n\n" +
		"Defaults for every compile option come from config.yml in the config\n" +
		"directory; flags given on the command line win.",
	// A bare "dhlxc file.dhlx" compiles.
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return compileCmd.RunE(cmd, args)
	},
	ValidArgsFunction: sourceFileCompletion,
}

// sourceFileCompletion completes DDL and DHLX source files.
func sourceFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"ddl", "dhlx", "dh"}, cobra.ShellCompDirectiveFilterFileExt
}
