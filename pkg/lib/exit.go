// Package lib holds process helpers shared by the commands.
package lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Exit prints the error and exits the program with code 1
func Exit(err error) {
	report(os.Stderr, filepath.Base(os.Args[0]), err)
	os.Exit(1)
}

// report writes "Error: ..." and, for command line mistakes caught by the
// flag parser, a pointer to the help text.
func report(w io.Writer, app string, err error) {
	fmt.Fprintln(w, "Error:", err)
	if isUsageError(err) {
		fmt.Fprintf(w, "Run '%s --help' for usage.\n", app)
	}
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, p := range []string{"unknown flag:", "unknown shorthand flag:", "unknown command", "flag needs an argument", "invalid argument", "accepts ", "requires at least"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
