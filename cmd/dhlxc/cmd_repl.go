package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"dhlx/pkg/ddl"
	"dhlx/pkg/ddl/scan"
)

var flagReplDDL bool

var replCmd = &cobra.Command{
	Use:   "repl [flags] [file]...",
	Short: "Interpret statements interactively",
	Long: "Start an interactive session against a fresh map with the selected\n" +
		"libraries loaded. Files given are interpreted first.\n\n" +
		"Lines are DHLX statements (DDL with --ddl); a statement left with an\n" +
		"open brace continues on the next line. Session commands:\n" +
		"  ?<expr>      evaluate an expression and print its type and value\n" +
		"  :dump [name] print an object, or the whole map\n" +
		"  :types       print the type registry\n" +
		"  :quit        leave",
	ValidArgsFunction: sourceFileCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		// A typo must not end the session.
		cfg.ErrorLimit = 0
		b, err := newBuild(cfg, newLogger())
		if err != nil {
			return err
		}
		for _, f := range args {
			if err := b.ip.RunFile(f); err != nil {
				return err
			}
		}
		syntax := scan.DHLX
		if flagReplDDL {
			syntax = scan.DDL
		}
		return repl(b.ip, syntax)
	},
}

func historyFile() string {
	dir, err := resolveConfigDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func repl(ip *ddl.Interp, syntax scan.Syntax) error {
	const prompt, more = appName + "> ", "... "
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(":dump"), readline.PcItem(":types"), readline.PcItem(":quit"),
		),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var pending strings.Builder
	line := 0
	for {
		text, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			rl.SetPrompt(prompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if pending.Len() == 0 {
			done, err := replCommand(rl.Stdout(), ip, strings.TrimSpace(text))
			if done {
				if errors.Is(err, errQuit) {
					return nil
				}
				if err != nil {
					fmt.Fprintln(rl.Stderr(), "Error:", err)
				}
				continue
			}
		}
		pending.WriteString(text)
		pending.WriteByte('\n')
		if braceDepth(pending.String()) > 0 {
			rl.SetPrompt(more)
			continue
		}
		line++
		if err := ip.RunSource(fmt.Sprintf("<repl:%d>", line), pending.String(), syntax); err != nil {
			fmt.Fprintln(rl.Stderr(), "Error:", err)
		}
		pending.Reset()
		rl.SetPrompt(prompt)
	}
}

var errQuit = errors.New("quit")

// replCommand handles the session commands. done is false for lines that
// are source text.
func replCommand(w io.Writer, ip *ddl.Interp, text string) (done bool, err error) {
	switch {
	case text == "":
		return true, nil
	case text == ":quit" || text == ":q":
		return true, errQuit
	case text == ":types":
		printRegistry(w, ip)
		return true, nil
	case text == ":dump" || strings.HasPrefix(text, ":dump "):
		name := strings.TrimSpace(strings.TrimPrefix(text, ":dump"))
		if name == "" {
			dumpObject(w, ip, "global", ip.Root, 0)
			return true, nil
		}
		o, err := ip.Get(ddl.ParseName(name))
		if err != nil {
			return true, err
		}
		dumpObject(w, ip, name, o, 0)
		return true, nil
	case strings.HasPrefix(text, "?"):
		t, v, err := ip.Infer(text[1:])
		if err != nil {
			return true, err
		}
		fmt.Fprintf(w, "%s = %s\n", ip.TypeName(t), describeValue(v))
		return true, nil
	case strings.HasPrefix(text, ":"):
		return true, fmt.Errorf("unknown command %s (try :dump, :types, :quit)", text)
	}
	return false, nil
}

// braceDepth counts unclosed braces outside string literals.
func braceDepth(src string) int {
	depth := 0
	inString, escaped := false, false
	for _, r := range src {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case !inString && r == '{':
			depth++
		case !inString && r == '}':
			depth--
		}
	}
	return depth
}

func init() {
	bindInterpFlags(replCmd.Flags(), &flagCfg)
	replCmd.Flags().BoolVar(&flagReplDDL, "ddl", false, "read lines as DDL instead of DHLX")
}
