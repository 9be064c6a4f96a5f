// Package scan turns level source text into tokens.
//
// Two surface syntaxes are supported over the same statement model:
//
//   - DDL, the statement-oriented legacy syntax: words are whitespace
//     delimited, values are raw text up to ';' and commands take
//     colon-separated arguments (#for:i:0:3:1{...}).
//   - DHLX, the C-like syntax: identifiers, numbers, strings and operators
//     are separate tokens and commands take parenthesised arguments
//     (#if(cond) {...}).
//
// Both syntaxes share comments (// and /* */), quoting rules and the
// brace-delimited block structure.
package scan

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Syntax selects the tokenizer flavour.
type Syntax int

const (
	DDL Syntax = iota
	DHLX
)

func (s Syntax) String() string {
	if s == DHLX {
		return "dhlx"
	}
	return "ddl"
}

// SyntaxForFile picks the syntax from a file extension: .dhlx and .dh are
// DHLX, everything else is DDL.
func SyntaxForFile(name string) Syntax {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dhlx", ".dh":
		return DHLX
	}
	return DDL
}

// ParseSyntax maps a name ("ddl", "dhlx") to a Syntax.
func ParseSyntax(name string) (Syntax, error) {
	switch strings.ToLower(name) {
	case "ddl":
		return DDL, nil
	case "dhlx":
		return DHLX, nil
	}
	return DDL, fmt.Errorf("unknown syntax %q (supported: ddl, dhlx)", name)
}

// Kind classifies a token.
type Kind int

const (
	EOF     Kind = iota
	Word         // identifier or dotted name, including [..] and <..> suffixes
	Number       // numeric literal
	String       // quoted string; Text holds the unescaped content
	Command      // #name; Text holds the name without '#'
	Punct        // operator or punctuation: = += ; { } : , ( ) + - * / % & | !
	Func         // [name] bracket function; Text holds name
	Call         // <name> extension call; Text holds name
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of file"
	case Word:
		return "word"
	case Number:
		return "number"
	case String:
		return "string"
	case Command:
		return "command"
	case Punct:
		return "punctuation"
	case Func:
		return "function"
	case Call:
		return "call"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Raw is the exact source spelling, used when a
// token stream has to be turned back into expression text.
type Token struct {
	Kind Kind
	Text string
	Raw  string
	Line int
	off  int
}

// Is reports whether t is the punctuation p.
func (t Token) Is(p string) bool {
	return t.Kind == Punct && t.Text == p
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of file"
	}
	if t.Raw != "" {
		return t.Raw
	}
	return t.Text
}

// Block is a brace-delimited chunk of source extracted without being
// interpreted. Loops, skipped conditionals, function bodies and compound
// templates are kept as blocks and rescanned on demand.
type Block struct {
	File string
	Line int
	Text string
}
