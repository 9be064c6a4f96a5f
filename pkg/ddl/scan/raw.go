package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// readRaw copies source text up to the first byte at nesting depth zero for
// which stop returns true, or up to an unmatched closing bracket. The stop
// byte is not consumed. Quoted strings are copied verbatim; comments are
// replaced by a single space (newlines inside them are kept so that rescans
// report the same line numbers).
func (s *Scanner) readRaw(stop func(c byte) bool) (string, error) {
	s.rewind()
	var b strings.Builder
	var nest []byte
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '"' || c == '\'':
			start := s.pos
			s.advance()
			for s.pos < len(s.src) && s.src[s.pos] != c {
				if s.src[s.pos] == '\\' && s.pos+1 < len(s.src) {
					s.advance()
				}
				s.advance()
			}
			if s.pos >= len(s.src) {
				return "", fmt.Errorf("%w: unterminated string", ErrSyntax)
			}
			s.advance()
			b.WriteString(s.src[start:s.pos])
			continue
		case c == '/' && s.peekc(1) == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			b.WriteByte(' ')
			continue
		case c == '/' && s.peekc(1) == '*':
			s.pos += 2
			for s.pos < len(s.src) && !(s.src[s.pos] == '*' && s.peekc(1) == '/') {
				if s.advance() == '\n' {
					b.WriteByte('\n')
				}
			}
			if s.pos < len(s.src) {
				s.pos += 2
			}
			b.WriteByte(' ')
			continue
		}
		if len(nest) == 0 && stop(c) {
			return b.String(), nil
		}
		switch c {
		case '(', '[', '{':
			nest = append(nest, c)
		case ')', ']', '}':
			if len(nest) == 0 {
				return b.String(), nil
			}
			nest = nest[:len(nest)-1]
		}
		b.WriteByte(s.advance())
	}
	return b.String(), nil
}

func (s *Scanner) skipRawSpace() {
	s.rewind()
	s.skipSpace()
}

// ReadArgs reads the argument text of a command. Three spellings are
// accepted and normalised to the same text:
//
//	#cmd(args) ...     DHLX
//	#cmd:args{ / ;     DDL
//	#cmd args { / ;    bare
//
// The terminating '{' or ';' is left unread.
func (s *Scanner) ReadArgs() (string, error) {
	s.skipRawSpace()
	s.lastEnd = false
	switch s.peekc(0) {
	case '(':
		save, saveLine := s.pos, s.line
		s.advance()
		inner, err := s.readRaw(func(c byte) bool { return false })
		if err != nil {
			return "", err
		}
		if s.peekc(0) != ')' {
			return "", fmt.Errorf("%w: unbalanced '(' in command arguments", ErrSyntax)
		}
		s.advance()
		s.skipSpace()
		if c := s.peekc(0); c == '{' || c == ';' || c == 0 || c == '}' || c == '#' {
			return strings.TrimSpace(inner), nil
		}
		// "(x) & y": the parenthesis was part of the expression.
		s.pos, s.line = save, saveLine
	case ':':
		s.advance()
	}
	text, err := s.readRaw(func(c byte) bool { return c == '{' || c == ';' })
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ReadValue reads DDL value text up to the terminating ';', which is
// consumed. A missing ';' before '}' or end of input is tolerated.
func (s *Scanner) ReadValue() (string, error) {
	text, err := s.readRaw(func(c byte) bool { return c == ';' })
	if err != nil {
		return "", err
	}
	if s.peekc(0) == ';' {
		s.pos++
	}
	s.lastEnd = true
	return strings.TrimSpace(text), nil
}

// AtBlock reports whether the next significant character opens a block.
func (s *Scanner) AtBlock() bool {
	s.skipRawSpace()
	return s.peekc(0) == '{'
}

// ReadBlock consumes a brace-delimited block and returns its body without
// interpreting it.
func (s *Scanner) ReadBlock() (Block, error) {
	s.skipRawSpace()
	if s.peekc(0) != '{' {
		return Block{}, fmt.Errorf("%w: expected '{'", ErrSyntax)
	}
	s.advance()
	b := Block{File: s.file, Line: s.line}
	text, err := s.readRaw(func(c byte) bool { return false })
	if err != nil {
		return Block{}, err
	}
	if s.peekc(0) != '}' {
		return Block{}, fmt.Errorf("%w: unbalanced '{' opened on line %d", ErrSyntax, b.Line)
	}
	s.advance()
	s.lastEnd = true
	b.Text = text
	return b, nil
}

// SkipBlock consumes the next block if there is one.
func (s *Scanner) SkipBlock() error {
	if !s.AtBlock() {
		return nil
	}
	_, err := s.ReadBlock()
	return err
}

// SkipStatement discards input until the end of the current statement at
// brace depth base: a ';' or '}' seen at that depth, a '}' that leaves it,
// or end of input. Used to resynchronise after an error.
func (s *Scanner) SkipStatement(base int) {
	for {
		t, err := s.Next()
		if err != nil {
			continue
		}
		if t.Kind == EOF || s.depth < base {
			return
		}
		if s.depth == base && (t.Is(";") || t.Is("}")) {
			return
		}
	}
}

// AtEOF reports whether only whitespace and comments remain.
func (s *Scanner) AtEOF() bool {
	if len(s.back) > 0 {
		return s.back[len(s.back)-1].Kind == EOF
	}
	s.skipSpace()
	return s.pos >= len(s.src)
}

// SplitTop splits s on sep where sep is outside quotes and brackets.
// Parts are trimmed. An empty s yields no parts.
func SplitTop(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// SplitFields splits s on whitespace outside quotes and brackets.
func SplitFields(s string) []string {
	var fields []string
	depth := 0
	var quote byte
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 && depth == 0 && isSpace(c) {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// IsQuoted reports whether s is a single quoted string literal.
func IsQuoted(s string) bool {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == s[0] {
			return false
		}
	}
	return true
}

// Unquote removes the quotes from a string literal and resolves escapes:
// \n \t \r \0 \\ \" \' and \xHH.
func Unquote(s string) (string, error) {
	if !IsQuoted(s) {
		return "", fmt.Errorf("%w: not a quoted string: %s", ErrSyntax, s)
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, "\\") {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 >= len(body) {
				return "", fmt.Errorf("%w: short \\x escape", ErrSyntax)
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad \\x escape", ErrSyntax)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// Quote renders s as a double-quoted literal that Unquote accepts.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
