package scan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every tokenizer error.
var ErrSyntax = errors.New("syntax error")

// Scanner reads tokens from one source buffer. It supports pushing tokens
// back (Unget) and switching to raw text extraction for command arguments,
// DDL values and blocks; raw reads first rewind over any pushed-back tokens
// so no input is lost between the two modes.
type Scanner struct {
	file   string
	src    string
	pos    int
	line   int
	syntax Syntax
	depth  int
	back   []Token

	// lastEnd is set when the last consumed input ended a statement.
	lastEnd, prevEnd bool
}

// New returns a scanner over src. file is used for diagnostics only.
func New(file, src string, syntax Syntax) *Scanner {
	return &Scanner{file: file, src: src, line: 1, syntax: syntax}
}

// FromBlock returns a scanner over an extracted block, keeping the block's
// file and line numbering.
func FromBlock(b Block, syntax Syntax) *Scanner {
	line := b.Line
	if line <= 0 {
		line = 1
	}
	return &Scanner{file: b.File, src: b.Text, line: line, syntax: syntax}
}

func (s *Scanner) File() string   { return s.file }
func (s *Scanner) Syntax() Syntax { return s.syntax }

// Depth is the current brace nesting depth as seen through Next.
func (s *Scanner) Depth() int { return s.depth }

// Line is the line of the next unread token.
func (s *Scanner) Line() int {
	if n := len(s.back); n > 0 {
		return s.back[n-1].Line
	}
	return s.line
}

// Next returns the next token. At end of input it returns an EOF token and
// a nil error, repeatedly.
func (s *Scanner) Next() (Token, error) {
	if n := len(s.back); n > 0 {
		t := s.back[n-1]
		s.back = s.back[:n-1]
		s.track(t, 1)
		s.setEnd(t)
		return t, nil
	}
	s.skipSpace()
	start, line := s.pos, s.line
	t, err := s.scan()
	if err != nil {
		return Token{Line: line}, err
	}
	t.Line = line
	t.Raw = s.src[start:s.pos]
	t.off = start
	s.track(t, 1)
	s.setEnd(t)
	return t, nil
}

func (s *Scanner) setEnd(t Token) {
	s.prevEnd, s.lastEnd = s.lastEnd, t.Is(";") || t.Is("}")
}

// AtStatementEnd reports whether the input consumed last finished a
// statement, so that error recovery has nothing left to skip.
func (s *Scanner) AtStatementEnd() bool { return s.lastEnd }

// Unget pushes t back; the next call to Next returns it again. Tokens must be
// pushed back in the reverse order they were read.
func (s *Scanner) Unget(t Token) {
	s.track(t, -1)
	s.lastEnd = s.prevEnd
	s.back = append(s.back, t)
}

// Peek returns the next token without consuming it.
func (s *Scanner) Peek() (Token, error) {
	t, err := s.Next()
	if err != nil {
		return t, err
	}
	s.Unget(t)
	return t, nil
}

// Expect consumes the punctuation p or fails with ErrSyntax.
func (s *Scanner) Expect(p string) error {
	t, err := s.Next()
	if err != nil {
		return err
	}
	if !t.Is(p) {
		return fmt.Errorf("%w: expected %q, found %q", ErrSyntax, p, t.String())
	}
	return nil
}

// Accept consumes the punctuation p if it is next and reports whether it did.
func (s *Scanner) Accept(p string) bool {
	t, err := s.Peek()
	if err != nil || !t.Is(p) {
		return false
	}
	s.Next()
	return true
}

func (s *Scanner) track(t Token, d int) {
	switch {
	case t.Is("{"):
		s.depth += d
	case t.Is("}"):
		s.depth -= d
	}
}

// rewind moves the read position back over pushed-back tokens so raw
// extraction sees them as source text.
func (s *Scanner) rewind() {
	if n := len(s.back); n > 0 {
		first := s.back[n-1]
		s.pos, s.line = first.off, first.Line
		s.back = s.back[:0]
	}
}

func (s *Scanner) peekc(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *Scanner) advance() byte {
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// skipSpace skips whitespace and comments.
func (s *Scanner) skipSpace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.advance()
		case c == '/' && s.peekc(1) == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.peekc(1) == '*':
			s.pos += 2
			for s.pos < len(s.src) && !(s.src[s.pos] == '*' && s.peekc(1) == '/') {
				s.advance()
			}
			if s.pos < len(s.src) {
				s.pos += 2
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (s *Scanner) scan() (Token, error) {
	if s.pos >= len(s.src) {
		return Token{Kind: EOF}, nil
	}
	c := s.src[s.pos]
	switch {
	case c == '"' || c == '\'':
		return s.scanString()
	case c == '#':
		s.pos++
		start := s.pos
		for s.pos < len(s.src) && (isIdentChar(s.src[s.pos]) || s.src[s.pos] == '*') {
			s.pos++
		}
		if s.pos == start {
			return Token{}, fmt.Errorf("%w: '#' without command name", ErrSyntax)
		}
		return Token{Kind: Command, Text: s.src[start:s.pos]}, nil
	case strings.IndexByte("{};,=", c) >= 0:
		s.pos++
		return Token{Kind: Punct, Text: string(c)}, nil
	}
	if s.syntax == DDL {
		return s.scanDDL()
	}
	return s.scanDHLX()
}

// scanDDL reads one whitespace-delimited DDL word. ':' separates words, and
// a trailing '+' directly before '=' is split off as the "+=" operator.
func (s *Scanner) scanDDL() (Token, error) {
	c := s.src[s.pos]
	if c == ':' {
		s.pos++
		return Token{Kind: Punct, Text: ":"}, nil
	}
	if c == '+' && s.peekc(1) == '=' {
		s.pos += 2
		return Token{Kind: Punct, Text: "+="}, nil
	}
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isSpace(c) || strings.IndexByte("{};,=:#\"'", c) >= 0 {
			break
		}
		if c == '/' && (s.peekc(1) == '/' || s.peekc(1) == '*') {
			break
		}
		if c == '[' || c == '(' || c == '<' {
			if end := matchGroup(s.src, s.pos); end > 0 {
				s.pos = end
				continue
			}
		}
		s.pos++
	}
	word := s.src[start:s.pos]
	if strings.HasSuffix(word, "+") && s.peekc(0) == '=' && len(word) > 1 {
		s.pos--
		word = word[:len(word)-1]
	}
	if word == "" {
		s.pos++
		return Token{}, fmt.Errorf("%w: unexpected character %q", ErrSyntax, c)
	}
	if looksNumeric(word) {
		return Token{Kind: Number, Text: word}, nil
	}
	return Token{Kind: Word, Text: word}, nil
}

func looksNumeric(w string) bool {
	if w == "" {
		return false
	}
	if w[0] == '-' || w[0] == '+' {
		w = w[1:]
	}
	if w == "" {
		return false
	}
	return isDigit(w[0]) || (w[0] == '.' && len(w) > 1 && isDigit(w[1]))
}

func (s *Scanner) scanDHLX() (Token, error) {
	c := s.src[s.pos]
	switch {
	case isIdentStart(c):
		return s.scanIdent(), nil
	case isDigit(c) || (c == '.' && isDigit(s.peekc(1))):
		return s.scanNumber(), nil
	case c == '[':
		if name, n := s.bracketName('[', ']'); n > 0 {
			s.pos += n
			return Token{Kind: Func, Text: name}, nil
		}
	case c == '<':
		if name, n := s.bracketName('<', '>'); n > 0 {
			s.pos += n
			return Token{Kind: Call, Text: name}, nil
		}
	case c == '+' && s.peekc(1) == '=':
		s.pos += 2
		return Token{Kind: Punct, Text: "+="}, nil
	}
	if strings.IndexByte("+-*/%&|!()[]<>:", c) >= 0 {
		s.pos++
		return Token{Kind: Punct, Text: string(c)}, nil
	}
	s.pos++
	return Token{}, fmt.Errorf("%w: unexpected character %q", ErrSyntax, c)
}

// bracketName matches open ident close at the read position and returns the
// identifier and the number of bytes matched.
func (s *Scanner) bracketName(open, close byte) (string, int) {
	i := s.pos + 1
	for i < len(s.src) && (isIdentChar(s.src[i]) || s.src[i] == '-') {
		i++
	}
	if i == s.pos+1 || i >= len(s.src) || s.src[i] != close {
		return "", 0
	}
	return s.src[s.pos+1 : i], i + 1 - s.pos
}

func (s *Scanner) scanIdent() Token {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isIdentChar(c):
			s.pos++
		case c == '[' || c == '<':
			end := matchGroup(s.src, s.pos)
			if end < 0 {
				return Token{Kind: Word, Text: s.src[start:s.pos]}
			}
			s.pos = end
		default:
			return Token{Kind: Word, Text: s.src[start:s.pos]}
		}
	}
	return Token{Kind: Word, Text: s.src[start:s.pos]}
}

// matchGroup returns the offset just past the bracket group opened at i,
// or -1 if the group is not closed on the same line.
func matchGroup(src string, i int) int {
	open := src[i]
	var close byte
	switch open {
	case '[':
		close = ']'
	case '(':
		close = ')'
	default:
		close = '>'
	}
	depth := 0
	for j := i; j < len(src); j++ {
		switch src[j] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j + 1
			}
		case '\n', ';', '{', '}':
			return -1
		}
	}
	return -1
}

func (s *Scanner) scanNumber() Token {
	start := s.pos
	hex := s.peekc(0) == '0' && (s.peekc(1) == 'x' || s.peekc(1) == 'X')
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.' {
			s.pos++
			continue
		}
		if (c == '+' || c == '-') && !hex && s.pos > start {
			prev := s.src[s.pos-1]
			if (prev == 'e' || prev == 'E') && isDigit(s.peekc(1)) {
				s.pos++
				continue
			}
		}
		break
	}
	return Token{Kind: Number, Text: s.src[start:s.pos]}
}

func (s *Scanner) scanString() (Token, error) {
	quote := s.advance()
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' && s.pos+1 < len(s.src) {
			s.pos += 2
			continue
		}
		if c == quote {
			raw := s.src[start-1 : s.pos+1]
			s.pos++
			text, err := Unquote(raw)
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: String, Text: text}, nil
		}
		s.advance()
	}
	return Token{}, fmt.Errorf("%w: unterminated string", ErrSyntax)
}
