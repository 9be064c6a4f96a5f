// Package diag is the leveled diagnostic stream of the compiler. Every
// compile error, warning and #debug/#info/#warn/#error message is written
// through a Logger as "file:line: level: message".
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Level orders diagnostics by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"debug", "info", "warning", "error", "fatal"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "level?"
	}
	return levelNames[l]
}

// ParseLevel accepts the level names plus "warn".
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warn" {
		return LevelWarn, nil
	}
	for i, n := range levelNames {
		if n == s {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown level %q (supported: debug, info, warn, error)", s)
}

// Pos is a source position. The zero Pos prints nothing.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	switch {
	case p.File == "":
		return ""
	case p.Line <= 0:
		return p.File
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Logger writes leveled messages. Colour is decided by the renderer bound
// to the output writer, so redirected output stays plain text.
type Logger struct {
	w      io.Writer
	min    Level
	counts [LevelFatal + 1]int
	styles [LevelFatal + 1]lipgloss.Style
}

// New returns a logger writing to w at LevelInfo.
func New(w io.Writer) *Logger {
	r := lipgloss.NewRenderer(w)
	l := &Logger{w: w, min: LevelInfo}
	l.styles[LevelDebug] = r.NewStyle().Faint(true)
	l.styles[LevelInfo] = r.NewStyle().Foreground(lipgloss.Color("33"))
	l.styles[LevelWarn] = r.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	l.styles[LevelError] = r.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	l.styles[LevelFatal] = r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("196"))
	return l
}

// Discard returns a logger that only counts.
func Discard() *Logger { return New(io.Discard) }

// SetLevel hides messages below min. Errors and fatal messages are always
// written.
func (l *Logger) SetLevel(min Level) {
	if min > LevelError {
		min = LevelError
	}
	l.min = min
}

func (l *Logger) Level() Level { return l.min }

// Log writes one message. Multi-line messages are indented under the
// first line.
func (l *Logger) Log(level Level, pos Pos, msg string) {
	if level < LevelDebug {
		level = LevelDebug
	}
	if level > LevelFatal {
		level = LevelFatal
	}
	l.counts[level]++
	if level < l.min {
		return
	}
	var b strings.Builder
	if p := pos.String(); p != "" {
		b.WriteString(p)
		b.WriteString(": ")
	}
	b.WriteString(l.styles[level].Render(level.String()))
	b.WriteString(": ")
	b.WriteString(strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", "\n    "))
	b.WriteByte('\n')
	io.WriteString(l.w, b.String())
}

func (l *Logger) Logf(level Level, pos Pos, format string, args ...any) {
	l.Log(level, pos, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.Logf(LevelDebug, Pos{}, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Logf(LevelInfo, Pos{}, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Logf(LevelWarn, Pos{}, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Logf(LevelError, Pos{}, format, args...) }

// Count is the number of messages logged at level, shown or not.
func (l *Logger) Count(level Level) int {
	if level < 0 || level > LevelFatal {
		return 0
	}
	return l.counts[level]
}
