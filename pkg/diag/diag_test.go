package diag

import (
	"bytes"
	"strings"
	"testing"
)

func mustContain(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}

func TestLog_FormatsPositionAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Log(LevelWarn, Pos{File: "map.dhlx", Line: 12}, "texture name truncated")
	mustContain(t, buf.String(), "map.dhlx:12: warning: texture name truncated\n")
}

func TestLog_Threshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug must be hidden at the default level, got %q", buf.String())
	}
	if l.Count(LevelDebug) != 1 {
		t.Fatalf("hidden messages are still counted, got %d", l.Count(LevelDebug))
	}
	l.SetLevel(LevelDebug)
	l.Debugf("shown")
	mustContain(t, buf.String(), "debug: shown")

	l.SetLevel(LevelFatal)
	l.Errorf("still shown")
	mustContain(t, buf.String(), "error: still shown")
}

func TestLog_MultiLineIndented(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Log(LevelInfo, Pos{File: "a.ddl"}, "first\nsecond\n")
	if got, want := buf.String(), "a.ddl: info: first\n    second\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": LevelDebug, "WARN": LevelWarn, "warning": LevelWarn, " error ": LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
