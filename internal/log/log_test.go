package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelsFilter(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "k", 1)
	Error("shown error", errors.New("boom"), "id", "a")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("filtered records leaked:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] shown warn k=1") {
		t.Errorf("warn line missing:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] shown error err=boom id=a") {
		t.Errorf("error line missing:\n%s", out)
	}
}

func TestMalformedKVs(t *testing.T) {
	buf := capture(t, LevelDebug)
	Debug("odd", "a", 1, 2, "x", "dangling")
	if got := buf.String(); !strings.HasSuffix(strings.TrimSpace(got), "[DEBUG] odd a=1") {
		t.Errorf("got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" Info ", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"ERROR", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
