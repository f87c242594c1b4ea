package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Relay", statusOK, "running", false)
	if !strings.Contains(line, "Relay:") || !strings.Contains(line, "[OK] running") {
		t.Fatalf("unexpected status line %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("plain line should not carry ANSI codes: %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Fallback", statusWarn, "3 images", true)
	if !strings.HasPrefix(line, ansiYellow) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected yellow line, got %q", line)
	}
	if !strings.Contains(line, "[WARN] 3 images") {
		t.Fatalf("unexpected content %q", line)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}
