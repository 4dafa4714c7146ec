package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"letterscribe/internal/transcription"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Source PDF", statusError, "unreadable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Source PDF:", "[ERROR] unreadable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Page images", statusOK, "3 pages present", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestShouldColorizeNonTerminal(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderModelsTableMarksDefault(t *testing.T) {
	out := renderModelsTable(transcription.Models(), "25f")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "gemini-2.5-flash ") && !strings.Contains(line, "yes") {
			t.Fatalf("expected 25f marked default: %q", line)
		}
		if strings.Contains(line, "gemini-2.5-pro") && !strings.Contains(line, " - ") {
			t.Fatalf("expected unknown limits rendered as '-': %q", line)
		}
	}
}
