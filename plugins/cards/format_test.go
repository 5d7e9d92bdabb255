package cards

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRenderBoxAlignment(t *testing.T) {
	t.Parallel()

	box := renderBox("THE ANCHOR",
		"Storms pass. Your habits are the anchor that keeps you from drifting while they do.",
		"Which single habit kept you steady today?", 40)

	lines := strings.Split(box, "\n")
	if len(lines) < 6 {
		t.Fatalf("box too small: %d lines", len(lines))
	}

	width := utf8.RuneCountInString(lines[0])
	for i, l := range lines {
		if got := utf8.RuneCountInString(l); got != width {
			t.Errorf("line %d width %d, want %d: %q", i, got, width, l)
		}
	}

	if !strings.HasPrefix(lines[0], "┌") || !strings.HasSuffix(lines[0], "┐") {
		t.Errorf("bad top border: %q", lines[0])
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "└") || !strings.HasSuffix(last, "┘") {
		t.Errorf("bad bottom border: %q", last)
	}
	if !strings.Contains(box, "THE ANCHOR") {
		t.Error("title missing")
	}
	if strings.Count(box, "├") != 2 {
		t.Errorf("expected 2 separators, got %d", strings.Count(box, "├"))
	}
}

func TestRenderBoxLongWords(t *testing.T) {
	t.Parallel()

	box := renderBox("T", strings.Repeat("x", 80), "p", 40)
	for i, l := range strings.Split(box, "\n") {
		if got := utf8.RuneCountInString(l); got != 44 {
			t.Errorf("line %d width %d, want 44: %q", i, got, l)
		}
	}

	// a single overlong word in any field truncates instead of breaking
	// the frame
	box = renderBox("Title", "supercalifragilisticexpialidociousandthensomemoreletters", "prompt", 40)
	for i, l := range strings.Split(box, "\n") {
		if got := utf8.RuneCountInString(l); got != 44 {
			t.Errorf("long-word line %d width %d, want 44: %q", i, got, l)
		}
	}
	box = renderBox(strings.Repeat("T", 60), "msg", "prompt", 40)
	for i, l := range strings.Split(box, "\n") {
		if got := utf8.RuneCountInString(l); got != 44 {
			t.Errorf("long-title line %d width %d, want 44: %q", i, got, l)
		}
	}
}

func TestRenderBoxMinWidth(t *testing.T) {
	t.Parallel()

	// tiny widths clamp instead of panicking
	box := renderBox("title", "msg", "prompt", 1)
	if box == "" {
		t.Fatal("empty render")
	}
	for _, l := range strings.Split(box, "\n") {
		if utf8.RuneCountInString(l) != 14 { // 10 (clamped) + 4 frame chars
			t.Fatalf("unexpected width for %q", l)
		}
	}
}
