package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()

	got := splitText("hello", 100, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("short text should be one chunk, got %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
	got := splitText(s, 100, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(got), got)
	}
	if got[0] != strings.Repeat("a", 60) {
		t.Fatalf("first chunk should end at the newline, got %q", got[0])
	}
	if got[1] != strings.Repeat("b", 60) {
		t.Fatalf("second chunk wrong: %q", got[1])
	}
}

func TestSplitTextRespectsLimit(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("x", 950)
	for _, chunk := range splitText(s, 100, "") {
		if n := utf8.RuneCountInString(chunk); n > 100 {
			t.Fatalf("chunk exceeds limit: %d runes", n)
		}
	}
	// nothing lost
	joined := strings.Join(splitText(s, 100, ""), "")
	if joined != s {
		t.Fatal("content lost while splitting solid text")
	}
}

func TestSplitTextAvoidsDanglingHTMLTag(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("y", 90) + "<b>bold text here</b>" + strings.Repeat("z", 50)
	for _, chunk := range splitText(s, 100, "HTML") {
		opens := strings.Count(chunk, "<")
		closes := strings.Count(chunk, ">")
		if opens > closes {
			t.Fatalf("chunk split inside a tag: %q", chunk)
		}
	}
}

func TestSplitTextMultibyte(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("日", 250)
	chunks := splitText(s, 100, "")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatal("chunk contains invalid utf-8")
		}
	}
}
