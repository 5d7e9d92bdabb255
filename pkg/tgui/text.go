package tgui

import (
	"strings"
	"unicode/utf8"
)

// TruncRunes returns s truncated to at most n runes. When s does not fit,
// the last kept rune is replaced with an ellipsis "…" so the result is
// still exactly n runes long.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n-1 {
			return s[:i] + "…"
		}
		count++
	}
	return s
}

// WrapWords greedily wraps s into lines of at most width runes, breaking on
// spaces. Words longer than width get a line of their own.
func WrapWords(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   strings.Builder
		curW  int
	)
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if curW == 0 {
			cur.WriteString(w)
			curW = wl
			continue
		}
		if curW+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(w)
			curW = wl
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(w)
		curW += 1 + wl
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
