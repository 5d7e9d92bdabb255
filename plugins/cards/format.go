package cards

import (
	"strings"
	"unicode/utf8"

	"visionbot/pkg/tgui"
)

const boxInnerWidth = 40

// renderBox draws the card in a monospace unicode box: centered title, a
// separator, the message block and the prompt block. Meant to go inside
// <pre> so Telegram keeps the alignment.
func renderBox(title, message, prompt string, innerWidth int) string {
	if innerWidth < 10 {
		innerWidth = 10
	}
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	prompt = strings.TrimSpace(prompt)

	top := "┌" + strings.Repeat("─", innerWidth+2) + "┐"
	sep := "├" + strings.Repeat("─", innerWidth+2) + "┤"
	bottom := "└" + strings.Repeat("─", innerWidth+2) + "┘"

	var lines []string
	lines = append(lines, top)
	lines = append(lines, boxLine(center(title, innerWidth), innerWidth))
	lines = append(lines, sep)
	lines = append(lines, boxLine("", innerWidth))
	for _, l := range tgui.WrapWords(message, innerWidth) {
		lines = append(lines, boxLine(l, innerWidth))
	}
	lines = append(lines, boxLine("", innerWidth))
	lines = append(lines, sep)
	for _, l := range tgui.WrapWords(prompt, innerWidth) {
		lines = append(lines, boxLine(l, innerWidth))
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}

func boxLine(s string, innerWidth int) string {
	pad := innerWidth - utf8.RuneCountInString(s)
	if pad < 0 {
		s = tgui.TruncRunes(s, innerWidth)
		pad = innerWidth - utf8.RuneCountInString(s)
	}
	return "│ " + s + strings.Repeat(" ", pad) + " │"
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s
}
