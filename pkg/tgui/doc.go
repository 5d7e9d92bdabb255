// Package tgui provides small Telegram UI helpers:
//   - Safe HTML building blocks for ParseMode="HTML"
//   - Callback data helpers ("plugin:action:payload")
//   - Text utilities (rune truncation, word wrapping)
package tgui
