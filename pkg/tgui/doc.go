// Package tgui holds small helpers for Telegram replies sent with
// ParseMode=HTML: an escaped-HTML string type and rune-safe truncation.
package tgui
