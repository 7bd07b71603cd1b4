// Package logx wraps zerolog for the bot.
//
// Console lines are human-readable, the log file gets one JSON object per
// line, and warnings can be forwarded to a Telegram chat (min level and
// rate limited). Loggers obtained from a Service follow Service.Apply, so
// a config reload changes every component's output at once.
package logx
