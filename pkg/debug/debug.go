// Package debug provides category-gated debug logging for the modelfarm client.
//
// Categories select WHAT is logged (MODELFARM_DEBUG or config), levels select
// HOW MUCH (MODELFARM_LOG_LEVEL or config):
//
//	debug.Log("transport", "request", "path", path, "request_id", id)
//	if debug.TraceIsEnabled("streaming") { /* log raw chunks */ }
//
// Categories: transport, streaming, auth, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
)

// LevelTrace sits below slog.LevelDebug. Request and response bodies are
// only logged untruncated at this level.
const LevelTrace = slog.LevelDebug - 4

// Environment variables read at startup and by Init.
const (
	EnvCategories = "MODELFARM_DEBUG"
	EnvLevel      = "MODELFARM_LOG_LEVEL"
)

// maxBodyLog is the body prefix logged at DEBUG.
const maxBodyLog = 512

// categories is read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv(EnvCategories))
}

// Init configures categories and the default slog handler. Environment
// values take precedence over the arguments.
func Init(configCategories, configLevel string) {
	cats := os.Getenv(EnvCategories)
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv(EnvLevel)
	if level == "" {
		level = configLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether the category is active.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a DEBUG record tagged with the category. No-op when disabled.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a TRACE record tagged with the category.
func Trace(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE output is active for the category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Body returns data for logging: in full at TRACE, truncated otherwise.
func Body(category string, data []byte) string {
	if TraceIsEnabled(category) {
		return string(data)
	}
	return Truncate(string(data), maxBodyLog)
}

// RedactHeaders flattens headers for logging with credentials masked.
func RedactHeaders(h http.Header) []string {
	out := make([]string, 0, len(h))
	for name, values := range h {
		v := strings.Join(values, ",")
		if strings.EqualFold(name, "Authorization") || strings.EqualFold(name, "X-Api-Key") {
			v = "[redacted]"
		}
		out = append(out, name+"="+v)
	}
	sort.Strings(out)
	return out
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories, sorted.
func Categories() []string {
	var result []string
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate limits s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
