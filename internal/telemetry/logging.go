package telemetry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// redactedKeys are attribute keys whose values are scrubbed before they
// reach the log handler, in case a command payload carries connection
// details for an external channel (spectator feed auth, webhook URLs).
var redactedKeys = map[string]bool{
	"token":      true,
	"password":   true,
	"secret":     true,
	"auth":       true,
	"api_key":    true,
	"apikey":     true,
	"credential": true,
}

// NewLogger builds a JSON slog.Logger writing to logDir/legiond.jsonl, and
// to stdout as well unless quiet is set. The ReplaceAttr hook renames the
// timestamp key and redacts sensitive values by key name.
func NewLogger(logDir, level string, quiet bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(logDir, "legiond.jsonl")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = file
	if !quiet {
		w = io.MultiWriter(os.Stdout, file)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: replaceAttr,
	})
	return slog.New(handler), file, nil
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		a.Key = "timestamp"
		return a
	}
	if redactedKeys[strings.ToLower(a.Key)] {
		a.Value = slog.StringValue("[redacted]")
		return a
	}
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(redactStringValue(a.Value.String()))
	}
	return a
}

// redactStringValue scrubs bearer-token-shaped substrings out of free-form
// string attributes (e.g. a websocket auth header logged by the spectator
// feed's connection handler).
func redactStringValue(s string) string {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "bearer ") {
		idx := strings.Index(lower, "bearer ")
		return s[:idx] + "bearer [redacted]"
	}
	return s
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StartupEntry is logged once at process start, giving an operator a
// single line with the version and start time.
func StartupEntry(logger *slog.Logger, version string, startedAt time.Time) {
	logger.Info("legiond starting", "version", version, "started_at", startedAt.Format(time.RFC3339))
}
