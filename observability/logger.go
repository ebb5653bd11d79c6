// Package observability holds the structured logger and Sentry wiring.
package observability

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Logger writes one JSON object per line to stdout. A nil *Logger is valid
// and discards everything, so callers never have to guard log sites.
type Logger struct {
	base *log.Logger
}

// NewLogger creates a stdout JSON logger.
func NewLogger() *Logger {
	return &Logger{base: log.New(os.Stdout, "", 0)}
}

// Info logs at info level.
func (l *Logger) Info(message string, fields map[string]any) {
	l.write("info", message, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.write("warn", message, fields)
}

// Error logs at error level.
func (l *Logger) Error(message string, fields map[string]any) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]any) {
	if l == nil {
		return
	}
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range fields {
		payload[k] = v
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		l.base.Println(`{"level":"error","message":"failed to encode log"}`)
		return
	}

	l.base.Println(string(encoded))
}
