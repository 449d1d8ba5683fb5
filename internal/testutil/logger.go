package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// NopLogger returns a logger that discards all output
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// LogCapture collects JSON log records written by a logger from CaptureLogger
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// CaptureLogger returns a debug-level logger whose records can be inspected
func CaptureLogger() (*slog.Logger, *LogCapture) {
	c := &LogCapture{}
	return slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})), c
}

// Records decodes every record logged so far
func (c *LogCapture) Records(tb testing.TB) []map[string]any {
	tb.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(c.buf.Bytes()))
	for dec.More() {
		var r map[string]any
		if err := dec.Decode(&r); err != nil {
			tb.Fatalf("failed to decode log record: %v", err)
		}
		records = append(records, r)
	}
	return records
}

// Messages returns the msg field of every record at level
func (c *LogCapture) Messages(tb testing.TB, level slog.Level) []string {
	tb.Helper()
	var msgs []string
	for _, r := range c.Records(tb) {
		if r[slog.LevelKey] == level.String() {
			msgs = append(msgs, r[slog.MessageKey].(string))
		}
	}
	return msgs
}
