// Package logging provides leveled logging and run tracing for contagion.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL run traces (<output dir>/trace.jsonl)
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/contagion/internal/constants"
)

// LevelTrace is a custom slog level below Debug. At this level the
// simulation logs every replicate's final count as it completes.
const LevelTrace = slog.LevelDebug - 4

// Trace event names.
const (
	EventBlockStart  = "block_start"
	EventBlockFinish = "block_finish"
	EventReplicate   = "replicate"
	EventFailure     = "failure"
	EventSweepTuple  = "sweep_tuple"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TraceLogger writes structured run events to a JSONL file.
// It is safe for concurrent use. A nil TraceLogger is safe to use;
// all methods are no-ops on nil receiver.
type TraceLogger struct {
	out  *traceFile
	base map[string]any
}

type traceFile struct {
	mu   sync.Mutex
	file *os.File
}

// NewTraceLogger creates a trace logger writing to dir/trace.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.TraceFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{out: &traceFile{file: f}}
}

// With returns a logger sharing the file that adds attrs to every event.
// Later keys override earlier ones.
func (tl *TraceLogger) With(attrs map[string]any) *TraceLogger {
	if tl == nil {
		return nil
	}
	base := maps.Clone(tl.base)
	if base == nil {
		base = make(map[string]any, len(attrs))
	}
	maps.Copy(base, attrs)
	return &TraceLogger{out: tl.out, base: base}
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (tl *TraceLogger) Log(event map[string]any) {
	if tl == nil {
		return
	}

	entry := make(map[string]any, len(tl.base)+len(event)+1)
	maps.Copy(entry, tl.base)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	tl.out.mu.Lock()
	defer tl.out.mu.Unlock()
	if tl.out.file == nil {
		return
	}
	_, _ = tl.out.file.Write(data)
}

// Event logs name with alternating key/value pairs, slog style. A key
// without a value is recorded under "!BADKEY".
func (tl *TraceLogger) Event(name string, kv ...any) {
	if tl == nil {
		return
	}
	event := map[string]any{"event": name}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || i+1 == len(kv) {
			event["!BADKEY"] = kv[i]
			continue
		}
		event[key] = kv[i+1]
	}
	tl.Log(event)
}

// Failure logs err with its message.
func (tl *TraceLogger) Failure(err error, kv ...any) {
	if tl == nil || err == nil {
		return
	}
	tl.Event(EventFailure, append([]any{"error", fmt.Sprint(err)}, kv...)...)
}

// Close closes the underlying file. Loggers derived with With share the
// file and become no-ops too. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.out.mu.Lock()
	defer tl.out.mu.Unlock()
	if tl.out.file == nil {
		return
	}
	tl.out.file.Close()
	tl.out.file = nil
}
