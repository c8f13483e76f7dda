package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/contagion/internal/constants"
)

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It captures metadata about the call without including file paths or ids.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to a JSONL file. It is safe for
// concurrent use, and a nil AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/audit.jsonl for appending. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}
	path := filepath.Join(dir, constants.AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_, _ = a.file.Write(data)
	}
}

// Close closes the log file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Parameters whose values are safe to log. Anything else is logged by
// presence only, or not at all.
var (
	safeValueParams = map[string]bool{
		"engine":          true,
		"format":          true,
		"p":               true,
		"d":               true,
		"t":               true,
		"iterations":      true,
		"reconstructions": true,
		"seed":            true,
		"partition":       true,
		"network_type":    true,
		"limit":           true,
		"grid_size":       true,
	}
	presenceOnlyParams = map[string]bool{
		"records":     true,
		"output":      true,
		"seeds":       true,
		"resume_from": true,
		"name":        true,
		"points":      true,
	}
)

// sanitizeToolParams keeps safe values, replaces sensitive ones with
// "(set)" and drops unknown keys. "_param_count" always records how many
// params were passed.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params)+1)
	for key, val := range params {
		switch {
		case safeValueParams[key]:
			out[key] = fmt.Sprintf("%v", val)
		case presenceOnlyParams[key]:
			out[key] = "(set)"
		}
	}
	out["_param_count"] = fmt.Sprintf("%d", len(params))
	return out
}

// auditTool records one tool invocation.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status, msg := "success", ""
	if err != nil {
		status, msg = "error", err.Error()
	}
	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      msg,
		Params:     params,
	})
}
