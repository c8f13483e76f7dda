package simulation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/contagion/internal/results"
)

// Output formats of a result file.
const (
	FormatJSON  = "json"
	FormatArrow = "arrow"
)

// FileName is the conventional name of the result file in the given format.
func (r *Result) FileName(format string) string {
	exp := r.Experiment
	name := results.FileName(exp.NetworkType, exp.Engine.Params, exp.Version)
	if format == FormatArrow {
		name = strings.TrimSuffix(name, ".json") + ".arrow"
	}
	return name
}

// WriteFile writes the result table into dir and returns the file's path.
func (r *Result) WriteFile(dir, format string) (string, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatArrow {
		return "", fmt.Errorf("unknown output format %q", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, r.FileName(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}

	if format == FormatArrow {
		err = r.Table.WriteArrow(f)
	} else {
		err = r.Table.WriteJSON(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
