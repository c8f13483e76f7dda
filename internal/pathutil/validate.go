// Package pathutil confines file paths supplied by untrusted callers, such as
// MCP clients, to a set of allowed directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/contagion/internal/constants"
)

var (
	ErrEmptyPath  = errors.New("path validation failed: path is empty")
	ErrNullByte   = errors.New("path validation failed: path contains null byte")
	ErrNoRoots    = errors.New("path validation failed: no allowed directories configured")
	ErrOutsideDir = errors.New("path validation failed: outside allowed directories")
)

// RedactPath reduces a full path to .../<parent>/<basename> for error
// messages, e.g. "/home/user/.contagion/runs.db" becomes ".../.contagion/runs.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Sandbox is a set of directories paths must stay inside.
type Sandbox struct {
	roots []string
}

// NewSandbox allows paths under any of roots. The first root anchors relative
// paths.
func NewSandbox(roots ...string) *Sandbox {
	return &Sandbox{roots: roots}
}

// DefaultSandbox allows the working directory and the user's contagion
// directory.
func DefaultSandbox(workDir string) (*Sandbox, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewSandbox(workDir, filepath.Join(home, constants.DirName)), nil
}

// Roots returns the allowed directories.
func (s *Sandbox) Roots() []string { return s.roots }

// Resolve validates path and returns its absolute form. Symlinks on existing
// ancestors are followed before the containment check, so a link inside a
// root that points outside it is rejected. The file itself need not exist.
func (s *Sandbox) Resolve(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(path, '\x00') {
		return "", ErrNullByte
	}
	if len(s.roots) == 0 {
		return "", ErrNoRoots
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(s.roots[0], path)
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	dir, err := resolveExisting(filepath.Dir(abs))
	if err != nil {
		return "", fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolved := filepath.Join(dir, filepath.Base(abs))

	for _, root := range s.roots {
		rootAbs, err := filepath.Abs(filepath.Clean(root))
		if err != nil {
			continue
		}
		rootResolved, err := resolveExisting(rootAbs)
		if err != nil {
			continue
		}
		if within(resolved, rootResolved) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%q: %w", RedactPath(abs), ErrOutsideDir)
}

// ValidatePath checks that path lies inside one of allowedDirs.
func ValidatePath(path string, allowedDirs []string) error {
	_, err := NewSandbox(allowedDirs...).Resolve(path)
	return err
}

// resolveExisting follows symlinks on the deepest existing ancestor of dir
// and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// within reports whether path is base or below it.
func within(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
