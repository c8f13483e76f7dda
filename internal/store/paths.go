package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/contagion/internal/constants"
)

// DBFileName is the run store file inside the per-user directory.
const DBFileName = constants.DBFileName

// GlobalPath returns the path to the per-user .contagion directory.
// On Unix: ~/.contagion
// On Windows: %USERPROFILE%\.contagion
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DirName), nil
}

// DefaultDBPath returns ~/.contagion/runs.db.
func DefaultDBPath() (string, error) {
	dir, err := GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFileName), nil
}

// EnsureDir creates the parent directory of a store file.
func EnsureDir(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}
