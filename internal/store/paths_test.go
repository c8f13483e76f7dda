package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/contagion/internal/constants"
)

func TestGlobalPath(t *testing.T) {
	got, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error = %v", err)
	}
	if !strings.HasSuffix(got, constants.DirName) {
		t.Errorf("GlobalPath() = %v, should end with %s", got, constants.DirName)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("GlobalPath() = %v, should be absolute path", got)
	}
	homeDir, _ := os.UserHomeDir()
	if !strings.HasPrefix(got, homeDir) {
		t.Errorf("GlobalPath() = %v, should start with home directory %v", got, homeDir)
	}
}

func TestDefaultDBPath(t *testing.T) {
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != DBFileName || filepath.Base(filepath.Dir(got)) != constants.DirName {
		t.Errorf("DefaultDBPath() = %v", got)
	}
}

func TestEnsureDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", DBFileName)
	if err := EnsureDir(dbPath); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(filepath.Dir(dbPath))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
	// Idempotent.
	if err := EnsureDir(dbPath); err != nil {
		t.Errorf("second EnsureDir() error = %v", err)
	}
}
