package records

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/contagion/internal/network"
)

// Format names an input layout.
type Format string

const (
	FormatMovies Format = "movies"
	FormatShifts Format = "shifts"
)

// DetectFormat picks the layout from a file extension: .csv is a shift
// schedule, everything else movie JSON.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatShifts
	}
	return FormatMovies
}

// Load reads records from path. An empty format is detected from the
// extension.
func Load(path string, format Format) ([]network.Record, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	var recs []network.Record
	switch format {
	case FormatMovies:
		recs, err = ReadMovies(f)
	case FormatShifts:
		recs, err = ReadShifts(f)
	default:
		return nil, fmt.Errorf("unknown record format %q: %w", format, ErrFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// LoadSeeds reads a seed file.
func LoadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()
	return ReadSeeds(f)
}

// LoadBeliefs reads an a-priori belief file.
func LoadBeliefs(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open beliefs: %w", err)
	}
	defer f.Close()
	return ReadBeliefs(f)
}
