// Package store persists simulation runs: their parameters, replicate
// tables and the carried-forward beliefs a later run can resume from.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/results"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("store: run not found")

// Run is the identity and provenance of one simulation run.
type Run struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	NetworkType string           `json:"network_type"`
	Engine      contagion.Kind   `json:"engine"`
	Params      contagion.Params `json:"params"`
	Version     string           `json:"version"`
	Seed        uint64           `json:"seed"`
	Replicates  int              `json:"replicates"`
	Axis        history.Axis     `json:"axis"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FileName returns the conventional result file name for the run.
func (r Run) FileName() string {
	return results.FileName(r.NetworkType, r.Params, r.Version)
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	NetworkType string
	Engine      contagion.Kind
	Limit       int
}

func (f RunFilter) match(r Run) bool {
	if f.NetworkType != "" && r.NetworkType != f.NetworkType {
		return false
	}
	if f.Engine != "" && r.Engine != f.Engine {
		return false
	}
	return true
}

// RunStore defines the persistence of runs.
type RunStore interface {
	// SaveRun stores a run and its table. An empty run ID is assigned a new
	// UUID and a zero CreatedAt is set to now; both are written back to run.
	SaveRun(ctx context.Context, run *Run, table *results.Table) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	LoadTable(ctx context.Context, id string) (*results.Table, error)

	// SaveBeliefs replaces the carried beliefs stored for a run.
	SaveBeliefs(ctx context.Context, id string, beliefs map[string]float64) error
	LoadBeliefs(ctx context.Context, id string) (map[string]float64, error)

	DeleteRun(ctx context.Context, id string) error
	Close() error
}
