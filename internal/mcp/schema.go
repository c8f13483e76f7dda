// Package mcp provides an MCP (Model Context Protocol) server for contagion.
package mcp

// ContagionRunInput defines the input for the contagion_run tool. Unset
// model fields fall back to the server's configuration.
type ContagionRunInput struct {
	Records         string   `json:"records" jsonschema:"path of the movie JSON or shift CSV records, relative to the server root"`
	Format          string   `json:"format,omitempty" jsonschema:"record format: movies or shifts; detected from the extension when empty"`
	Engine          string   `json:"engine,omitempty" jsonschema:"propagation engine: temporal-pairwise, sequential-walk, synchronous or temporal-full"`
	P               *float64 `json:"p,omitempty" jsonschema:"transmission probability in [0,1]"`
	D               *float64 `json:"d,omitempty" jsonschema:"belief dose of a successful exposure in [0,1]"`
	T               *float64 `json:"t,omitempty" jsonschema:"adoption threshold in [0,1]"`
	Seeds           []string `json:"seeds,omitempty" jsonschema:"initial adopter ids; drawn from the first event when empty"`
	Iterations      int      `json:"iterations,omitempty" jsonschema:"replicates per reconstruction"`
	Reconstructions int      `json:"reconstructions,omitempty" jsonschema:"networks built with same-time events reordered"`
	Seed            uint64   `json:"seed,omitempty" jsonschema:"random seed"`
	Partition       string   `json:"partition,omitempty" jsonschema:"block partition unit: year or month; empty runs the whole network"`
	ResumeFrom      string   `json:"resume_from,omitempty" jsonschema:"id of a stored run whose final beliefs are carried in"`
	Output          string   `json:"output,omitempty" jsonschema:"directory to also write the result file to"`
}

// ContagionRunOutput defines the output for the contagion_run tool.
type ContagionRunOutput struct {
	RunID       string    `json:"run_id" jsonschema:"id of the stored run"`
	FileName    string    `json:"file_name" jsonschema:"conventional result file name"`
	Path        string    `json:"path,omitempty" jsonschema:"file written when output was set"`
	Axis        string    `json:"axis" jsonschema:"time axis: order, day or tick"`
	Replicates  int       `json:"replicates"`
	Points      int       `json:"points" jsonschema:"rows of the result table"`
	FinalCounts []int     `json:"final_counts" jsonschema:"final adopter count per replicate"`
	Mean        []float64 `json:"mean" jsonschema:"mean adopter count per row"`
	Message     string    `json:"message"`
}

// ContagionSweepInput defines the input for the contagion_sweep tool.
type ContagionSweepInput struct {
	Records       string    `json:"records" jsonschema:"path of the records, relative to the server root"`
	Format        string    `json:"format,omitempty" jsonschema:"record format: movies or shifts"`
	Engine        string    `json:"engine,omitempty" jsonschema:"propagation engine"`
	Probabilities []float64 `json:"probabilities,omitempty" jsonschema:"p values of the grid"`
	Doses         []float64 `json:"doses,omitempty" jsonschema:"d values of the grid"`
	Thresholds    []float64 `json:"thresholds,omitempty" jsonschema:"t values of the grid"`
	Iterations    int       `json:"iterations,omitempty" jsonschema:"replicates per tuple"`
	Seed          uint64    `json:"seed,omitempty" jsonschema:"random seed shared by every tuple"`
}

// SweepTuple is the outcome of one grid point.
type SweepTuple struct {
	P         float64 `json:"p"`
	D         float64 `json:"d"`
	T         float64 `json:"t"`
	RunID     string  `json:"run_id,omitempty"`
	FinalMean float64 `json:"final_mean"`
	Error     string  `json:"error,omitempty"`
}

// ContagionSweepOutput defines the output for the contagion_sweep tool.
type ContagionSweepOutput struct {
	Tuples  []SweepTuple `json:"tuples"`
	Failed  int          `json:"failed"`
	Message string       `json:"message"`
}

// BackfillPoint is one (time, count) pair.
type BackfillPoint struct {
	Time  int `json:"time"`
	Count int `json:"count"`
}

// ContagionBackfillInput defines the input for the contagion_backfill tool.
type ContagionBackfillInput struct {
	Points []BackfillPoint `json:"points" jsonschema:"sparse series with strictly increasing times"`
	End    *int            `json:"end,omitempty" jsonschema:"last time to extend the series to"`
}

// ContagionBackfillOutput defines the output for the contagion_backfill tool.
type ContagionBackfillOutput struct {
	Points []BackfillPoint `json:"points"`
}

// ContagionRunsInput defines the input for the contagion_runs tool.
type ContagionRunsInput struct {
	NetworkType string `json:"network_type,omitempty" jsonschema:"only runs of this network type"`
	Engine      string `json:"engine,omitempty" jsonschema:"only runs of this engine"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of runs, newest first"`
}

// RunSummary is a list view of a stored run.
type RunSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	NetworkType string  `json:"network_type"`
	Engine      string  `json:"engine"`
	P           float64 `json:"p"`
	D           float64 `json:"d"`
	T           float64 `json:"t"`
	Replicates  int     `json:"replicates"`
	Axis        string  `json:"axis"`
	FileName    string  `json:"file_name"`
	CreatedAt   string  `json:"created_at"`
}

// ContagionRunsOutput defines the output for the contagion_runs tool.
type ContagionRunsOutput struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}

// ContagionFileNameInput defines the input for the contagion_filename tool.
// With Name set the name is parsed; otherwise one is composed.
type ContagionFileNameInput struct {
	Name        string  `json:"name,omitempty" jsonschema:"result file name to parse"`
	NetworkType string  `json:"network_type,omitempty" jsonschema:"network type to compose a name for"`
	P           float64 `json:"p,omitempty"`
	D           float64 `json:"d,omitempty"`
	T           float64 `json:"t,omitempty"`
	Version     string  `json:"version,omitempty"`
}

// ContagionFileNameOutput defines the output for the contagion_filename tool.
type ContagionFileNameOutput struct {
	FileName    string  `json:"file_name"`
	NetworkType string  `json:"network_type"`
	P           float64 `json:"p"`
	D           float64 `json:"d"`
	T           float64 `json:"t"`
	Version     string  `json:"version"`
}
