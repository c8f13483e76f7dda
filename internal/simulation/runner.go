package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/logging"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/store"
)

// WholeBlock is the block key of an unpartitioned run.
const WholeBlock = "all"

// Experiment defines a complete simulation experiment.
type Experiment struct {
	Name        string
	NetworkType string
	Version     string

	Records []network.Record
	Engine  contagion.Config
	// Network configures seeding. Threshold and Rand are set per replicate.
	Network network.Options

	// Partition cuts the records into stitched blocks. A zero Unit runs the
	// whole network as one block.
	Partition    network.PartitionOptions
	ReseedBlocks bool
	// Carried holds beliefs from an earlier run to resume from.
	Carried map[string]float64

	Iterations      int // replicates per reconstruction, default 1
	Reconstructions int // default 1
	Seed            uint64
	// Workers bounds concurrent replicates; 0 uses one per CPU.
	Workers int
	// Summarize adds the mean, median and percentile columns.
	Summarize bool
}

func (e Experiment) withDefaults() Experiment {
	if e.Iterations < 1 {
		e.Iterations = 1
	}
	if e.Reconstructions < 1 {
		e.Reconstructions = 1
	}
	if e.Workers < 1 {
		e.Workers = runtime.GOMAXPROCS(0)
	}
	if e.Version == "" {
		e.Version = "1"
	}
	return e
}

// Replicate is the outcome of one engine run.
type Replicate struct {
	Name           string
	Reconstruction int
	Iteration      int
	History        history.History
	Beliefs        map[string]float64
}

// Result captures every replicate and their merged table.
type Result struct {
	Experiment Experiment
	Replicates []Replicate
	Table      *results.Table
	// Beliefs are the final beliefs of the first replicate, the state a
	// later run resumes from.
	Beliefs map[string]float64
	// RunID is set when the runner persisted the result.
	RunID string
}

// Runner executes experiments and optionally persists them.
type Runner struct {
	Logger *slog.Logger
	Trace  *logging.TraceLogger
	Store  store.RunStore
}

// NewRunner creates a runner. All arguments may be nil.
func NewRunner(logger *slog.Logger, trace *logging.TraceLogger, st store.RunStore) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{Logger: logger, Trace: trace, Store: st}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}

// Run executes all replicates of exp and merges them into one table. The
// first failing replicate cancels the rest and its error is returned.
func (r *Runner) Run(ctx context.Context, exp Experiment) (*Result, error) {
	exp = exp.withDefaults()
	if err := exp.Engine.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger().With("experiment", exp.Name, "engine", exp.Engine.Kind, "params", exp.Engine.Params.String())
	trace := r.Trace.With(map[string]any{
		"experiment": exp.Name,
		"engine":     string(exp.Engine.Kind),
		"p":          exp.Engine.Params.Probability,
		"d":          exp.Engine.Params.Dose,
		"t":          exp.Engine.Params.Threshold,
	})

	blocks := make([][]network.Block, exp.Reconstructions)
	for k := range blocks {
		records := exp.Records
		if k > 0 {
			records = network.ShuffleTies(records, shuffleRand(exp.Seed, k))
		}
		b, err := partition(records, exp.Partition)
		if err != nil {
			return nil, err
		}
		blocks[k] = b
	}

	reps := make([]Replicate, exp.Reconstructions*exp.Iterations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exp.Workers)
	for k := range exp.Reconstructions {
		for i := range exp.Iterations {
			g.Go(func() error {
				rep, err := r.replicate(gctx, exp, blocks[k], k, i, logger, trace)
				if err != nil {
					trace.Failure(err, "reconstruction", k, "iteration", i)
					return fmt.Errorf("replicate %s: %w", ReplicateName(k, i, exp.Iterations), err)
				}
				reps[k*exp.Iterations+i] = rep
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := alignEnds(reps); err != nil {
		return nil, err
	}
	table := results.NewTable()
	for _, rep := range reps {
		if err := table.Add(rep.Name, rep.History); err != nil {
			return nil, fmt.Errorf("merge replicates: %w", err)
		}
	}
	if exp.Summarize {
		table.Summarize()
	}

	res := &Result{
		Experiment: exp,
		Replicates: reps,
		Table:      table,
		Beliefs:    maps.Clone(reps[0].Beliefs),
	}
	logger.Info("experiment done", "replicates", len(reps), "points", table.Len())

	if r.Store != nil {
		if err := r.save(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) replicate(ctx context.Context, exp Experiment, blocks []network.Block, k, i int, logger *slog.Logger, trace *logging.TraceLogger) (Replicate, error) {
	name := ReplicateName(k, i, exp.Iterations)
	st, err := contagion.NewStitcher(exp.Engine, exp.Network, logger.With("replicate", name))
	if err != nil {
		return Replicate{}, err
	}
	st.ReseedBlocks = exp.ReseedBlocks
	st.Trace = trace.With(map[string]any{"replicate": name})

	h, beliefs, err := st.Run(ctx, blocks, exp.Carried, ReplicateRand(exp.Seed, k, i))
	if err != nil {
		return Replicate{}, err
	}

	final := h.Final()
	logger.Log(ctx, logging.LevelTrace, "replicate done", "replicate", name, "final", final)
	trace.Event(logging.EventReplicate, "replicate", name, "reconstruction", k, "iteration", i, "final", final)

	return Replicate{
		Name:           name,
		Reconstruction: k,
		Iteration:      i,
		History:        h,
		Beliefs:        beliefs,
	}, nil
}

// save persists res and fills in its RunID.
func (r *Runner) save(ctx context.Context, res *Result) error {
	exp := res.Experiment
	run := &store.Run{
		Name:        exp.Name,
		NetworkType: exp.NetworkType,
		Engine:      exp.Engine.Kind,
		Params:      exp.Engine.Params,
		Version:     exp.Version,
		Seed:        exp.Seed,
		Replicates:  len(res.Replicates),
		Axis:        res.Table.Axis(),
	}
	if run.NetworkType == "" {
		run.NetworkType = "network"
	}
	if err := r.Store.SaveRun(ctx, run, res.Table); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := r.Store.SaveBeliefs(ctx, run.ID, res.Beliefs); err != nil {
		return fmt.Errorf("save beliefs: %w", err)
	}
	res.RunID = run.ID
	r.logger().Debug("run saved", "id", run.ID)
	return nil
}

// alignEnds extends every replicate with its final count to the latest end
// time among them. Reordered ties can move the end of a day-axis series when
// same-day events differ in duration.
func alignEnds(reps []Replicate) error {
	end := 0
	for _, rep := range reps {
		if n := len(rep.History.Points); n > 0 {
			end = max(end, rep.History.Points[n-1].Time)
		}
	}
	for i := range reps {
		pts := reps[i].History.Points
		if len(pts) == 0 || pts[len(pts)-1].Time == end {
			continue
		}
		dense, err := history.Backfill(pts, history.WithEnd(end))
		if err != nil {
			return fmt.Errorf("replicate %s: %w", reps[i].Name, err)
		}
		reps[i].History.Points = dense
	}
	return nil
}

// partition returns the stitched blocks of records, or a single block when
// opts has no unit.
func partition(records []network.Record, opts network.PartitionOptions) ([]network.Block, error) {
	if len(records) == 0 {
		return nil, errors.New("simulation: no records")
	}
	if opts.Unit == "" {
		return []network.Block{{Key: WholeBlock, Records: records}}, nil
	}
	return network.Partition(records, opts)
}

// Resume loads the beliefs of a stored run for use as Experiment.Carried.
func Resume(ctx context.Context, st store.RunStore, runID string) (map[string]float64, error) {
	beliefs, err := st.LoadBeliefs(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("resume from %s: %w", runID, err)
	}
	return beliefs, nil
}
