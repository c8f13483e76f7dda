package simulation

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/logging"
)

// Grid is a parameter sweep: every combination of the three axes. An empty
// axis holds the base experiment's value.
type Grid struct {
	Probabilities []float64
	Doses         []float64
	Thresholds    []float64
}

// Tuples expands the grid around base in probability-major order.
func (g Grid) Tuples(base contagion.Params) []contagion.Params {
	ps := g.Probabilities
	if len(ps) == 0 {
		ps = []float64{base.Probability}
	}
	ds := g.Doses
	if len(ds) == 0 {
		ds = []float64{base.Dose}
	}
	ts := g.Thresholds
	if len(ts) == 0 {
		ts = []float64{base.Threshold}
	}
	out := make([]contagion.Params, 0, len(ps)*len(ds)*len(ts))
	for _, p := range ps {
		for _, d := range ds {
			for _, t := range ts {
				out = append(out, contagion.Params{Probability: p, Dose: d, Threshold: t})
			}
		}
	}
	return out
}

// SweepResult is the outcome of one tuple. Exactly one of Result and Err is
// set.
type SweepResult struct {
	Params contagion.Params
	Result *Result
	Err    error
}

// Sweep runs base once per grid tuple with at most workers tuples in flight
// (0 uses one per CPU). Each tuple runs its replicates serially on its own
// networks. A failing tuple does not stop the others; the returned error is
// only set when ctx ends the sweep early.
func (r *Runner) Sweep(ctx context.Context, base Experiment, grid Grid, workers int) ([]SweepResult, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	tuples := grid.Tuples(base.Engine.Params)
	out := make([]SweepResult, len(tuples))

	var g errgroup.Group
	g.SetLimit(workers)
	for k, params := range tuples {
		g.Go(func() error {
			exp := base
			exp.Engine.Params = params
			exp.Workers = 1
			if exp.Name == "" {
				exp.Name = params.String()
			} else {
				exp.Name = fmt.Sprintf("%s %s", base.Name, params)
			}

			out[k].Params = params
			if err := ctx.Err(); err != nil {
				out[k].Err = err
				return nil
			}
			res, err := r.Run(ctx, exp)
			out[k].Result, out[k].Err = res, err
			if err != nil {
				r.logger().Warn("sweep tuple failed", "params", params.String(), "error", err)
			}
			r.Trace.Event(logging.EventSweepTuple, "p", params.Probability, "d", params.Dose,
				"t", params.Threshold, "ok", err == nil)
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}
