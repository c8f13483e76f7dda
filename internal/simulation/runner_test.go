package simulation_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

// chain is a -> b -> c -> d across three years; with p=1 and d=1 every
// event converts its non-adopter.
func chain() []network.Record {
	return simulation.Records(
		simulation.EventSpec{ID: "e1", Year: 1999, Role: "producer", Agents: []string{"a", "b"}},
		simulation.EventSpec{ID: "e2", Year: 2000, Role: "producer", Agents: []string{"b", "c"}},
		simulation.EventSpec{ID: "e3", Year: 2001, Role: "producer", Agents: []string{"c", "d"}},
	)
}

func certain() contagion.Params {
	return contagion.Params{Probability: 1, Dose: 1, Threshold: 0.5}
}

func chainExperiment() simulation.Experiment {
	return simulation.Experiment{
		Name:        "chain",
		NetworkType: "movie",
		Records:     chain(),
		Engine:      contagion.DefaultConfig(contagion.KindPairwise, certain()),
		Network:     network.Options{Seeds: []string{"a"}},
		Iterations:  3,
		Seed:        7,
	}
}

// randomRecords builds a reproducible network with many same-year events.
func randomRecords(events, agents int) []network.Record {
	rng := rand.New(rand.NewPCG(11, 13))
	specs := make([]simulation.EventSpec, events)
	for i := range specs {
		size := 2 + rng.IntN(3)
		perm := rng.Perm(agents)[:size]
		ids := make([]string, size)
		for j, p := range perm {
			ids[j] = fmt.Sprintf("agent-%02d", p)
		}
		specs[i] = simulation.EventSpec{
			ID:     fmt.Sprintf("m%03d", i),
			Year:   1990 + i/6,
			Role:   "producer",
			Agents: ids,
		}
	}
	return simulation.Records(specs...)
}

func TestRun_DeterministicChain(t *testing.T) {
	r := simulation.NewRunner(nil, nil, nil)
	res, err := r.Run(context.Background(), chainExperiment())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Replicates) != 3 {
		t.Fatalf("expected 3 replicates, got %d", len(res.Replicates))
	}
	want := history.History{Axis: history.AxisOrder, Points: []history.Point{
		{Time: 0, Key: 1999, Count: 1},
		{Time: 1, Key: 1999, Count: 2},
		{Time: 2, Key: 2000, Count: 3},
		{Time: 3, Key: 2001, Count: 4},
	}}
	for _, rep := range res.Replicates {
		simulation.AssertSameHistory(t, rep.History, want)
	}

	if got := res.Table.Names(); !slices.Equal(got, []string{"0", "1", "2"}) {
		t.Errorf("table columns = %v", got)
	}
	if !slices.Equal(res.Table.Keys(), []int{1999, 1999, 2000, 2001}) {
		t.Errorf("table keys = %v", res.Table.Keys())
	}
	simulation.AssertColumn(t, res.Table, "2", []float64{1, 2, 3, 4})

	if len(res.Beliefs) != 4 || res.Beliefs["d"] != 1 {
		t.Errorf("final beliefs = %v", res.Beliefs)
	}
	if res.RunID != "" {
		t.Errorf("RunID should be empty without a store, got %q", res.RunID)
	}
}

func TestRun_Summarize(t *testing.T) {
	exp := chainExperiment()
	exp.Summarize = true
	res, err := simulation.NewRunner(nil, nil, nil).Run(context.Background(), exp)
	if err != nil {
		t.Fatal(err)
	}
	simulation.AssertColumn(t, res.Table, results.ColMean, []float64{1, 2, 3, 4})
	simulation.AssertColumn(t, res.Table, results.ColHigh, []float64{1, 2, 3, 4})
	if got := res.Table.Replicates(); len(got) != 3 {
		t.Errorf("summary columns should not count as replicates: %v", got)
	}
}

func TestRun_PartitionedCarriesBeliefs(t *testing.T) {
	exp := chainExperiment()
	exp.Iterations = 1
	exp.Partition = network.PartitionOptions{Unit: network.PartitionYear, Interval: 1}

	res, err := simulation.NewRunner(nil, nil, nil).Run(context.Background(), exp)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	h := res.Replicates[0].History
	if got := h.Counts(); !slices.Equal(got, []int{1, 2, 2, 3, 3, 4}) {
		t.Errorf("stitched counts = %v, want [1 2 2 3 3 4]", got)
	}
	simulation.AssertDense(t, h)
	simulation.AssertMonotonic(t, h)
}

func TestRun_ReproducibleAcrossWorkers(t *testing.T) {
	records := randomRecords(36, 15)
	params := contagion.Params{Probability: 0.5, Dose: 0.4, Threshold: 0.7}

	for _, kind := range contagion.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			cfg := contagion.DefaultConfig(kind, params)
			cfg.TimeLimit = 50
			run := func(workers int) *simulation.Result {
				t.Helper()
				res, err := simulation.NewRunner(nil, nil, nil).Run(context.Background(), simulation.Experiment{
					Records:         records,
					Engine:          cfg,
					Iterations:      3,
					Reconstructions: 2,
					Seed:            2024,
					Workers:         workers,
				})
				if err != nil {
					t.Fatalf("Run(workers=%d) error = %v", workers, err)
				}
				return res
			}

			serial, parallel := run(1), run(4)
			if len(serial.Replicates) != 6 {
				t.Fatalf("expected 6 replicates, got %d", len(serial.Replicates))
			}
			for i := range serial.Replicates {
				simulation.AssertSameHistory(t, parallel.Replicates[i].History, serial.Replicates[i].History)
			}
			simulation.AssertReplicatesMonotonic(t, serial)
			for _, rep := range serial.Replicates {
				simulation.AssertCountsWithin(t, rep.History, 1, 15)
			}
		})
	}
}

func TestRun_PersistsAndResumes(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryRunStore()
	r := simulation.NewRunner(nil, nil, st)

	res, err := r.Run(ctx, chainExperiment())
	if err != nil {
		t.Fatal(err)
	}
	if res.RunID == "" {
		t.Fatal("expected RunID after saving")
	}
	run, err := st.GetRun(ctx, res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Replicates != 3 || run.Engine != contagion.KindPairwise || run.Axis != history.AxisOrder {
		t.Errorf("stored run = %+v", run)
	}

	carried, err := simulation.Resume(ctx, st, res.RunID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	exp := chainExperiment()
	exp.Iterations = 1
	exp.Carried = carried
	resumed, err := r.Run(ctx, exp)
	if err != nil {
		t.Fatal(err)
	}
	// Everyone adopted in the first run, so the resumed run starts saturated.
	if got := resumed.Replicates[0].History.Counts(); !slices.Equal(got, []int{4, 4, 4, 4}) {
		t.Errorf("resumed counts = %v", got)
	}

	if _, err := simulation.Resume(ctx, st, "missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("Resume(missing) error = %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	r := simulation.NewRunner(nil, nil, nil)

	bad := chainExperiment()
	bad.Engine.Params.Threshold = 1.5
	if _, err := r.Run(context.Background(), bad); !errors.Is(err, contagion.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}

	empty := chainExperiment()
	empty.Records = nil
	if _, err := r.Run(context.Background(), empty); err == nil {
		t.Error("expected error for an experiment without records")
	}

	malformed := chainExperiment()
	malformed.Records = append(malformed.Records, network.Record{ID: "e4", Year: 2002})
	if _, err := r.Run(context.Background(), malformed); !errors.Is(err, network.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, chainExperiment()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGrid_Tuples(t *testing.T) {
	base := contagion.Params{Probability: 0.1, Dose: 0.2, Threshold: 0.3}
	got := simulation.Grid{Probabilities: []float64{0.5, 0.6}, Thresholds: []float64{0.7, 0.8}}.Tuples(base)
	want := []contagion.Params{
		{Probability: 0.5, Dose: 0.2, Threshold: 0.7},
		{Probability: 0.5, Dose: 0.2, Threshold: 0.8},
		{Probability: 0.6, Dose: 0.2, Threshold: 0.7},
		{Probability: 0.6, Dose: 0.2, Threshold: 0.8},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Tuples() = %v, want %v", got, want)
	}
	if got := (simulation.Grid{}).Tuples(base); !slices.Equal(got, []contagion.Params{base}) {
		t.Errorf("empty grid should hold the base tuple, got %v", got)
	}
}

func TestSweep(t *testing.T) {
	exp := chainExperiment()
	exp.Iterations = 1
	grid := simulation.Grid{
		Probabilities: []float64{0, 1},
		Thresholds:    []float64{0.5, 2},
	}

	out, err := simulation.NewRunner(nil, nil, nil).Sweep(context.Background(), exp, grid, 2)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 tuples, got %d", len(out))
	}

	finals := map[contagion.Params]int{}
	for _, sr := range out {
		if sr.Params.Threshold == 2 {
			if !errors.Is(sr.Err, contagion.ErrInvalidParams) {
				t.Errorf("tuple %v: expected ErrInvalidParams, got %v", sr.Params, sr.Err)
			}
			continue
		}
		if sr.Err != nil {
			t.Fatalf("tuple %v failed: %v", sr.Params, sr.Err)
		}
		finals[sr.Params] = sr.Result.Replicates[0].History.Final()
	}
	if got := finals[contagion.Params{Probability: 0, Dose: 1, Threshold: 0.5}]; got != 1 {
		t.Errorf("p=0 final = %d, want 1", got)
	}
	if got := finals[contagion.Params{Probability: 1, Dose: 1, Threshold: 0.5}]; got != 4 {
		t.Errorf("p=1 final = %d, want 4", got)
	}
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := simulation.NewRunner(nil, nil, nil).Sweep(ctx, chainExperiment(),
		simulation.Grid{Probabilities: []float64{0.1, 0.2}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	for _, sr := range out {
		if sr.Err == nil {
			t.Errorf("tuple %v should report cancellation", sr.Params)
		}
	}
}
