package store

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/results"
)

// runStores returns each RunStore implementation under a fresh state.
func runStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqlite, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), DBFileName))
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]RunStore{
		"memory": NewInMemoryRunStore(),
		"sqlite": sqlite,
	}
}

func sampleTable(t *testing.T) *results.Table {
	t.Helper()
	tab := results.NewTable()
	for _, name := range []string{"0", "1"} {
		h := history.History{Axis: history.AxisOrder, Points: []history.Point{
			{Time: 0, Key: 1999, Count: 2},
			{Time: 1, Key: 2000, Count: 3},
		}}
		if err := tab.Add(name, h); err != nil {
			t.Fatal(err)
		}
	}
	return tab
}

func sampleRun(network string, kind contagion.Kind) *Run {
	return &Run{
		Name:        "test",
		NetworkType: network,
		Engine:      kind,
		Params:      contagion.Params{Probability: 0.1, Dose: 0.5, Threshold: 0.5},
		Version:     "1",
		Seed:        42,
		Replicates:  2,
		Axis:        history.AxisOrder,
	}
}

func TestRunStore_SaveGetLoad(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := sampleRun("movie", contagion.KindPairwise)
			if err := s.SaveRun(ctx, run, sampleTable(t)); err != nil {
				t.Fatalf("SaveRun() error = %v", err)
			}
			if run.ID == "" || run.CreatedAt.IsZero() {
				t.Fatalf("SaveRun did not assign id/time: %+v", run)
			}

			got, err := s.GetRun(ctx, run.ID)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if got.Params != run.Params || got.Engine != run.Engine || got.Seed != 42 || got.Axis != history.AxisOrder {
				t.Errorf("GetRun() = %+v", got)
			}
			if !got.CreatedAt.Equal(run.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
			}

			tab, err := s.LoadTable(ctx, run.ID)
			if err != nil {
				t.Fatalf("LoadTable() error = %v", err)
			}
			if tab.Axis() != history.AxisOrder || !slices.Equal(tab.Keys(), []int{1999, 2000}) {
				t.Errorf("table axis %s keys %v", tab.Axis(), tab.Keys())
			}
			col, ok := tab.Column("1")
			if !ok || !slices.Equal(col, []float64{2, 3}) {
				t.Errorf("column = %v", col)
			}
			if got.FileName() != "contagion_movie_p10_d50_t50_ver_1.json" {
				t.Errorf("FileName() = %s", got.FileName())
			}
		})
	}
}

func TestRunStore_Beliefs(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := sampleRun("shift", contagion.KindFull)
			if err := s.SaveRun(ctx, run, nil); err != nil {
				t.Fatal(err)
			}

			empty, err := s.LoadBeliefs(ctx, run.ID)
			if err != nil || len(empty) != 0 {
				t.Fatalf("LoadBeliefs() = %v, %v", empty, err)
			}

			in := map[string]float64{"a": 1, "b": 0.25}
			if err := s.SaveBeliefs(ctx, run.ID, in); err != nil {
				t.Fatalf("SaveBeliefs() error = %v", err)
			}
			// Replacing drops agents not in the new map.
			if err := s.SaveBeliefs(ctx, run.ID, map[string]float64{"a": 1}); err != nil {
				t.Fatal(err)
			}
			got, err := s.LoadBeliefs(ctx, run.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got["a"] != 1 {
				t.Errorf("LoadBeliefs() = %v", got)
			}

			if err := s.SaveBeliefs(ctx, "missing", in); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("SaveBeliefs(missing) error = %v", err)
			}
		})
	}
}

func TestRunStore_ListAndDelete(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			var ids []string
			for i, kind := range []contagion.Kind{contagion.KindPairwise, contagion.KindWalk, contagion.KindPairwise} {
				run := sampleRun("movie", kind)
				run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if err := s.SaveRun(ctx, run, nil); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, run.ID)
			}

			all, err := s.ListRuns(ctx, RunFilter{})
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Errorf("ListRuns() order wrong: %v", all)
			}

			pairwise, _ := s.ListRuns(ctx, RunFilter{Engine: contagion.KindPairwise})
			if len(pairwise) != 2 {
				t.Errorf("engine filter returned %d runs", len(pairwise))
			}
			limited, _ := s.ListRuns(ctx, RunFilter{Limit: 1})
			if len(limited) != 1 {
				t.Errorf("limit returned %d runs", len(limited))
			}
			none, _ := s.ListRuns(ctx, RunFilter{NetworkType: "shift"})
			if len(none) != 0 {
				t.Errorf("network filter returned %d runs", len(none))
			}

			if err := s.SaveBeliefs(ctx, ids[0], map[string]float64{"x": 1}); err != nil {
				t.Fatal(err)
			}
			if err := s.DeleteRun(ctx, ids[0]); err != nil {
				t.Fatalf("DeleteRun() error = %v", err)
			}
			if _, err := s.GetRun(ctx, ids[0]); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun after delete error = %v", err)
			}
			if _, err := s.LoadBeliefs(ctx, ids[0]); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("LoadBeliefs after delete error = %v", err)
			}
			if err := s.DeleteRun(ctx, ids[0]); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("second DeleteRun error = %v", err)
			}
			if _, err := s.LoadTable(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("LoadTable(missing) error = %v", err)
			}
		})
	}
}

func TestSQLiteRunStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", DBFileName)
	s, err := NewSQLiteRunStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	run := sampleRun("movie", contagion.KindSynchronous)
	if err := s.SaveRun(context.Background(), run, sampleTable(t)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := NewSQLiteRunStore(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != dbPath {
		t.Errorf("Path() = %s", reopened.Path())
	}
	if _, err := reopened.GetRun(context.Background(), run.ID); err != nil {
		t.Errorf("run lost across reopen: %v", err)
	}
	if err := ValidateIntegrity(context.Background(), reopened.db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}
