package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/pathutil"
	"github.com/nvandessel/contagion/internal/ratelimit"
	"github.com/nvandessel/contagion/internal/store"
)

// chainMovies is a -> b -> c -> d across three years.
const chainMovies = `[
  {"_id": "e1", "year": 1999, "title": "One", "producers": [["a", "producer"], ["b", "producer"]]},
  {"_id": "e2", "year": 2000, "title": "Two", "producers": [["b", "producer"], ["c", "producer"]]},
  {"_id": "e3", "year": 2001, "title": "Three", "producers": [["c", "producer"], ["d", "producer"]]}
]`

// isolateHome sets HOME to a temp directory to avoid touching ~/.contagion.
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

// certainSettings make every exposure convert: p=1, d=1, t=0.5.
func certainSettings() *config.Config {
	cfg := config.Default()
	cfg.Model.Probability = 1
	cfg.Model.Dose = 1
	cfg.Model.Threshold = 0.5
	cfg.Run.Iterations = 2
	cfg.Run.Workers = 1
	return cfg
}

type testServer struct {
	*Server
	root  string
	store *store.InMemoryRunStore
	audit string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	isolateHome(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "movies.json"), []byte(chainMovies), 0644); err != nil {
		t.Fatal(err)
	}
	st := store.NewInMemoryRunStore()
	audit := t.TempDir()
	s, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Root:     root,
		Settings: certainSettings(),
		Store:    st,
		AuditDir: audit,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &testServer{Server: s, root: root, store: st, audit: audit}
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	if s.server == nil {
		t.Error("Server.server is nil")
	}
	if s.runner == nil || s.runner.Store == nil {
		t.Error("runner does not persist to the store")
	}
	if s.ownsStore {
		t.Error("server should not own a store it was given")
	}
	if s.auditLogger == nil {
		t.Error("audit logger not opened")
	}
	for _, tool := range []string{ratelimit.ToolRun, ratelimit.ToolSweep, ratelimit.ToolBackfill, ratelimit.ToolRuns, ratelimit.ToolFileName} {
		if s.toolLimiters[tool] == nil {
			t.Errorf("missing rate limiter for %s", tool)
		}
	}
}

func TestNewServer_InvalidSettings(t *testing.T) {
	isolateHome(t)
	cfg := config.Default()
	cfg.Model.Probability = 2
	_, err := NewServer(&Config{Root: t.TempDir(), Settings: cfg, Store: store.NewInMemoryRunStore(), AuditDir: "-"})
	if err == nil {
		t.Fatal("expected error for p outside [0,1]")
	}
}

func TestNewServer_OpensSQLiteStore(t *testing.T) {
	isolateHome(t)
	settings := config.Default()
	settings.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	s, err := NewServer(&Config{Root: t.TempDir(), Settings: settings, AuditDir: "-"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if !s.ownsStore {
		t.Error("server should own the store it opened")
	}
	if _, err := os.Stat(settings.Store.Path); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestHandleRun(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleRun(ctx, nil, ContagionRunInput{
		Records: "movies.json",
		Seeds:   []string{"a"},
		Output:  "results",
	})
	if err != nil {
		t.Fatalf("handleRun() error = %v", err)
	}

	if out.RunID == "" {
		t.Error("run was not stored")
	}
	if out.Replicates != 2 || out.Points != 4 {
		t.Errorf("replicates = %d, points = %d, want 2 and 4", out.Replicates, out.Points)
	}
	for i, c := range out.FinalCounts {
		if c != 4 {
			t.Errorf("final count %d = %d, want 4", i, c)
		}
	}
	wantMean := []float64{1, 2, 3, 4}
	for i, m := range wantMean {
		if out.Mean[i] != m {
			t.Errorf("mean[%d] = %v, want %v", i, out.Mean[i], m)
		}
	}
	if out.FileName != "contagion_movie_p100_d100_t50_ver_1.json" {
		t.Errorf("file name = %q", out.FileName)
	}
	if want := filepath.Join("results", out.FileName); !strings.HasSuffix(out.Path, want) {
		t.Errorf("path = %q, want suffix %q", out.Path, want)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("result file not written: %v", err)
	}

	run, err := s.store.GetRun(ctx, out.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Replicates != 2 {
		t.Errorf("stored replicates = %d, want 2", run.Replicates)
	}
}

func TestHandleRun_Overrides(t *testing.T) {
	s := newTestServer(t)
	zero := 0.0

	_, out, err := s.handleRun(context.Background(), nil, ContagionRunInput{
		Records:    "movies.json",
		Seeds:      []string{"a"},
		P:          &zero,
		Iterations: 3,
	})
	if err != nil {
		t.Fatalf("handleRun() error = %v", err)
	}
	if out.Replicates != 3 {
		t.Errorf("replicates = %d, want 3", out.Replicates)
	}
	for i, c := range out.FinalCounts {
		if c != 1 {
			t.Errorf("final count %d = %d, want 1 with p=0", i, c)
		}
	}
}

func TestHandleRun_Resume(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, first, err := s.handleRun(ctx, nil, ContagionRunInput{Records: "movies.json", Seeds: []string{"a"}})
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	_, resumed, err := s.handleRun(ctx, nil, ContagionRunInput{Records: "movies.json", ResumeFrom: first.RunID})
	if err != nil {
		t.Fatalf("resumed run error = %v", err)
	}
	for i, m := range resumed.Mean {
		if m != 4 {
			t.Errorf("resumed mean[%d] = %v, want 4", i, m)
		}
	}

	_, _, err = s.handleRun(ctx, nil, ContagionRunInput{Records: "movies.json", ResumeFrom: "missing"})
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestHandleRun_Errors(t *testing.T) {
	s := newTestServer(t)
	outside := filepath.Join(t.TempDir(), "movies.json")
	if err := os.WriteFile(outside, []byte(chainMovies), 0644); err != nil {
		t.Fatal(err)
	}
	bad := 1.5

	tests := []struct {
		name string
		args ContagionRunInput
		want error
	}{
		{"empty path", ContagionRunInput{}, pathutil.ErrEmptyPath},
		{"outside root", ContagionRunInput{Records: outside}, pathutil.ErrOutsideDir},
		{"missing file", ContagionRunInput{Records: "nope.json"}, os.ErrNotExist},
		{"invalid threshold", ContagionRunInput{Records: "movies.json", T: &bad}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.toolLimiters = ratelimit.NewToolLimiters()
			_, _, err := s.handleRun(context.Background(), nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandleRun_RateLimited(t *testing.T) {
	s := newTestServer(t)
	args := ContagionRunInput{Records: "movies.json", Seeds: []string{"a"}}

	var limited bool
	for range 5 {
		if _, _, err := s.handleRun(context.Background(), nil, args); err != nil {
			if !strings.Contains(err.Error(), "rate limit") {
				t.Fatalf("unexpected error: %v", err)
			}
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected contagion_run to be rate limited after its burst")
	}
}

func TestHandleSweep(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSweep(context.Background(), nil, ContagionSweepInput{
		Records:       "movies.json",
		Probabilities: []float64{0, 1},
		Thresholds:    []float64{0.5, 2},
		Iterations:    1,
	})
	if err != nil {
		t.Fatalf("handleSweep() error = %v", err)
	}
	if len(out.Tuples) != 4 {
		t.Fatalf("got %d tuples, want 4", len(out.Tuples))
	}
	if out.Failed != 2 {
		t.Errorf("failed = %d, want 2 (threshold 2 is invalid)", out.Failed)
	}
	for _, tuple := range out.Tuples {
		switch {
		case tuple.T == 2:
			if tuple.Error == "" || tuple.RunID != "" {
				t.Errorf("tuple %+v should have failed", tuple)
			}
		case tuple.P == 0:
			if tuple.FinalMean != 1 {
				t.Errorf("p=0 final mean = %v, want 1", tuple.FinalMean)
			}
		default:
			if tuple.FinalMean != 4 {
				t.Errorf("p=1 final mean = %v, want 4", tuple.FinalMean)
			}
		}
	}
}

func TestHandleBackfill(t *testing.T) {
	s := newTestServer(t)
	end := 5

	_, out, err := s.handleBackfill(context.Background(), nil, ContagionBackfillInput{
		Points: []BackfillPoint{{Time: 0, Count: 1}, {Time: 3, Count: 2}},
		End:    &end,
	})
	if err != nil {
		t.Fatalf("handleBackfill() error = %v", err)
	}
	want := []int{1, 1, 1, 2, 2, 2}
	if len(out.Points) != len(want) {
		t.Fatalf("got %d points, want %d", len(out.Points), len(want))
	}
	for i, p := range out.Points {
		if p.Time != i || p.Count != want[i] {
			t.Errorf("point %d = %+v, want {%d %d}", i, p, i, want[i])
		}
	}

	_, _, err = s.handleBackfill(context.Background(), nil, ContagionBackfillInput{
		Points: []BackfillPoint{{Time: 2, Count: 1}, {Time: 2, Count: 2}},
	})
	if err == nil {
		t.Error("expected error for non-increasing times")
	}
}

func TestHandleRuns(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, run, err := s.handleRun(ctx, nil, ContagionRunInput{Records: "movies.json", Seeds: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}

	_, out, err := s.handleRuns(ctx, nil, ContagionRunsInput{NetworkType: "movie"})
	if err != nil {
		t.Fatalf("handleRuns() error = %v", err)
	}
	if out.Count != 1 || out.Runs[0].ID != run.RunID {
		t.Fatalf("runs = %+v", out.Runs)
	}
	if got := out.Runs[0]; got.Engine != "temporal-pairwise" || got.P != 1 || got.CreatedAt == "" {
		t.Errorf("summary = %+v", got)
	}

	_, out, err = s.handleRuns(ctx, nil, ContagionRunsInput{NetworkType: "clinical"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 0 {
		t.Errorf("count = %d, want 0", out.Count)
	}
}

func TestHandleFileName(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, composed, err := s.handleFileName(ctx, nil, ContagionFileNameInput{NetworkType: "clinical", P: 0.05, D: 0.5, T: 1})
	if err != nil {
		t.Fatalf("compose error = %v", err)
	}
	if composed.FileName != "contagion_clinical_p05_d50_t100_ver_1.json" {
		t.Errorf("file name = %q", composed.FileName)
	}

	_, parsed, err := s.handleFileName(ctx, nil, ContagionFileNameInput{Name: "/tmp/contagion_movie_p10_d50_t50_ver_2.json"})
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if parsed.NetworkType != "movie" || parsed.P != 0.1 || parsed.Version != "2" {
		t.Errorf("parsed = %+v", parsed)
	}

	if _, _, err := s.handleFileName(ctx, nil, ContagionFileNameInput{Name: "results.json"}); err == nil {
		t.Error("expected error for a non-conventional name")
	}
	if _, _, err := s.handleFileName(ctx, nil, ContagionFileNameInput{}); err == nil {
		t.Error("expected error without a network type")
	}
}

func TestHandleRunResource(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, run, err := s.handleRun(ctx, nil, ContagionRunInput{Records: "movies.json", Seeds: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.handleRunResource(ctx, &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: runURIPrefix + run.RunID},
	})
	if err != nil {
		t.Fatalf("handleRunResource() error = %v", err)
	}
	if len(res.Contents) != 1 || !strings.Contains(res.Contents[0].Text, `"columns"`) {
		t.Errorf("contents = %+v", res.Contents)
	}

	if _, err := s.handleRunResource(ctx, &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: runURIPrefix + "missing"},
	}); err == nil {
		t.Error("expected error for a missing run")
	}
}

func TestTools_AreAudited(t *testing.T) {
	s := newTestServer(t)
	if _, _, err := s.handleRun(context.Background(), nil, ContagionRunInput{Records: "movies.json", Seeds: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	s.auditLogger.Close()

	entries := readEntries(t, s.audit)
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Tool != ratelimit.ToolRun || entries[0].Params["records"] != "(set)" {
		t.Errorf("entry = %+v", entries[0])
	}
}
