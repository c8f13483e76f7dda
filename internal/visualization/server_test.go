package visualization

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/store"
)

func testServer(t *testing.T, st store.RunStore) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(testNetwork(t), network.WeightShifts, st).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestServer_Graph(t *testing.T) {
	ts := testServer(t, nil)

	resp, body := get(t, ts.URL+"/graph.json?view=projected")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var g Graph
	if err := json.Unmarshal([]byte(body), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if g.View != ViewProjected || g.EdgeCount != 2 {
		t.Errorf("graph = %+v", g)
	}

	resp, body = get(t, ts.URL+"/graph.dot")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "graph bipartite") {
		t.Errorf("GET /graph.dot = %d %q", resp.StatusCode, body)
	}

	resp, _ = get(t, ts.URL+"/graph.json?view=radial")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown view status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Index(t *testing.T) {
	resp, body := get(t, testServer(t, nil).URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "agents: 3") || strings.Contains(body, "/api/runs") {
		t.Errorf("index = %q", body)
	}

	resp, _ = get(t, testServer(t, nil).URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Runs(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryRunStore()
	table := results.NewTable()
	h := history.History{Axis: history.AxisOrder, Points: []history.Point{
		{Time: 0, Key: 1999, Count: 1},
		{Time: 1, Key: 2000, Count: 2},
	}}
	if err := table.Add("0", h); err != nil {
		t.Fatal(err)
	}
	run := &store.Run{
		NetworkType: "movie",
		Engine:      contagion.KindPairwise,
		Params:      contagion.Params{Probability: 0.1, Dose: 0.5, Threshold: 0.5},
		Version:     "1",
		Replicates:  1,
		Axis:        history.AxisOrder,
	}
	if err := st.SaveRun(ctx, run, table); err != nil {
		t.Fatal(err)
	}
	ts := testServer(t, st)

	resp, body := get(t, ts.URL+"/api/runs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var runs []store.Run
	if err := json.Unmarshal([]byte(body), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("runs = %+v", runs)
	}

	resp, body = get(t, ts.URL+"/api/runs/"+run.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got, err := results.ReadJSON(strings.NewReader(body), history.AxisOrder)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("table rows = %d, want 2", got.Len())
	}

	resp, _ = get(t, ts.URL+"/api/runs/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_RunsWithoutStore(t *testing.T) {
	resp, _ := get(t, testServer(t, nil).URL+"/api/runs")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_CleanShutdown(t *testing.T) {
	srv := NewServer(testNetwork(t), network.WeightNone, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "") }()
	waitForServer(t, srv, 2*time.Second)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}

// waitForServer polls the server until it's ready or the timeout is reached.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
