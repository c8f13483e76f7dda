package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/store"
)

// Server serves a network's graph and the result tables of stored runs.
type Server struct {
	net        *network.Network
	weight     network.WeightType
	store      store.RunStore
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a graph server. st may be nil, which disables the run
// endpoints.
func NewServer(net *network.Network, wt network.WeightType, st store.RunStore) *Server {
	return &Server{net: net, weight: wt, store: st}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /graph.json", s.handleGraphJSON)
	mux.HandleFunc("GET /graph.dot", s.handleGraphDOT)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunTable)
	return mux
}

// ListenAndServe starts the HTTP server on addr (an OS-assigned localhost
// port when empty) and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "agents: %d\nevents: %d\n\n", s.net.AgentCount(), s.net.EventCount())
	fmt.Fprintln(w, "GET /graph.json?view=bipartite|projected")
	fmt.Fprintln(w, "GET /graph.dot?view=bipartite|projected")
	if s.store != nil {
		fmt.Fprintln(w, "GET /api/runs")
		fmt.Fprintln(w, "GET /api/runs/{id}")
	}
}

// view reads the view query parameter, defaulting to bipartite.
func view(r *http.Request) (View, error) {
	v := r.URL.Query().Get("view")
	if v == "" {
		return ViewBipartite, nil
	}
	return ParseView(v)
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	v, err := view(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := RenderJSON(s.net, v, s.weight)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, g)
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	v, err := view(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dot, err := RenderDOT(s.net, v, s.weight)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(dot))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "no run store configured", http.StatusNotFound)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{NetworkType: r.URL.Query().Get("network")})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunTable(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "no run store configured", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	table, err := s.store.LoadTable(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "run not found: "+id, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := table.WriteJSON(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
