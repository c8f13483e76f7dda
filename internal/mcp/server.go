package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/logging"
	"github.com/nvandessel/contagion/internal/pathutil"
	"github.com/nvandessel/contagion/internal/ratelimit"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

// runURIPrefix addresses the result table of a stored run.
const runURIPrefix = "contagion://runs/"

// Server wraps the MCP SDK server and exposes simulations as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	ownsStore    bool
	runner       *simulation.Runner
	settings     *config.Config
	sandbox      *pathutil.Sandbox
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "contagion")
	Version string // Server version
	// Root is the working directory; tool paths resolve against it.
	Root string
	// Settings supply defaults for unset tool fields. Nil uses config.Default.
	Settings *config.Config
	// Store persists runs. Nil opens the SQLite store Settings point to.
	Store store.RunStore
	// AuditDir holds audit.jsonl. Empty uses ~/.contagion; "-" disables
	// auditing.
	AuditDir string
	Logger   *slog.Logger
}

// NewServer creates a new MCP server with the contagion tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	sandbox, err := pathutil.DefaultSandbox(cfg.Root)
	if err != nil {
		return nil, err
	}

	st, owns := cfg.Store, false
	if st == nil {
		st, err = openStore(settings)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	var audit *AuditLogger
	switch cfg.AuditDir {
	case "-":
	case "":
		if dir, err := store.GlobalPath(); err == nil {
			audit = NewAuditLogger(dir)
		}
	default:
		audit = NewAuditLogger(cfg.AuditDir)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		store:        st,
		ownsStore:    owns,
		runner:       simulation.NewRunner(logger, nil, st),
		settings:     settings,
		sandbox:      sandbox,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  audit,
		logger:       logger,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

func openStore(settings *config.Config) (store.RunStore, error) {
	path := settings.Store.Path
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	st, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return st, nil
}

// registerResources exposes every stored run's result table.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "contagion-run-table",
		Description: "Adoption table of a stored run in split-orient JSON.",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	table, err := s.store.LoadTable(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if err := table.WriteJSON(&b); err != nil {
		return nil, err
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     b.String(),
		}},
	}, nil
}

// Run serves over stdio until the client disconnects, the context is
// cancelled or the process is interrupted.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the audit log and, when the server opened it, the store.
func (s *Server) Close() error {
	err := s.auditLogger.Close()
	if s.ownsStore {
		if serr := s.store.Close(); err == nil {
			err = serr
		}
		s.ownsStore = false
	}
	return err
}
