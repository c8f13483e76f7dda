package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/results"
)

// SQLiteRunStore implements RunStore on a SQLite database file.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the run store at dbPath.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := EnsureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// timeLayout is fixed-width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, name, network_type, engine, probability, dose, threshold,
	version, seed, replicates, axis, created_at`

// SaveRun inserts or replaces a run and its table.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *Run, table *results.Table) error {
	if err := prepare(run); err != nil {
		return err
	}
	var buf bytes.Buffer
	if table != nil {
		if err := table.WriteJSON(&buf); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`, table_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			network_type = excluded.network_type,
			engine = excluded.engine,
			probability = excluded.probability,
			dose = excluded.dose,
			threshold = excluded.threshold,
			version = excluded.version,
			seed = excluded.seed,
			replicates = excluded.replicates,
			axis = excluded.axis,
			created_at = excluded.created_at,
			table_json = excluded.table_json`,
		run.ID, nullString(run.Name), run.NetworkType, string(run.Engine),
		run.Params.Probability, run.Params.Dose, run.Params.Threshold,
		run.Version, int64(run.Seed), run.Replicates, string(run.Axis),
		run.CreatedAt.UTC().Format(timeLayout), buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r         Run
		name      sql.NullString
		engine    string
		axis      string
		seed      int64
		createdAt string
	)
	if err := row.Scan(&r.ID, &name, &r.NetworkType, &engine,
		&r.Params.Probability, &r.Params.Dose, &r.Params.Threshold,
		&r.Version, &seed, &r.Replicates, &axis, &createdAt); err != nil {
		return nil, err
	}
	r.Name = name.String
	r.Engine = contagion.Kind(engine)
	r.Axis = history.Axis(axis)
	r.Seed = uint64(seed)
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = t
	return &r, nil
}

// GetRun returns the run with the given id.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns matching runs, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if filter.NetworkType != "" {
		where = append(where, "network_type = ?")
		args = append(args, filter.NetworkType)
	}
	if filter.Engine != "" {
		where = append(where, "engine = ?")
		args = append(args, string(filter.Engine))
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// LoadTable decodes the stored table of a run.
func (s *SQLiteRunStore) LoadTable(ctx context.Context, id string) (*results.Table, error) {
	s.mu.RLock()
	var (
		data []byte
		axis string
	)
	err := s.db.QueryRowContext(ctx, `SELECT table_json, axis FROM runs WHERE id = ?`, id).Scan(&data, &axis)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %s: %w", id, err)
	}
	if len(data) == 0 {
		return results.NewTable(), nil
	}
	return results.ReadJSON(bytes.NewReader(data), history.Axis(axis))
}

// SaveBeliefs replaces the beliefs of a run in one transaction.
func (s *SQLiteRunStore) SaveBeliefs(ctx context.Context, id string, beliefs map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check run %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_beliefs WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear beliefs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_beliefs (run_id, agent_id, belief) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare belief insert: %w", err)
	}
	defer stmt.Close()
	for agent, b := range beliefs {
		if _, err := stmt.ExecContext(ctx, id, agent, b); err != nil {
			return fmt.Errorf("failed to save belief of %s: %w", agent, err)
		}
	}
	return tx.Commit()
}

// LoadBeliefs returns the beliefs of a run.
func (s *SQLiteRunStore) LoadBeliefs(ctx context.Context, id string) (map[string]float64, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT agent_id, belief FROM run_beliefs WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load beliefs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			agent string
			b     float64
		)
		if err := rows.Scan(&agent, &b); err != nil {
			return nil, fmt.Errorf("failed to scan belief: %w", err)
		}
		out[agent] = b
	}
	return out, rows.Err()
}

// DeleteRun removes a run; its beliefs go with it.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
