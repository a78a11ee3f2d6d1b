/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Persists policy definitions and computed payroll runs. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  policies:    JSON policy configurations, keyed by (jurisdiction, year)
  runs:        One row per batch computation, with summary totals
  run_results: Per-employee outcome rows for a run (result or error)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - api/handlers.go: HTTP layer persisting runs through this store
  - factory/policy.go: JSON config format stored in policies.config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store persists policies and payroll runs using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Policies (JSON configurations, one row per jurisdiction+year)
	CREATE TABLE IF NOT EXISTS policies (
		jurisdiction TEXT NOT NULL,
		version_year INTEGER NOT NULL,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (jurisdiction, version_year)
	);

	-- Payroll runs (one row per batch computation)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		jurisdiction TEXT NOT NULL,
		version_year INTEGER NOT NULL,
		period TEXT NOT NULL,
		employee_count INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		total_gross TEXT NOT NULL,
		total_net TEXT NOT NULL,
		total_employer_cost TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_period
		ON runs(period);
	CREATE INDEX IF NOT EXISTS idx_runs_policy
		ON runs(jurisdiction, version_year);

	-- Per-employee outcomes within a run (hot path for run export)
	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		result_json TEXT,
		error_text TEXT,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_results_employee
		ON run_results(employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE
// =============================================================================

// PolicyRecord is a stored policy with its JSON config.
type PolicyRecord struct {
	Jurisdiction string
	VersionYear  int
	Name         string
	ConfigJSON   string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SavePolicy saves a policy record, bumping the version on replace.
func (s *Store) SavePolicy(ctx context.Context, policy PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO policies (jurisdiction, version_year, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(jurisdiction, version_year) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		policy.Jurisdiction, policy.VersionYear, policy.Name, policy.ConfigJSON,
		policy.Version, now, now,
	)
	return err
}

// GetPolicy retrieves a policy by jurisdiction and version year.
// Returns nil without error when no row exists.
func (s *Store) GetPolicy(ctx context.Context, jurisdiction string, year int) (*PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PolicyRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT jurisdiction, version_year, name, config_json, version, created_at, updated_at FROM policies WHERE jurisdiction = ? AND version_year = ?",
		jurisdiction, year,
	).Scan(&p.Jurisdiction, &p.VersionYear, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// ListPolicies returns all stored policies.
func (s *Store) ListPolicies(ctx context.Context) ([]PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT jurisdiction, version_year, name, config_json, version, created_at, updated_at FROM policies ORDER BY jurisdiction, version_year",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []PolicyRecord
	for rows.Next() {
		var p PolicyRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&p.Jurisdiction, &p.VersionYear, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// DeletePolicy removes a policy.
func (s *Store) DeletePolicy(ctx context.Context, jurisdiction string, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM policies WHERE jurisdiction = ? AND version_year = ?",
		jurisdiction, year,
	)
	return err
}

// =============================================================================
// RUN STORE
// =============================================================================

// RunRecord is the stored summary of a batch computation.
type RunRecord struct {
	ID                string
	Jurisdiction      string
	VersionYear       int
	Period            string
	EmployeeCount     int
	Succeeded         int
	Failed            int
	TotalGross        payroll.Money
	TotalNet          payroll.Money
	TotalEmployerCost payroll.Money
	CreatedAt         time.Time
}

// RunResultRow is one stored per-employee outcome. Exactly one of
// ResultJSON and ErrorText is set.
type RunResultRow struct {
	RunID      string
	Index      int
	EmployeeID string
	ResultJSON string
	ErrorText  string
}

// SaveRun stores a run and all of its per-employee outcomes atomically.
func (s *Store) SaveRun(ctx context.Context, run RunRecord, batch *payroll.BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, jurisdiction, version_year, period, employee_count, succeeded, failed,
		 total_gross, total_net, total_employer_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Jurisdiction,
		run.VersionYear,
		run.Period,
		run.EmployeeCount,
		run.Succeeded,
		run.Failed,
		run.TotalGross.String(),
		run.TotalNet.String(),
		run.TotalEmployerCost.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	for _, out := range batch.Outcomes {
		var resultJSON, errorText sql.NullString
		var employeeID string
		if out.Result != nil {
			raw, err := json.Marshal(out.Result)
			if err != nil {
				return fmt.Errorf("marshal result %d: %w", out.Index, err)
			}
			resultJSON = sql.NullString{String: string(raw), Valid: true}
			employeeID = out.Result.EmployeeID
		}
		if out.Err != nil {
			errorText = sql.NullString{String: out.Err.Error(), Valid: true}
			employeeID = out.Err.EmployeeID
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_results (run_id, idx, employee_id, result_json, error_text)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, out.Index, employeeID, resultJSON, errorText,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run summary by ID. Returns nil without error when
// no row exists.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, jurisdiction, version_year, period, employee_count, succeeded, failed,
		        total_gross, total_net, total_employer_cost, created_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns stored runs, newest first, limited to limit rows
// (0 means no limit).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, jurisdiction, version_year, period, employee_count, succeeded, failed,
	                 total_gross, total_net, total_employer_cost, created_at
	          FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunResults returns the stored per-employee outcomes of a run in
// input order.
func (s *Store) GetRunResults(ctx context.Context, runID string) ([]RunResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, idx, employee_id, result_json, error_text FROM run_results WHERE run_id = ? ORDER BY idx",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunResultRow
	for rows.Next() {
		var r RunResultRow
		var resultJSON, errorText sql.NullString
		if err := rows.Scan(&r.RunID, &r.Index, &r.EmployeeID, &resultJSON, &errorText); err != nil {
			return nil, err
		}
		r.ResultJSON = resultJSON.String
		r.ErrorText = errorText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*RunRecord, error) {
	var run RunRecord
	var gross, net, cost, createdAt string

	err := scan(&run.ID, &run.Jurisdiction, &run.VersionYear, &run.Period,
		&run.EmployeeCount, &run.Succeeded, &run.Failed,
		&gross, &net, &cost, &createdAt)
	if err != nil {
		return nil, err
	}

	if run.TotalGross, err = decimal.NewFromString(gross); err != nil {
		return nil, fmt.Errorf("total_gross: %w", err)
	}
	if run.TotalNet, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("total_net: %w", err)
	}
	if run.TotalEmployerCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("total_employer_cost: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &run, nil
}

// Reset clears all data. Intended for tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"run_results", "runs", "policies"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
