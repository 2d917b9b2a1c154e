package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leapml/internal/evaluate"
)

var errNotOpened = errors.New("database not opened")

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// OpenSQLite opens path, applies migrations and returns the store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	s := NewSQLiteStore()
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Open connects to the database at path. Use ":memory:" for a private
// in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records a new running run.
func (s *SQLiteStore) CreateRun(command string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &Run{
		ID:        uuid.New().String(),
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun sets the final status of a run. Empty errMsg and artifactPath
// are stored as NULL.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg, artifactPath string) error {
	if s.db == nil {
		return errNotOpened
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ?, artifact_path = ? WHERE id = ?`,
		status, formatTime(time.Now().UTC()), nullString(errMsg), nullString(artifactPath), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, command, status, started_at, completed_at, error, artifact_path`

// GetRun returns a run by id.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordScores stores the entries of report for a run, replacing any scores
// already recorded for it.
func (s *SQLiteStore) RecordScores(runID string, report *evaluate.Report) (err error) {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(`DELETE FROM scores WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear scores: %w", err)
	}
	for i, e := range report.Entries {
		params, err := json.Marshal(e.BestParams)
		if err != nil {
			return fmt.Errorf("failed to encode params for %s: %w", e.Model, err)
		}
		_, err = tx.Exec(
			`INSERT INTO scores (run_id, position, model, kind, cv_r2, train_r2, test_r2, best_params)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, e.Model, e.Kind, nullFloat(e.CVScore), nullFloat(e.TrainR2), nullFloat(e.TestR2), string(params),
		)
		if err != nil {
			return fmt.Errorf("failed to record score for %s: %w", e.Model, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scores: %w", err)
	}
	return nil
}

// GetScores returns the scores of a run in candidate order.
func (s *SQLiteStore) GetScores(runID string) ([]Score, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT position, model, kind, cv_r2, train_r2, test_r2, best_params
		 FROM scores WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []Score
	for rows.Next() {
		var sc Score
		var cv, train, test sql.NullFloat64
		var params string
		if err := rows.Scan(&sc.Position, &sc.Model, &sc.Kind, &cv, &train, &test, &params); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		sc.CVR2, sc.TrainR2, sc.TestR2 = floatOrNaN(cv), floatOrNaN(train), floatOrNaN(test)
		if err := json.Unmarshal([]byte(params), &sc.BestParams); err != nil {
			return nil, fmt.Errorf("failed to decode params for %s: %w", sc.Model, err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var startedAt string
	var completedAt, errMsg, artifactPath sql.NullString
	if err := row.Scan(&run.ID, &run.Command, &run.Status, &startedAt, &completedAt, &errMsg, &artifactPath); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("bad started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("bad completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	run.ArtifactPath = artifactPath.String
	return run, nil
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullFloat maps NaN, which SQLite cannot store, to NULL.
func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
