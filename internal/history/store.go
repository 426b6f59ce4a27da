package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"imgdupes/internal/finder"
	"imgdupes/internal/pipeline"
)

// timeLayout keeps a fixed width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit is the number of runs Recent returns when limit is not
// positive.
const DefaultLimit = 20

// Run is one recorded duplicate search.
type Run struct {
	ID               string
	Root             string
	Strategy         string
	StartedAt        time.Time
	Duration         time.Duration
	Files            int
	Groups           int
	DuplicateFiles   int
	ReclaimableBytes int64
	Outcome          string
	Error            string
}

// NewRun builds a Run for a finished search. groups is nil when the run
// failed or was cancelled; err decides the outcome.
func NewRun(id, root, strategyName string, startedAt time.Time, stats finder.Stats, groups []finder.Group, err error) Run {
	run := Run{
		ID:               id,
		Root:             root,
		Strategy:         strategyName,
		StartedAt:        startedAt.UTC(),
		Duration:         stats.Duration,
		Files:            stats.Files,
		Groups:           len(groups),
		DuplicateFiles:   finder.DuplicateFiles(groups),
		ReclaimableBytes: finder.Reclaimable(groups),
		Outcome:          pipeline.Outcome(err),
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts run. Recording the same ID twice replaces the earlier row.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("record run: id is required")
	}
	if run.Outcome == "" {
		run.Outcome = pipeline.OutcomeCompleted
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
            id, root, strategy, started_at, duration_ms, files,
            groups_found, duplicate_files, reclaimable_bytes, outcome, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Root,
		run.Strategy,
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Files,
		run.Groups,
		run.DuplicateFiles,
		run.ReclaimableBytes,
		run.Outcome,
		nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, strategy, started_at, duration_ms, files,
                groups_found, duplicate_files, reclaimable_bytes, outcome, error_message
         FROM runs
         ORDER BY started_at DESC, id DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			durationMS int64
			errMessage sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &run.Root, &run.Strategy, &startedAt, &durationMS, &run.Files,
			&run.Groups, &run.DuplicateFiles, &run.ReclaimableBytes, &run.Outcome, &errMessage,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.Error = errMessage.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Clear removes every recorded run.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
