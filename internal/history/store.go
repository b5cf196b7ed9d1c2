package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cdmedia/internal/events"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// Entry is one finished import.
type Entry struct {
	ID              int64
	SessionID       string
	Device          string
	Destination     string
	ErrorCorrection bool
	Status          string
	ErrorKind       string
	ErrorMessage    string
	CleanupError    string
	Warnings        []string
	ExitCode        int
	Tracks          int
	DataBytes       int64
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Duration returns how long the import ran.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// EntryFromEvent converts a finished-import event into a journal entry.
func EntryFromEvent(ev events.ImportFinished) Entry {
	return Entry{
		SessionID:       ev.SessionID,
		Device:          ev.Device,
		Destination:     ev.Destination,
		ErrorCorrection: ev.ErrorCorrection,
		Status:          ev.Status,
		ErrorKind:       ev.ErrorKind,
		ErrorMessage:    ev.Error,
		CleanupError:    ev.CleanupError,
		Warnings:        ev.Warnings,
		ExitCode:        ev.ExitCode,
		Tracks:          ev.Tracks,
		DataBytes:       ev.DataBytes,
		StartedAt:       ev.StartedAt,
		FinishedAt:      ev.FinishedAt,
	}
}

// Store manages the import journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
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
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a new journal)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record inserts e and returns its row id. Recording the same session twice
// keeps the first row and returns 0.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.SessionID == "" {
		return 0, errors.New("history entry has no session id")
	}
	warnings := e.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return 0, fmt.Errorf("marshal warnings: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (
            session_id, device, destination, error_correction, status,
            error_kind, error_message, cleanup_error, warnings_json,
            exit_code, tracks, data_bytes, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO NOTHING`,
		e.SessionID,
		e.Device,
		e.Destination,
		boolToInt(e.ErrorCorrection),
		e.Status,
		nullableString(e.ErrorKind),
		nullableString(e.ErrorMessage),
		nullableString(e.CleanupError),
		string(warningsJSON),
		e.ExitCode,
		e.Tracks,
		e.DataBytes,
		formatTime(e.StartedAt),
		formatTime(e.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const selectColumns = `id, session_id, device, destination, error_correction, status,
    error_kind, error_message, cleanup_error, warnings_json,
    exit_code, tracks, data_bytes, started_at, finished_at`

// List returns the most recently finished imports first. A limit <= 0
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + selectColumns + " FROM imports ORDER BY finished_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return entries, nil
}

// Get returns the entry for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM imports WHERE session_id = ?", sessionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// CountByStatus returns the number of recorded imports per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM imports GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count imports: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan import count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import counts: %w", err)
	}
	return counts, nil
}

// Prune deletes entries that finished before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM imports WHERE finished_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune imports: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		e                                     Entry
		errorCorrection                       int
		errorKind, errorMessage, cleanupError sql.NullString
		warningsJSON, startedAt, finishedAt   string
	)
	if err := scanner.Scan(
		&e.ID, &e.SessionID, &e.Device, &e.Destination, &errorCorrection, &e.Status,
		&errorKind, &errorMessage, &cleanupError, &warningsJSON,
		&e.ExitCode, &e.Tracks, &e.DataBytes, &startedAt, &finishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan import: %w", err)
	}
	e.ErrorCorrection = errorCorrection != 0
	e.ErrorKind = errorKind.String
	e.ErrorMessage = errorMessage.String
	e.CleanupError = cleanupError.String
	if err := json.Unmarshal([]byte(warningsJSON), &e.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	var err error
	if e.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if e.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Timestamps are stored as fixed-width UTC RFC3339 so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}
