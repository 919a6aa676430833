// Package history keeps a local SQLite journal of upload results. The
// journal is write-only from the upload path: nothing reads it to decide
// what to upload.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/tonimelisma/gupload/internal/upload"
)

// dbDirPermissions is used when creating the journal's parent directory.
const dbDirPermissions = 0o700

// defaultListLimit caps List when the caller passes no limit.
const defaultListLimit = 50

const (
	sqlInsertUpload = `INSERT INTO uploads
		(run_id, recorded_at, path, remote_id, status, reason,
		 name, name_status, type, type_status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlListUploads = `SELECT id, run_id, recorded_at, path, remote_id, status, reason,
		name, name_status, type, type_status, notes
		FROM uploads
		WHERE (? = '' OR path = ?)
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`
)

// Record is one journal row.
type Record struct {
	ID         int64
	RunID      string
	RecordedAt time.Time
	Path       string
	RemoteID   int64 // zero when the upload failed
	Status     string
	Reason     string
	Name       string
	NameStatus string
	Type       string
	TypeStatus string
	Notes      string
}

// Filter narrows List. Zero values mean "all" and the default limit.
type Filter struct {
	Path  string
	Limit int
}

// Journal appends upload results under a per-process run id.
type Journal struct {
	db      *sql.DB
	runID   string
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the journal at dbPath and applies migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirPermissions); err != nil {
		return nil, fmt.Errorf("history: creating directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{
		db:      db,
		runID:   uuid.NewString(),
		logger:  logger,
		nowFunc: time.Now,
	}

	logger.Debug("history journal opened", slog.String("db_path", dbPath), slog.String("run_id", j.runID))

	return j, nil
}

// RunID identifies the rows written by this process.
func (j *Journal) RunID() string { return j.runID }

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one upload result. It satisfies upload.Recorder.
func (j *Journal) Record(ctx context.Context, r upload.Result) error {
	a := r.Activity

	var remoteID sql.NullInt64
	if id, ok := a.RemoteID(); ok {
		remoteID = sql.NullInt64{Int64: id, Valid: true}
	}

	path := a.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	_, err := j.db.ExecContext(ctx, sqlInsertUpload,
		j.runID,
		j.nowFunc().UnixNano(),
		path,
		remoteID,
		r.Outcome.Kind.String(),
		r.Outcome.Reason,
		a.Name,
		mutationLabel(r.Name),
		a.Type,
		mutationLabel(r.Type),
		a.Notes,
	)
	if err != nil {
		return fmt.Errorf("history: recording %s: %w", a.Path, err)
	}

	return nil
}

func mutationLabel(m upload.MutationStatus) string {
	if m.State == upload.MutationNotRequested {
		return ""
	}

	return m.State.String()
}

// List returns the most recent records first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := j.db.QueryContext(ctx, sqlListUploads, f.Path, f.Path, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing uploads: %w", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		var (
			rec      Record
			nanos    int64
			remoteID sql.NullInt64
		)

		if err := rows.Scan(&rec.ID, &rec.RunID, &nanos, &rec.Path, &remoteID, &rec.Status, &rec.Reason,
			&rec.Name, &rec.NameStatus, &rec.Type, &rec.TypeStatus, &rec.Notes); err != nil {
			return nil, fmt.Errorf("history: scanning upload row: %w", err)
		}

		rec.RecordedAt = time.Unix(0, nanos)
		rec.RemoteID = remoteID.Int64
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating upload rows: %w", err)
	}

	return out, nil
}
