package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/circuit/internal/models"
)

// SQLiteDB stores the schedule in a single SQLite file.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens the database at path, creating its directory. The schema
// comes from RunMigrations with a sqlite:// URL.
func OpenSQLite(path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between the archive transaction and reads
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring sqlite: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ReplacePlan swaps the whole schedule for a new plan in one transaction.
func (s *SQLiteDB) ReplacePlan(ctx context.Context, meta json.RawMessage, workouts []ScheduledWorkout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plan_meta (id, meta, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET meta = excluded.meta, updated_at = excluded.updated_at`,
		string(metaOrDefault(meta)), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("storing plan meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_workouts`); err != nil {
		return fmt.Errorf("clearing schedule: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scheduled_workouts (position, workout_id, scheduled_date, title, doc) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, w := range workouts {
		if _, err := stmt.ExecContext(ctx, i, w.WorkoutID, w.ScheduledDate, w.Title, string(w.Doc)); err != nil {
			return fmt.Errorf("inserting scheduled workout %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing plan: %w", err)
	}
	return nil
}

// LoadPlan returns the stored meta and scheduled workouts in plan order.
func (s *SQLiteDB) LoadPlan(ctx context.Context) (*Plan, error) {
	plan := &Plan{}

	var meta string
	var updated int64
	err := s.db.QueryRowContext(ctx, `SELECT meta, updated_at FROM plan_meta WHERE id = 1`).Scan(&meta, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("querying plan meta: %w", err)
	default:
		plan.Meta = json.RawMessage(meta)
		plan.UpdatedAt = time.Unix(updated, 0)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, position, workout_id, scheduled_date, title, doc
		 FROM scheduled_workouts
		 ORDER BY position, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w ScheduledWorkout
		var doc string
		if err := rows.Scan(&w.Seq, &w.Position, &w.WorkoutID, &w.ScheduledDate, &w.Title, &doc); err != nil {
			return nil, fmt.Errorf("scanning scheduled workout: %w", err)
		}
		w.Doc = json.RawMessage(doc)
		plan.Workouts = append(plan.Workouts, w)
	}
	return plan, rows.Err()
}

// ArchiveWorkout moves a scheduled workout into the completed history.
func (s *SQLiteDB) ArchiveWorkout(ctx context.Context, seq int64, entry models.CompletedEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM scheduled_workouts WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("removing scheduled workout %d: %w", seq, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("removing scheduled workout %d: %w", seq, err)
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO completed_workouts (id, day, date, title, scheduled_date, completed_at, workout)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Day, entry.Date, entry.Title, entry.ScheduledDate, entry.CompletedAt, nullableJSON(entry.Workout),
	); err != nil {
		return fmt.Errorf("inserting completed workout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive: %w", err)
	}
	return nil
}

const sqliteCompletedColumns = `id, day, date, title, scheduled_date, completed_at, workout`

// ListCompleted returns the completed history, oldest first.
func (s *SQLiteDB) ListCompleted(ctx context.Context) ([]models.CompletedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteCompletedColumns+` FROM completed_workouts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying completed workouts: %w", err)
	}
	defer rows.Close()

	var out []models.CompletedEntry
	for rows.Next() {
		e, err := scanCompleted(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetCompleted returns one completed entry by ID.
func (s *SQLiteDB) GetCompleted(ctx context.Context, id string) (*models.CompletedEntry, error) {
	if !validEntryID(id) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteCompletedColumns+` FROM completed_workouts WHERE id = ?`, id)
	e, err := scanCompleted(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertImportLog creates a new import log entry and returns its ID.
func (s *SQLiteDB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_imports (created_at, source, status, workouts_received, workouts_accepted, duration_ms, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), log.Source, log.Status, log.WorkoutsReceived, log.WorkoutsAccepted, log.DurationMs, log.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return res.LastInsertId()
}

// UpdateImportLog updates an existing import log entry.
func (s *SQLiteDB) UpdateImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE plan_imports SET
		 status = ?, workouts_received = ?, workouts_accepted = ?, duration_ms = ?, error_message = ?
		 WHERE id = ?`,
		log.Status, log.WorkoutsReceived, log.WorkoutsAccepted, log.DurationMs, log.ErrorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs.
func (s *SQLiteDB) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, status, workouts_received, workouts_accepted, duration_ms, error_message
		 FROM plan_imports
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var logs []ImportLog
	for rows.Next() {
		var l ImportLog
		var created int64
		var duration sql.NullInt64
		var msg sql.NullString
		if err := rows.Scan(&l.ID, &created, &l.Source, &l.Status,
			&l.WorkoutsReceived, &l.WorkoutsAccepted, &duration, &msg); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		l.CreatedAt = time.UnixMilli(created)
		if duration.Valid {
			d := int(duration.Int64)
			l.DurationMs = &d
		}
		if msg.Valid {
			l.ErrorMessage = &msg.String
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
