// Package storage persists the workout schedule, completed history and plan
// import log. DB is the Postgres backend; SQLiteDB is a single-file backend
// for running on one machine.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claude/circuit/internal/models"
)

// ErrNotFound is returned when a scheduled or completed workout does not exist.
var ErrNotFound = errors.New("storage: not found")

// DB wraps a pgxpool.Pool and provides repository methods.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending migrations from the given directory.
// databaseURL selects the driver by scheme: postgres:// or sqlite://.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// ReplacePlan swaps the whole schedule for a new plan in one transaction.
// Completed history is untouched.
func (db *DB) ReplacePlan(ctx context.Context, meta json.RawMessage, workouts []ScheduledWorkout) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO plan_meta (id, meta, updated_at) VALUES (1, $1::jsonb, now())
		 ON CONFLICT (id) DO UPDATE SET meta = EXCLUDED.meta, updated_at = EXCLUDED.updated_at`,
		string(metaOrDefault(meta)),
	); err != nil {
		return fmt.Errorf("storing plan meta: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM scheduled_workouts`); err != nil {
		return fmt.Errorf("clearing schedule: %w", err)
	}

	batch := &pgx.Batch{}
	for i, w := range workouts {
		batch.Queue(
			`INSERT INTO scheduled_workouts (position, workout_id, scheduled_date, title, doc)
			 VALUES ($1, $2, $3, $4, $5::jsonb)`,
			i, w.WorkoutID, w.ScheduledDate, w.Title, string(w.Doc),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting scheduled workouts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing plan: %w", err)
	}
	return nil
}

// LoadPlan returns the stored meta and scheduled workouts in plan order.
func (db *DB) LoadPlan(ctx context.Context) (*Plan, error) {
	plan := &Plan{}

	var meta string
	err := db.Pool.QueryRow(ctx, `SELECT meta::text, updated_at FROM plan_meta WHERE id = 1`).Scan(&meta, &plan.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("querying plan meta: %w", err)
	default:
		plan.Meta = json.RawMessage(meta)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT seq, position, workout_id, scheduled_date, title, doc::text
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
func (db *DB) ArchiveWorkout(ctx context.Context, seq int64, entry models.CompletedEntry) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM scheduled_workouts WHERE seq = $1`, seq)
	if err != nil {
		return fmt.Errorf("removing scheduled workout %d: %w", seq, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO completed_workouts (id, day, date, title, scheduled_date, completed_at, workout)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`,
		entry.ID, entry.Day, entry.Date, entry.Title, entry.ScheduledDate, entry.CompletedAt, nullableJSON(entry.Workout),
	); err != nil {
		return fmt.Errorf("inserting completed workout: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing archive: %w", err)
	}
	return nil
}

const completedColumns = `id::text, day, date, title, scheduled_date, completed_at, workout::text`

// ListCompleted returns the completed history, oldest first.
func (db *DB) ListCompleted(ctx context.Context) ([]models.CompletedEntry, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+completedColumns+` FROM completed_workouts ORDER BY seq`)
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
func (db *DB) GetCompleted(ctx context.Context, id string) (*models.CompletedEntry, error) {
	if !validEntryID(id) {
		return nil, ErrNotFound
	}
	row := db.Pool.QueryRow(ctx, `SELECT `+completedColumns+` FROM completed_workouts WHERE id = $1`, id)
	e, err := scanCompleted(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompleted(row scanner) (models.CompletedEntry, error) {
	var e models.CompletedEntry
	var workout *string
	if err := row.Scan(&e.ID, &e.Day, &e.Date, &e.Title, &e.ScheduledDate, &e.CompletedAt, &workout); err != nil {
		return e, fmt.Errorf("scanning completed workout: %w", err)
	}
	if workout != nil {
		e.Workout = json.RawMessage(*workout)
	}
	return e, nil
}
