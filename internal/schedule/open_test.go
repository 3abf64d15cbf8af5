package schedule

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/claude/circuit/internal/config"
)

// TestOpenSQLite migrates a fresh database file and serves an empty schedule.
func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	svc, closeFn, err := Open(ctx, config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		Path:       filepath.Join(t.TempDir(), "circuit.db"),
		Migrations: "../../migrations/sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	state, err := svc.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state.Workouts) != 0 {
		t.Errorf("workouts = %d, want 0", len(state.Workouts))
	}
}

// TestOpenUnknownDriver fails before connecting.
func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), config.DatabaseConfig{
		Driver:     "mysql",
		Path:       filepath.Join(t.TempDir(), "x.db"),
		Migrations: "../../migrations/sqlite",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
