package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/circuit/internal/config"
	"github.com/claude/circuit/internal/storage"
)

// Open applies pending migrations, connects the configured backend and
// returns a Service over it. The returned func closes the connection.
func Open(ctx context.Context, db config.DatabaseConfig, log *slog.Logger) (*Service, func(), error) {
	switch db.Driver {
	case config.DriverSQLite, config.DriverPostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
	if err := storage.RunMigrations(db.MigrateURL(), db.MigrationsPath()); err != nil {
		return nil, nil, err
	}

	if db.Driver == config.DriverSQLite {
		s, err := storage.OpenSQLite(db.Path)
		if err != nil {
			return nil, nil, err
		}
		return New(s, log), func() { _ = s.Close() }, nil
	}
	pg, err := storage.New(ctx, db.DSN())
	if err != nil {
		return nil, nil, err
	}
	return New(pg, log), pg.Close, nil
}
