package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"examslots/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed *.sql
var migrationFiles embed.FS

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Files lists the embedded migrations in the order they are applied.
func Files() ([]string, error) {
	names, err := fs.Glob(migrationFiles, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// RunMigration applies every embedded migration. Each file is idempotent,
// so reruns are safe.
func RunMigration(ctx context.Context, db execer, log *logger.Logger) error {
	names, err := Files()
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	for _, name := range names {
		ddl, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		log.Info("Applied migration", "file", name)
	}

	log.Info("All PostgreSQL migrations applied", "count", len(names))
	return nil
}
