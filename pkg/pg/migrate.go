package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrate applies every pending goose migration in dir of fsys and records
// the version in cfg.MigrationsTable. Migrations are embedded in the binary,
// see db/migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, cfg Config, log *slog.Logger) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	store, err := database.NewStore(database.DialectPostgres, cfg.MigrationsTable)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	// The provider owns the *sql.DB wrapper; closing it leaves the pool open.
	provider, err := goose.NewProvider("", stdlib.OpenDBFromPool(pool), sub, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.WarnContext(ctx, "closing migration connection", slog.String("error", err.Error()))
		}
	}()

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("took", r.Duration),
		)
	}
	if len(results) == 0 {
		log.DebugContext(ctx, "schema is up to date")
	}
	return nil
}
