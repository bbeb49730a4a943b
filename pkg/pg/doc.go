// Package pg bootstraps the Postgres layer on top of pgx/v5: pool creation
// with retries, goose migrations from an embedded filesystem, a readiness
// probe, transaction helper and error classification.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg, log); err != nil {
//		return err
//	}
//
// Repositories depend on the DB interface rather than *pgxpool.Pool so they
// can be exercised with pgxmock.
package pg
