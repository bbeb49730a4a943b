package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/learnpro/learnpro/db/migrations"
	"github.com/learnpro/learnpro/pkg/config"
	"github.com/learnpro/learnpro/pkg/jwt"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/pg"
	"github.com/learnpro/learnpro/pkg/requestid"
)

const usage = `usage: learnpro [command]

commands:
  serve    run the HTTP API (default)
  migrate  apply database migrations and exit
`

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(append(logger.FromConfig(logCfg),
		logger.WithContextExtractors(requestid.LoggerExtractor(), jwt.LoggerExtractor()),
	)...)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(ctx, log)
	case "migrate":
		err = migrate(ctx, log)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("learnpro stopped", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func migrate(ctx context.Context, log *slog.Logger) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg, log); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
