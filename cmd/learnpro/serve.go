package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/learnpro/learnpro/db/migrations"
	"github.com/learnpro/learnpro/modules/learning"
	"github.com/learnpro/learnpro/pkg/analytics"
	"github.com/learnpro/learnpro/pkg/billing"
	"github.com/learnpro/learnpro/pkg/config"
	"github.com/learnpro/learnpro/pkg/email"
	"github.com/learnpro/learnpro/pkg/httpserver"
	"github.com/learnpro/learnpro/pkg/idempotency"
	"github.com/learnpro/learnpro/pkg/jwt"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/pkg/pg"
	"github.com/learnpro/learnpro/pkg/redis"
	"github.com/learnpro/learnpro/svc/access"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/exam"
	"github.com/learnpro/learnpro/svc/progress"
	"github.com/learnpro/learnpro/svc/subscription"
)

// appConfig holds settings that belong to the binary rather than a package.
type appConfig struct {
	PlansFile         string        `env:"PLANS_FILE"`                                 // YAML plan catalog; the built-in one when empty.
	WebhookDedupeTTL  time.Duration `env:"WEBHOOK_DEDUPE_TTL" envDefault:"72h"`        // How long a processed webhook event id is remembered.
	DedupeCachePrefix string        `env:"WEBHOOK_DEDUPE_PREFIX" envDefault:"webhook"` // Redis key prefix for processed events.
}

type configs struct {
	app       appConfig
	pg        pg.Config
	redis     redis.Config
	analytics analytics.Config
	email     email.Config
	paddle    billing.PaddleConfig
	paypal    billing.PayPalConfig
	breaker   billing.BreakerConfig
	jwt       jwt.Config
	http      httpserver.Config
	learning  learning.Config
	sweeper   subscription.SweeperConfig
	exam      exam.Config
}

func loadConfigs() (configs, error) {
	var c configs
	err := errors.Join(
		config.Load(&c.app),
		config.Load(&c.pg),
		config.Load(&c.redis),
		config.Load(&c.analytics),
		config.Load(&c.email),
		config.Load(&c.paddle),
		config.Load(&c.paypal),
		config.Load(&c.breaker),
		config.Load(&c.jwt),
		config.Load(&c.http),
		config.Load(&c.learning),
		config.Load(&c.sweeper),
		config.Load(&c.exam),
	)
	return c, err
}

func serve(ctx context.Context, log *slog.Logger) error {
	cfg, err := loadConfigs()
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg.pg, log); err != nil {
		return err
	}

	readiness := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	dedupe, closeDedupe, err := dedupeStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDedupe()
	if dedupe.client != nil {
		readiness = append(readiness, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(dedupe.client)})
	}

	tracker, closeTracker, err := analytics.NewTracker(cfg.analytics, log)
	if err != nil {
		return err
	}
	defer closeTracker()

	mailer, err := email.NewFromConfig(cfg.email, log)
	if err != nil {
		return err
	}

	registry, err := providers(cfg, log)
	if err != nil {
		return err
	}

	auth, err := jwt.New(cfg.jwt)
	if err != nil {
		return err
	}

	m := metrics.New()

	catalogSvc := catalog.NewService(catalog.NewRepository(pool), log)
	if err := catalogSvc.SyncPlans(ctx, catalog.NewYAMLPlanSource(cfg.app.PlansFile)); err != nil {
		return fmt.Errorf("sync plans: %w", err)
	}

	subscriptions := subscription.NewRepository(pool)
	enrollments := enrollment.NewRepository(pool)

	billingSvc := subscription.NewService(subscriptions, catalogSvc, registry,
		subscription.WithDeduplication(dedupe.store, cfg.app.WebhookDedupeTTL),
		subscription.WithMetrics(m),
		subscription.WithLogger(log),
	)
	accessSvc := access.NewService(subscriptions, catalogSvc, enrollments,
		access.WithMetrics(m),
		access.WithTracker(tracker),
		access.WithLogger(log),
	)
	examSvc := exam.NewService(exam.NewRepository(pool), catalogSvc, enrollments, accessSvc, cfg.exam,
		exam.WithMailer(mailer),
		exam.WithTracker(tracker),
		exam.WithMetrics(m),
		exam.WithLogger(log),
	)
	progressSvc := progress.NewService(progress.NewRepository(pool), enrollments, catalogSvc, accessSvc,
		progress.WithCertificates(examSvc),
		progress.WithTracker(tracker),
		progress.WithMetrics(m),
		progress.WithLogger(log),
	)

	sweeper := subscription.NewSweeper(billingSvc, cfg.sweeper, log)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start expiry sweeper: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.http.ShutdownTimeout)
		defer cancel()
		sweeper.Stop(stopCtx)
	}()

	router := learning.Router(learning.RouterOptions{
		Config:      cfg.learning,
		Auth:        auth,
		Access:      accessSvc,
		Billing:     billingSvc,
		Progress:    progressSvc,
		Enrollments: enrollments,
		Catalog:     catalogSvc,
		Exams:       examSvc,
		Metrics:     m,
		Readiness:   readiness,
		Logger:      log,
	})

	srv := httpserver.NewFromConfig(cfg.http, httpserver.WithLogger(log.With(logger.Component("http"))))
	return srv.Run(ctx, router)
}

type dedupeBackend struct {
	store  idempotency.Store
	client *goredis.Client
}

// dedupeStore remembers processed webhook events in Redis when it is
// configured and in process memory otherwise.
func dedupeStore(ctx context.Context, cfg configs, log *slog.Logger) (dedupeBackend, func(), error) {
	if !cfg.redis.Enabled() {
		log.Info("redis not configured, webhook de-duplication is per instance")
		return dedupeBackend{store: idempotency.NewMemoryStore(10 * time.Minute)}, func() {}, nil
	}
	client, err := redis.Connect(ctx, cfg.redis)
	if err != nil {
		return dedupeBackend{}, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", logger.Error(err))
		}
	}
	return dedupeBackend{
		store:  idempotency.NewRedisStore(client, cfg.app.DedupeCachePrefix),
		client: client,
	}, closeFn, nil
}

// providers registers every configured payment provider behind a circuit
// breaker. Free plans still work when none is configured.
func providers(cfg configs, log *slog.Logger) (*billing.Registry, error) {
	var list []billing.Provider
	if cfg.paddle.Enabled() {
		p, err := billing.NewPaddleProvider(cfg.paddle)
		if err != nil {
			return nil, err
		}
		list = append(list, billing.WithBreaker(p, cfg.breaker, log))
	}
	if cfg.paypal.Enabled() {
		p, err := billing.NewPayPalProvider(cfg.paypal)
		if err != nil {
			return nil, err
		}
		list = append(list, billing.WithBreaker(p, cfg.breaker, log))
	}
	if len(list) == 0 {
		log.Warn("no payment provider configured, only free plans can be checked out")
	}
	return billing.NewRegistry(list...), nil
}
