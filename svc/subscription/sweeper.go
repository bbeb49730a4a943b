package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/learnpro/learnpro/pkg/logger"
)

// SweeperConfig controls the expiry sweeper.
type SweeperConfig struct {
	Schedule string        `env:"SUBSCRIPTION_SWEEP_SCHEDULE" envDefault:"@every 15m"`
	Timeout  time.Duration `env:"SUBSCRIPTION_SWEEP_TIMEOUT" envDefault:"30s"`
}

// Sweeper periodically expires lapsed subscriptions. Access checks already
// ignore them; the sweeper keeps the stored status accurate.
type Sweeper struct {
	svc  *Service
	cron *cron.Cron
	cfg  SweeperConfig
	log  *slog.Logger
}

func NewSweeper(svc *Service, cfg SweeperConfig, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sweeper{
		svc:  svc,
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:  cfg,
		log:  log.With(logger.Component("subscription_sweeper")),
	}
}

// Start schedules the sweep and returns once the scheduler runs.
func (w *Sweeper) Start() error {
	if _, err := w.cron.AddFunc(w.cfg.Schedule, w.run); err != nil {
		return err
	}
	w.cron.Start()
	w.log.Info("expiry sweeper started", slog.String("schedule", w.cfg.Schedule))
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (w *Sweeper) Stop(ctx context.Context) {
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
	w.log.Info("expiry sweeper stopped")
}

func (w *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := w.svc.ExpireLapsed(ctx)
	if err != nil {
		w.log.ErrorContext(ctx, "expiry sweep failed", logger.Error(err))
		return
	}
	w.log.DebugContext(ctx, "expiry sweep finished", slog.Int64("expired", n), logger.Duration(time.Since(start)))
}
