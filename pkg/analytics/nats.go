package analytics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds the analytics transport settings. Analytics fall back to the
// log when URL is empty.
type Config struct {
	URL           string        `env:"NATS_URL"`
	SubjectPrefix string        `env:"ANALYTICS_SUBJECT_PREFIX" envDefault:"learnpro.analytics"`
	ClientName    string        `env:"NATS_CLIENT_NAME" envDefault:"learnpro-api"`
	MaxReconnects int           `env:"NATS_MAX_RECONNECTS" envDefault:"10"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"1s"`
}

func (c Config) Enabled() bool { return c.URL != "" }

// Connect dials NATS. The connection retries in the background when the
// server is not reachable at start-up.
func Connect(cfg Config, log *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// NewTracker returns a NATS tracker when cfg is enabled and a LogTracker
// otherwise. The returned close function drains the connection.
func NewTracker(cfg Config, log *slog.Logger) (Tracker, func(), error) {
	if !cfg.Enabled() {
		return NewLogTracker(log), func() {}, nil
	}
	nc, err := Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := nc.Drain(); err != nil {
			log.Warn("nats drain failed", slog.String("error", err.Error()))
		}
	}
	return NewNATSTracker(nc, cfg.SubjectPrefix), closeFn, nil
}
