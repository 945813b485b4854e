package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	voteengine "pollstream/contexts/polling/vote-engine"
	postgresadapter "pollstream/contexts/polling/vote-engine/adapters/postgres"
	workerapp "pollstream/contexts/polling/vote-engine/application/workers"
	"pollstream/internal/platform/config"
	"pollstream/internal/platform/db"
	"pollstream/internal/platform/httpserver"
	"pollstream/internal/platform/messaging"
	"pollstream/internal/platform/realtime"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres        *db.Postgres
	expirer         workerapp.PollExpirer
	outboxRelay     workerapp.OutboxRelay
	ballotConsumer  workerapp.BallotEventConsumer
	expirerInterval time.Duration
	relayInterval   time.Duration
	enableExpirer   bool
	enableRelay     bool
	enableConsumer  bool
	logger          *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	hub := realtime.NewHub(cfg.HubBufferSize, logger)
	module := voteengine.NewModule(voteengine.Dependencies{
		Polls:          repo,
		Ledger:         repo,
		Broadcast:      hub,
		Outbox:         repo,
		Clock:          postgresadapter.SystemClock{},
		IDGen:          postgresadapter.UUIDGenerator{},
		CommitAttempts: cfg.CommitRetryLimit,
		Logger:         logger,
	})

	server := httpserver.New(module, hub, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		expirer: workerapp.PollExpirer{
			Polls: repo,
			Lifecycle: voteengine.NewModule(voteengine.Dependencies{
				Polls:  repo,
				Ledger: repo,
				Outbox: repo,
				Clock:  postgresadapter.SystemClock{},
				IDGen:  postgresadapter.UUIDGenerator{},
				Logger: logger,
			}).Polls,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.ExpirerBatchSize,
			Logger:    logger,
		},
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.RelayBatchSize,
			Logger:    logger,
		},
		ballotConsumer: workerapp.BallotEventConsumer{
			Subscriber: kafka,
			Logger:     logger,
		},
		expirerInterval: cfg.ExpirerInterval,
		relayInterval:   cfg.RelayInterval,
		enableExpirer:   cfg.EnablePollExpirer,
		enableRelay:     cfg.EnableOutboxRelay,
		enableConsumer:  cfg.EnableBallotConsumer,
		logger:          logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"expirer_interval", w.expirerInterval.String(),
		"relay_interval", w.relayInterval.String(),
	)

	if w.enableConsumer {
		if err := w.ballotConsumer.Start(ctx); err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	if w.enableExpirer {
		group.Go(func() error {
			return runEvery(ctx, w.expirerInterval, w.expirer.RunOnce)
		})
	}
	if w.enableRelay {
		group.Go(func() error {
			return runEvery(ctx, w.relayInterval, w.outboxRelay.RunOnce)
		})
	}
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func runEvery(ctx context.Context, interval time.Duration, step func(context.Context) error) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := step(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
