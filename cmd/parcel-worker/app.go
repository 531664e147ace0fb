package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/services/reconciler"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcel"
)

type eventConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

type workerFactories struct {
	newStorage  func(cfg *config.Config) (repo reconciler.Repository, closeFn func(), err error)
	newConsumer func(cfg *config.Config) eventConsumer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (reconciler.Repository, func(), error) {
			st, err := pgparcel.New(cfg.Database.DSN())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) eventConsumer {
			topic := cfg.Kafka.RiderApprovedTopicName
			if topic == "" {
				topic = "rider.approved"
			}
			group := cfg.ParcelBox.KafkaConsumerGroup
			if group == "" {
				group = "parcel-worker"
			}
			// Elevation is idempotent, so a fresh group replays the topic.
			return kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:    cfg.Kafka.Brokers(),
				Topic:      topic,
				GroupID:    group,
				FromOldest: true,
			})
		},
	}
}

// RunParcelWorker runs the role reconciliation sweep, the rider.approved
// consumer and, when an address is configured, the worker HTTP server until
// ctx is cancelled.
func RunParcelWorker(ctx context.Context, cfg *config.Config, f workerFactories, swaggerPath string) error {
	pollInterval := time.Duration(cfg.ParcelBox.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	batchSize := cfg.ParcelBox.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.ParcelBox.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	rec := reconciler.New(repo).WithSettings(pollInterval, batchSize, concurrency)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if f.newConsumer != nil {
		if c := f.newConsumer(cfg); c != nil {
			defer func() { _ = c.Close() }()
			go consumeRiderApproved(ctx, c, rec)
		}
	}

	httpErr := make(chan error, 1)
	serving := cfg.ParcelBox.WorkerHTTPAddr != ""
	if serving {
		go func() {
			httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr:    cfg.ParcelBox.WorkerHTTPAddr,
				swaggerPath: swaggerPath,
				reconciler:  rec,
				ready:       readinessOf(repo),
				cfg:         cfg,
			})
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- rec.Run(ctx) }()

	select {
	case err := <-runErr:
		if serving {
			cancel()
			<-httpErr
		}
		return err
	case err := <-httpErr:
		cancel()
		<-runErr
		return err
	}
}

// consumeRiderApproved keeps the consumer running. Consume retries a failing
// message itself, so it only stops on fetch or commit errors; the reader then
// resumes from its own position. Returns once ctx is done.
func consumeRiderApproved(ctx context.Context, c eventConsumer, rec *reconciler.Reconciler) {
	slog.Info("kafka consumer started", "handler", "rider.approved")
	for {
		err := c.Consume(ctx, func(key, value []byte) error {
			return rec.HandleRiderApproved(ctx, key, value)
		})
		if ctx.Err() != nil {
			return
		}
		slog.Warn("rider.approved consumer stopped, restarting", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func readinessOf(repo reconciler.Repository) func(context.Context) error {
	p, ok := repo.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}
