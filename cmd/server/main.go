package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"enrollment/internal/enrollment/events"
	"enrollment/internal/enrollment/handler"
	enrollmentmetrics "enrollment/internal/enrollment/metrics"
	"enrollment/internal/enrollment/seed"
	"enrollment/internal/enrollment/service"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
	"enrollment/internal/platform/config"
	"enrollment/internal/platform/httpserver"
	"enrollment/internal/platform/kafka"
	"enrollment/internal/platform/logger"
	platformmetrics "enrollment/internal/platform/metrics"
	"enrollment/internal/platform/postgres"
	"enrollment/internal/platform/redis"
	"enrollment/internal/platform/token"
)

const (
	shutdownTimeout     = 10 * time.Second
	startupTimeout      = 15 * time.Second
	eventBufferCapacity = 10_000
	topicPartitions     = 3
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type backends struct {
	ledger        service.Ledger
	registrations service.Registrations
	journal       service.Journal
	closers       []func() error
}

func (b *backends) close(log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn("failed to close backend", "error", err)
		}
	}
}

// openBackends picks the seat ledger from LEDGER_BACKEND and keeps
// registrations and the journal in Postgres whenever a DSN is configured.
// Validate guarantees a DSN for every durable ledger.
func openBackends(ctx context.Context, cfg config.Server, log *slog.Logger) (*backends, error) {
	b := &backends{
		ledger:        ledger.NewInMemoryStore(),
		registrations: registration.NewInMemoryStore(),
		journal:       journal.NewInMemoryStore(),
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		b.closers = append(b.closers, db.Close)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			b.close(log)
			return nil, err
		}
		b.registrations = registration.NewPostgres(db)
		b.journal = journal.NewPostgres(db)
		log.Info("registrations stored in postgres")
	}

	switch cfg.LedgerBackend {
	case config.StoragePostgres:
		b.ledger = ledger.NewPostgres(db)
	case config.StorageRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.ledger = ledger.NewRedis(client.Client)
	}
	log.Info("seat ledger selected", "backend", cfg.LedgerBackend)
	return b, nil
}

// openEvents returns the decision publisher and the worker draining it to
// Kafka, or nils when no brokers are configured.
func openEvents(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (*events.Publisher, *events.Worker, *kgo.Client, error) {
	client, err := kafka.New(ctx, cfg)
	if err != nil || client == nil {
		return nil, nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Topic, topicPartitions); err != nil {
		client.Close()
		return nil, nil, nil, err
	}
	buffer := events.NewRingBuffer(eventBufferCapacity)
	worker := events.NewWorker(buffer, events.NewKafkaSink(client, cfg.Topic), events.WithWorkerLogger(log))
	log.Info("admission decisions streamed to kafka", "topic", cfg.Topic, "brokers", cfg.Brokers)
	return events.NewPublisher(buffer), worker, client, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	stores, err := openBackends(startCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer stores.close(log)

	publisher, worker, kafkaClient, err := openEvents(startCtx, cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(enrollmentmetrics.New(reg)),
		service.WithRetry(10*time.Millisecond, cfg.Compensate.MaxElapsed),
	}
	if publisher != nil {
		opts = append(opts, service.WithPublisher(publisher))
	}
	svc, err := service.New(stores.ledger, stores.registrations, stores.journal, opts...)
	if err != nil {
		return fmt.Errorf("build admission service: %w", err)
	}

	courses, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("load seed catalog: %w", err)
	}
	if err := svc.SeedCourses(startCtx, courses); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if err := svc.Recover(startCtx); err != nil {
		return fmt.Errorf("recover journal: %w", err)
	}

	tokens, err := token.NewService(cfg.JWTSigningKey)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	r := chi.NewRouter()
	handler.New(svc, token.NewMiddlewareAdapter(tokens),
		handler.WithLogger(log),
		handler.WithMetrics(platformmetrics.NewHTTP(reg)),
		handler.WithAdminToken(cfg.AdminToken),
	).Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting enrollment server", "addr", cfg.Addr, "courses", len(courses))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCancel(service.NewReconciler(svc, cfg.Compensate.ReconcileInterval, log).Run(gctx))
	})
	if worker != nil {
		g.Go(func() error {
			return ignoreCancel(worker.Run(gctx))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
