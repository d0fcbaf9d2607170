package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"civreg/internal/event/cache"
	eventhandler "civreg/internal/event/handler"
	eventmetrics "civreg/internal/event/metrics"
	"civreg/internal/event/service"
	eventstore "civreg/internal/event/store"
	"civreg/internal/eventconfig"
	"civreg/internal/jwtauth"
	locationhandler "civreg/internal/location/handler"
	locationstore "civreg/internal/location/store"
	"civreg/internal/outbox"
	"civreg/internal/platform/config"
	"civreg/internal/platform/httpserver"
	"civreg/internal/platform/logger"
	platformmetrics "civreg/internal/platform/metrics"
	"civreg/internal/platform/postgres"
	platformredis "civreg/internal/platform/redis"
	"civreg/internal/search"
	httptransport "civreg/internal/transport/http"
	userhandler "civreg/internal/user/handler"
	userstore "civreg/internal/user/store"
	"civreg/internal/webhook"
)

// main wires dependencies and runs the server plus the outbox worker under
// one errgroup. Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	verifier := jwtauth.NewVerifier(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	configService := eventconfig.NewService(
		eventconfig.NewClient(cfg.Collaborators.CountryConfigURL),
		cfg.Collaborators.ConfigCacheTTL,
	)
	indexer := search.NewHTTPIndexer(cfg.Collaborators.SearchURL)
	webhooks := webhook.NewDispatcher(nil, log)

	events := eventstore.NewPostgres(db)
	outboxStore := outbox.NewPostgresStore(db)

	opts := []service.Option{service.WithMetrics(eventmetrics.New())}
	if redisClient != nil {
		opts = append(opts, service.WithIdempotencyCache(
			cache.NewIdempotency(redisClient.Client, cfg.Redis.CacheTTL, log),
		))
	}
	eventService := service.New(events, configService, outboxStore, indexer, webhooks, log, opts...)

	locations := locationstore.NewPostgres(db)
	users := userstore.NewPostgres(db)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Verifier: verifier,
		Metrics:  platformmetrics.New(),
		DB:       db,
		Handlers: []httptransport.Registrar{
			eventhandler.New(eventService, configService, log),
			locationhandler.New(locations, log),
			userhandler.New(users, log),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting civreg", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		worker := outbox.NewWorker(outboxStore, publisher, log)
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("kafka brokers not configured, outbox publication disabled")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
