package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"beacon/internal/auditlog"
	"beacon/internal/cache"
	disasterhandler "beacon/internal/disaster/handler"
	disasterservice "beacon/internal/disaster/service"
	disasterstore "beacon/internal/disaster/store"
	"beacon/internal/enrich"
	"beacon/internal/feed"
	"beacon/internal/platform/config"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/logger"
	"beacon/internal/platform/metrics"
	"beacon/internal/platform/middleware"
	platformredis "beacon/internal/platform/redis"
	"beacon/internal/report"
	"beacon/internal/stream"
	httptransport "beacon/internal/transport/http"
)

// main wires dependencies from config and owns process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Backing stores. Postgres and Redis are both optional; absent either,
	// the in-memory implementations serve single-instance deployments.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var cacheStore cache.Store
	switch {
	case redisClient != nil:
		cacheStore = cache.NewRedisStore(redisClient.Client)
	case pool != nil:
		pgCache := cache.NewPostgresStore(pool)
		if err := pgCache.Init(ctx); err != nil {
			return err
		}
		cacheStore = pgCache
	default:
		cacheStore = cache.NewInMemoryStore()
	}

	var disasters disasterstore.Store
	var resources disasterstore.ResourceStore
	if pool != nil {
		pgStore := disasterstore.NewPostgresStore(pool)
		if err := pgStore.Init(ctx); err != nil {
			return err
		}
		disasters, resources = pgStore, pgStore
	} else {
		memStore := disasterstore.NewInMemoryStore()
		disasters, resources = memStore, memStore
	}

	var reports report.Store
	if pool != nil {
		pgReports := report.NewPostgresStore(pool)
		if err := pgReports.Init(ctx); err != nil {
			return err
		}
		reports = pgReports
	} else {
		reports = report.NewInMemoryStore()
	}

	group, ctx := errgroup.WithContext(ctx)

	// Broadcast hub.
	hub := stream.NewHub(log, stream.WithBufferSize(cfg.WSSendBuffer), stream.WithMetrics(m))
	group.Go(func() error { return hub.Run(ctx) })

	// Operational audit pipeline.
	auditPub := auditlog.NewPublisher(log, 256)
	var sinks []auditlog.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := auditlog.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditWorker := auditlog.NewWorker(auditlog.NewInMemoryStore(), auditPub.Inbox(), log, sinks...)
	group.Go(func() error { return auditWorker.Run(ctx) })

	// Cache-aside orchestrator.
	orchestrator := cache.NewOrchestrator(cacheStore, log,
		cache.WithDefaultTTL(cfg.CacheTTL),
		cache.WithMetrics(m),
	)

	// Feed emission.
	throttler := feed.NewThrottler(hub, log, cfg.Feed.Stagger, cfg.Feed.Cooldown,
		feed.WithThrottlerMetrics(m))
	defer throttler.Close()
	feedSvc := feed.NewService(orchestrator, throttler, cfg.Feed)

	// Domain services.
	users := middleware.DefaultUsers()
	disasterSvc := disasterservice.New(disasters, hub, auditPub, log, disasterservice.WithMetrics(m))
	reportSvc := report.NewService(reports, hub, auditPub, log, report.WithMetrics(m))

	extractor := enrich.NewExtractor(cfg.Enrich.ModelURL, cfg.Enrich.ModelAPIKey)
	enrichSvc := enrich.NewService(
		orchestrator,
		extractor,
		enrich.NewGeocoder(cfg.Enrich.GeocoderURL),
		enrich.NewUpdatesScraper(cfg.Enrich.UpdatesURL),
		enrich.NewImageVerifier(extractor),
		disasterSvc,
		resources,
		log,
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Disasters: disasterhandler.New(disasterSvc, feedSvc, enrichSvc, users, log),
		Reports:   report.NewHandler(reportSvc, users, log),
		Enrich:    enrich.NewHandler(enrichSvc),
		Stream:    stream.NewWSHandler(hub, log),
		Health: func(ctx context.Context) error {
			if pool != nil {
				if err := pool.Ping(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	group.Go(func() error {
		log.Info("starting beacon", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
