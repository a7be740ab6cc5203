package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	jwttoken "prs/internal/jwt_token"
	"prs/internal/platform/config"
	"prs/internal/platform/httpserver"
	"prs/internal/platform/logger"
	platformmetrics "prs/internal/platform/metrics"
	"prs/internal/platform/ratelimit"
	platformredis "prs/internal/platform/redis"
	"prs/internal/rationing/eligibility"
	"prs/internal/rationing/handler"
	"prs/internal/rationing/ledger"
	"prs/internal/rationing/lock"
	rationingmetrics "prs/internal/rationing/metrics"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/purchase"
	"prs/internal/rationing/registry"
	"prs/internal/rationing/store/memory"
	"prs/internal/rationing/store/postgres"
	"prs/pkg/platform/audit"
	auditpublisher "prs/pkg/platform/audit/publisher"
	auditkafka "prs/pkg/platform/audit/store/kafka"
	auditmemory "prs/pkg/platform/audit/store/memory"
	auditworker "prs/pkg/platform/audit/worker"
)

// rationingStore is what both the PostgreSQL and in-memory stores provide.
type rationingStore interface {
	ports.CatalogAdmin
	ports.LedgerReader
	ports.UnitOfWork
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/rationing.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rm := rationingmetrics.New(reg)
	hm := platformmetrics.New(reg)

	store, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	locker, err := openLocker(redisClient, cfg.Redis, log)
	if err != nil {
		return err
	}
	limiter, err := openRateLimiter(redisClient, cfg.RateLimit, log)
	if err != nil {
		return err
	}

	auditStore, closeAudit, err := openAuditStore(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	inbox := make(chan audit.Event, cfg.Kafka.AsyncBuffer)
	publisher := auditpublisher.New(auditStore, auditpublisher.WithAsync(inbox), auditpublisher.WithLogger(log))

	quota := ledger.New(ledger.WithLogger(log))
	evaluator, err := eligibility.New(store, store,
		eligibility.WithLogger(log),
		eligibility.WithMetrics(rm),
		eligibility.WithLedger(quota),
	)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}
	coordinator, err := purchase.New(store, store, evaluator, locker,
		purchase.WithLogger(log),
		purchase.WithAuditPublisher(publisher),
		purchase.WithMetrics(rm),
		purchase.WithLedger(quota),
		purchase.WithLockTimeout(cfg.Rationing.LockTimeout),
		purchase.WithCommitTimeout(cfg.Rationing.CommitTimeout),
		purchase.WithConflictRetries(cfg.Rationing.ConflictRetries, cfg.Rationing.RetryBackoff),
		purchase.WithMaxClockSkew(cfg.Rationing.MaxClockSkew),
	)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}
	registryService, err := registry.New(store, store,
		registry.WithLogger(log),
		registry.WithAuditPublisher(publisher),
	)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}

	tokens := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience))
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler.New(coordinator, registryService, log, hm, tokens, handler.WithRateLimiter(limiter)).Register(router)

	apiServer := httpserver.New(cfg.Server.Addr, router)
	metricsServer := httpserver.New(cfg.Server.MetricsAddr, platformmetrics.Handler(reg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting prs api", "addr", cfg.Server.Addr)
		return serve(apiServer)
	})
	g.Go(func() error {
		log.Info("starting metrics endpoint", "addr", cfg.Server.MetricsAddr)
		return serve(metricsServer)
	})
	g.Go(func() error {
		err := auditworker.NewWorker(auditStore, inbox, log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (rationingStore, func(), error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("database schema applied")
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}

func openLocker(client *platformredis.Client, cfg config.RedisConfig, log *slog.Logger) (ports.Locker, error) {
	if client == nil {
		log.Info("REDIS_URL not set, using in-process locks")
		return lock.NewSharded(), nil
	}
	return lock.NewRedis(client.Client, lock.WithTTL(cfg.LockTTL), lock.WithLogger(log))
}

// openRateLimiter returns nil when limiting is disabled.
func openRateLimiter(client *platformredis.Client, cfg config.RateLimitConfig, log *slog.Logger) (*ratelimit.Limiter, error) {
	if cfg.RequestsPerWindow == 0 {
		log.Info("rate limiting disabled")
		return nil, nil
	}
	var store ratelimit.Store = ratelimit.NewMemory()
	if client != nil {
		rs, err := ratelimit.NewRedis(client.Client)
		if err != nil {
			return nil, err
		}
		store = rs
	}
	return ratelimit.New(store, cfg.RequestsPerWindow, cfg.Window, ratelimit.WithLogger(log))
}

func openAuditStore(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, audit events kept in memory")
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	store, err := auditkafka.New(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureTopic(topicCtx, int32(cfg.AuditPartitions), int16(cfg.AuditReplication)); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}
