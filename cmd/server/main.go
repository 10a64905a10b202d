// Command submissions-server starts the text submission HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iammusic/submissions/internal/config"
	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/limiter"
	"github.com/iammusic/submissions/internal/migrate"
	"github.com/iammusic/submissions/internal/notify"
	"github.com/iammusic/submissions/internal/repository"
	"github.com/iammusic/submissions/internal/repository/memory"
	"github.com/iammusic/submissions/internal/repository/postgres"
	"github.com/iammusic/submissions/internal/repository/sqlite"
	httpserver "github.com/iammusic/submissions/internal/server/http"
	"github.com/iammusic/submissions/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the log store and serves until SIGINT/SIGTERM.
func main() {
	// Flags
	cfgPath := flag.String("config", "", "path to YAML config file (optional)")
	dev := flag.Bool("dev", false, "human-readable debug logging")
	flag.Parse()

	var logger *zap.Logger
	if *dev {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, errs.ErrMissingCredential) {
			logger.Fatal("missing store credential", zap.Error(err))
		}
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.Duration("dedupWindow", cfg.Dedup.Window),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	store, pool, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	// Rate limiter
	lim := newLimiter(ctx, cfg.RateLimit, pool, logger)

	// Notifier
	var pub notify.Publisher = notify.Noop{}
	if cfg.Kafka.Enabled() {
		k, err := notify.NewKafka(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("kafka publisher", zap.Error(err))
		}
		pub = k
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()

	// Service
	svc := service.NewSubmissionService(store, logger, service.Options{
		DedupWindow:  cfg.Dedup.Window,
		StoreTimeout: cfg.Store.Timeout,
		Limiter:      lim,
		Publisher:    pub,
	})

	router := httpserver.NewRouter(cfg.HTTP, svc, store, logger)
	srv := httpserver.NewServer(cfg.HTTP, router)

	if err := httpserver.Run(ctx, srv, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		closeStore()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openStore builds the configured log store. pool is non-nil only for postgres.
func openStore(ctx context.Context, cfg *config.Config) (repository.SubmissionRepository, *pgxpool.Pool, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := migrate.UpPostgres(ctx, cfg.Database.DSN); err != nil {
			return nil, nil, nil, err
		}
		db, pool, err := postgres.New(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewSubmissionRepo(db), pool, db.Close, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, nil, func() { _ = repo.Close() }, nil
	default:
		return memory.New(), nil, func() {}, nil
	}
}

func newLimiter(ctx context.Context, cfg config.RateLimitConfig, pool *pgxpool.Pool, logger *zap.Logger) limiter.Limiter {
	if !cfg.Enabled {
		return limiter.Noop{}
	}
	logger.Info("rate limiting enabled",
		zap.String("backend", cfg.Backend),
		zap.Duration("pause", cfg.Pause),
	)
	if cfg.Backend == config.LimiterPostgres {
		l := limiter.NewPG(pool, cfg.Pause)
		if err := l.Prune(ctx); err != nil {
			logger.Warn("prune push_limiter", zap.Error(err))
		}
		return l
	}
	return limiter.NewMemory(cfg.Pause, cfg.Burst)
}
