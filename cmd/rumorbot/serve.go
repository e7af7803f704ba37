package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/bot"
	"github.com/Proton-105/rumor-bot/internal/database"
	"github.com/Proton-105/rumor-bot/internal/delivery"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/health"
	"github.com/Proton-105/rumor-bot/internal/idempotency"
	"github.com/Proton-105/rumor-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/rumor-bot/internal/jobs/handlers"
	"github.com/Proton-105/rumor-bot/internal/lifecycle"
	"github.com/Proton-105/rumor-bot/internal/middleware"
	"github.com/Proton-105/rumor-bot/internal/ratelimit"
	"github.com/Proton-105/rumor-bot/internal/repository"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/internal/user"
	"github.com/Proton-105/rumor-bot/internal/usercache"
	"github.com/Proton-105/rumor-bot/pkg/config"
	"github.com/Proton-105/rumor-bot/pkg/graceful"
	"github.com/Proton-105/rumor-bot/pkg/logger"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
	"github.com/Proton-105/rumor-bot/pkg/redis"
)

const sentryFlushTimeout = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot with its health and metrics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg, v, err := loadConfig()
	if err != nil {
		return err
	}

	log, closer := logger.New(cfg.Logger)
	defer closer.Close()
	slog.SetDefault(log)

	log.Info("starting rumor bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("session_storage", cfg.Session.Storage),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.AppEnv,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(sentryFlushTimeout)
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	shutdown.Register(lifecycle.PhaseStorage, "redis", closeHook(rc))
	checker.AddCheck("redis", health.NewRedisChecker(rc.Client))

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		_ = rc.Close()
		return err
	}
	var repo repository.UserRepository
	if db != nil {
		shutdown.Register(lifecycle.PhaseStorage, "database", closeHook(db))
		checker.AddCheck("database", health.NewDBChecker(db))
		repo = repository.NewUserRepository(db, log)
	}

	users := user.NewService(repo, usercache.NewCache(redis.NewMetricsClient(rc), 0), cfg.Blocklist, log)
	config.Watch(v, log, func(next *config.Config) {
		users.SetStaticBlocklist(next.Blocklist)
	})

	content := backend.NewGraphQLClient(cfg.Backend, nil, log)
	checker.AddCheck("backend", health.NewBackendChecker(content))

	store, locker := sessionStore(cfg.Session, rc, log)

	stack, err := newDialogue(cfg, content, store, locker, users, errHandler, log)
	if err != nil {
		return err
	}

	var (
		jobManager jobs.Manager
		deliverer  delivery.Deliverer
		redisOpt   = asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	)
	if cfg.Delivery.Async {
		jobManager = jobs.NewManager(redisOpt, log)
		deliverer = jobs.NewQueueDeliverer(jobManager, cfg.Delivery.MaxRetry, log)
		shutdown.Register(lifecycle.PhaseStorage, "jobs client", func(context.Context) error {
			return jobManager.Close()
		})
	}

	var rateLimit *middleware.RateLimitMiddleware
	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rc.Client, log), memoryLimiter, log)
		rateLimit = middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), stack.catalog, log)
	}

	var idem idempotency.Manager
	if cfg.Idempotency.Enabled {
		idem = idempotency.NewManager(idempotency.NewRedisStore(rc.Client, log), log)
	}

	botDeps := bot.Deps{
		Service:        stack.service,
		Catalog:        stack.catalog,
		Errors:         errHandler,
		Users:          users,
		Idempotency:    idem,
		IdempotencyTTL: cfg.Idempotency.TTL,
		RateLimit:      rateLimit,
		Deliverer:      deliverer,
		ContactPhrase:  cfg.Dialogue.ContactPhrase,
	}
	if stack.mentions != nil {
		botDeps.Mentions = stack.mentions
	}

	b, err := bot.New(cfg.Bot, botDeps, log)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	if err := b.PublishCommands(); err != nil {
		log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	probes := lifecycle.NewProbes(checker, log)
	shutdown.Register(lifecycle.PhaseIntake, "readiness", func(context.Context) error {
		probes.Drain()
		return nil
	})
	shutdown.Register(lifecycle.PhaseIntake, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})

	var worker jobs.Worker
	if cfg.Delivery.Async {
		worker = jobs.NewWorker(redisOpt, jobs.DefaultQueues, cfg.Delivery.Concurrency, log)
		direct := delivery.NewDirect(b.Telebot(), delivery.ModeWorker, log)
		worker.RegisterHandler(jobs.TaskTypeDeliverReply, jobhandlers.NewDeliverReplyHandler(direct, log))
		shutdown.Register(lifecycle.PhaseWorkers, "jobs worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	probes.Register(mux)
	server := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logger.Middleware(middleware.HTTPLogging(log)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	if worker != nil {
		if err := worker.Start(); err != nil {
			_ = shutdown.Execute(context.Background())
			return fmt.Errorf("start jobs worker: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.Start()
		return nil
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	g.Go(func() error {
		state.NewCleaner(store, log, cfg.Session.StaleAfter, cfg.Session.CleanupInterval).Run(gctx)
		return nil
	})
	g.Go(func() error {
		metrics.NewStateCollector(store, cfg.Session.MetricsInterval, log).Run(gctx)
		return nil
	})
	if cfg.RateLimit.Enabled {
		g.Go(func() error {
			ratelimit.NewCleaner(rc.Client, log, time.Minute, 0).Run(gctx)
			return nil
		})
		g.Go(func() error {
			memoryLimiter.Run(gctx, time.Minute, 0)
			return nil
		})
	}
	if cfg.Idempotency.Enabled {
		g.Go(func() error {
			idempotency.NewCleaner(rc.Client, log, cfg.Idempotency.CleanupInterval, cfg.Idempotency.TTL).Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down rumor bot")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return shutdown.Execute(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("rumor bot stopped")
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	if !cfg.Enabled {
		log.Info("database disabled, user records are not persisted")
		return nil, nil
	}

	db, err := database.Open(ctx, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	dir := cfg.MigrationsDir
	if dir == "" {
		dir = "migrations"
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, dir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied", slog.String("dir", dir))

	return db, nil
}

func sessionStore(cfg config.SessionConfig, rc *redis.Client, log *slog.Logger) (state.SessionStore, state.Locker) {
	if cfg.Storage == "memory" {
		return state.NewMemoryStorage(cfg.TTL, cfg.CleanupInterval), state.NewLocalLocker()
	}
	return state.NewRedisStorage(rc.Client, cfg.TTL, log), state.NewRedisLocker(rc.Client, cfg.LockTTL, log)
}

func closeHook(c io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}
