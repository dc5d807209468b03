// Package main is the entry point for the PitchCheck server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/cache"
	"github.com/jkindrix/pitchcheck/internal/config"
	"github.com/jkindrix/pitchcheck/internal/database"
	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/handler"
	"github.com/jkindrix/pitchcheck/internal/insight"
	"github.com/jkindrix/pitchcheck/internal/interview"
	"github.com/jkindrix/pitchcheck/internal/logging"
	"github.com/jkindrix/pitchcheck/internal/metrics"
	"github.com/jkindrix/pitchcheck/internal/middleware"
	"github.com/jkindrix/pitchcheck/internal/questions"
	"github.com/jkindrix/pitchcheck/internal/ratelimit"
	"github.com/jkindrix/pitchcheck/internal/repository"
	"github.com/jkindrix/pitchcheck/internal/service"
	"github.com/jkindrix/pitchcheck/internal/shutdown"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "pitchcheck",
		Short:         "Customer-interview chatbot for validating business pitches",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context())
			},
		},
	)
	return root
}

// loadEnvFile loads path into the environment. Variables already set win,
// and a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// initLogger builds the application logger from configuration.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.New(ctx, &cfg.Database, nil, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations applied")
	return nil
}

// repositories are the storage ports with optional caching applied.
type repositories struct {
	companies domain.CompanyRepository
	questions domain.QuestionRepository
	customers domain.CustomerRepository
	messages  domain.MessageRepository
	// cache is nil when Redis is not configured or unreachable.
	cache *cache.RedisStore
}

// initRepositories builds the Postgres repositories and, when Redis is
// configured, wraps the immutable company and question reads in a cache.
// An unreachable Redis is logged and skipped.
func initRepositories(ctx context.Context, cfg *config.Config, db *database.DB, logger *zap.Logger) repositories {
	repos := repositories{
		companies: repository.NewCompanyRepository(db.TxManager),
		questions: repository.NewQuestionRepository(db.TxManager),
		customers: repository.NewCustomerRepository(db.TxManager),
		messages:  repository.NewMessageRepository(db.TxManager),
	}

	if !cfg.Redis.Enabled() {
		return repos
	}
	store, err := cache.NewRedisStore(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("question cache disabled", zap.Error(err))
		return repos
	}
	repos.cache = store
	repos.companies = cache.NewCompanyRepository(repos.companies, store, cfg.Redis.TTL, logger)
	repos.questions = cache.NewQuestionRepository(repos.questions, store, cfg.Redis.TTL, logger)
	logger.Info("question cache enabled", zap.String("addr", cfg.Redis.Addr))
	return repos
}

// initPublisher always logs events and adds NATS when configured. The
// returned drainer is nil without NATS.
func initPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, drainer) {
	logPublisher := events.NewLogPublisher(logger)
	if !cfg.NATS.Enabled() {
		return logPublisher, nil
	}
	nc, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		logger.Warn("event bus disabled", zap.Error(err))
		return logPublisher, nil
	}
	logger.Info("publishing events to nats",
		zap.String("url", cfg.NATS.URL),
		zap.String("prefix", cfg.NATS.SubjectPrefix),
	)
	return events.Multi{logPublisher, events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix, logger)}, nc
}

type drainer interface {
	Drain() error
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Logger

	log.Info("starting PitchCheck server",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Environment),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	m := metrics.NewMetrics()
	coord := shutdown.NewCoordinator(&shutdown.Config{
		Timeout:    cfg.Server.ShutdownTimeout,
		DrainDelay: cfg.Server.DrainDelay,
	}, log)

	db, err := database.New(ctx, &cfg.Database, m, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	coord.RegisterCloser(shutdown.PhaseStorage, "database", db.Close)
	m.ObservePool(db)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	repos := initRepositories(ctx, cfg, db, log)
	var cacheChecker handler.HealthChecker
	if repos.cache != nil {
		cacheChecker = repos.cache
		coord.RegisterFunc(shutdown.PhaseStorage, "cache", func(context.Context) error {
			return repos.cache.Close()
		})
	}

	generator, err := ai.NewFromConfig(ctx, &cfg.LLM, m, log)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize %s generator: %w", cfg.LLM.Provider, err)
	}
	coord.RegisterFunc(shutdown.PhaseStorage, "generator", func(context.Context) error {
		return generator.Close()
	})

	publisher, nc := initPublisher(cfg, log)
	if nc != nil {
		coord.RegisterFunc(shutdown.PhaseEvents, "nats", func(context.Context) error {
			return nc.Drain()
		})
	}

	budget := ratelimit.NewBudget(ratelimit.BudgetConfigFrom(&cfg.LLM), m, log)
	limited := ratelimit.LimitGenerator(generator, budget)

	interviewer := interview.NewEngine(limited, interview.ConfigFrom(&cfg.LLM, &cfg.Interview), log)
	analyst := insight.NewAggregator(limited, insight.ConfigFrom(&cfg.LLM), log)
	writer := questions.NewWriter(limited, questions.ConfigFrom(&cfg.LLM, &cfg.Interview), log)

	companyService := service.NewCompanyService(
		repos.companies, repos.questions, repos.customers,
		writer, db.TxManager, publisher, log, m,
	)
	customerService := service.NewCustomerService(repos.customers, repos.companies, publisher, log, m)
	sessionService := service.NewSessionService(
		repos.companies, repos.questions, repos.customers, repos.messages,
		interviewer, publisher, log, m,
	)
	insightService := service.NewInsightService(
		repos.companies, repos.customers, repos.messages,
		analyst, publisher, log, m,
	)

	api := handler.NewAPIHandler(handler.APIHandlerConfig{
		Companies: companyService,
		Customers: customerService,
		Sessions:  sessionService,
		Analytics: insightService,
		Logger:    log,
	})
	health := handler.NewHealthHandler(handler.HealthHandlerConfig{
		HealthChecker:   db,
		AIHealthChecker: generator,
		CacheChecker:    cacheChecker,
		Budget:          budget,
		Readiness:       shutdown.NewReadinessProbe(coord, db),
		Version:         version,
		Logger:          log,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
	rateLimiter.OnLimit(m.RecordRateLimitHit)
	coord.RegisterCloser(shutdown.PhaseBackground, "rate-limiter", rateLimiter.Stop)

	correlation := middleware.NewRequestCorrelation(log)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(correlation.Middleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))

	health.RegisterRoutes(r)
	r.Handle("/metrics", m.Handler())
	r.Handle("/admin/log-level", logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rateLimiter))
		r.Use(middleware.BodySizeLimiter(cfg.Server.MaxBodyBytes))
		api.RegisterRoutes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A chat turn waits on one generation call.
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	coord.RegisterFunc(shutdown.PhaseHTTP, "http-server", server.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server failed", zap.Error(err))
		runErr = err
	}

	if err := coord.Shutdown(context.Background()); err != nil {
		log.Error("shutdown completed with errors", zap.Error(err))
	}
	return runErr
}
