package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/config"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/postgres"
	infraredis "github.com/Rohan-80800/PositLearn-sub001/internal/infra/redis"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/rest"
	transport "github.com/Rohan-80800/PositLearn-sub001/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
	} else {
		static, err := memory.NewStaticCatalog(sampleProject())
		if err != nil {
			return err
		}
		loader = static
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = infraredis.NewCatalogRepository(redisClient, loader, catalogTTL, logger)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var progress app.ProgressRepository
	if pool != nil {
		progress = postgres.NewProgressStore(pool)
	} else {
		progress = memory.NewProgressStore()
	}
	service := app.NewProgressService(catalog, progress, logger)

	// Gateway mode: sessions run here, progress lives in a remote backend.
	var backend app.Backend = service
	if cfg.Backend.URL != "" {
		backend = rest.NewClient(cfg.Backend.URL, config.TTLDuration(cfg.Backend.Timeout, 5*time.Second), logger)
		logger.Info("using remote progress backend", zap.String("url", cfg.Backend.URL))
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 2*time.Minute)
	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, sessionTTL, logger)
	} else {
		store = memory.NewSessionStore()
	}
	sessions := app.NewSessionService(store, backend, logger, config.TTLDuration(cfg.Session.EffectTimeout, 10*time.Second))

	wsHandler := transport.NewWSHandler(sessions, logger, transport.WSConfig{
		RateLimit:    cfg.Session.RateLimit,
		RateBurst:    cfg.Session.RateBurst,
		PingInterval: sessionTTL / 3,
	})
	router := transport.NewRouter(transport.NewRESTHandler(backend), wsHandler, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting progress service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
