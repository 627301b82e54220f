package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quizdrill/quizdrill/internal/app"
	"github.com/quizdrill/quizdrill/internal/auth"
	"github.com/quizdrill/quizdrill/internal/config"
	"github.com/quizdrill/quizdrill/internal/infra/memory"
	pgstore "github.com/quizdrill/quizdrill/internal/infra/postgres"
	redisstore "github.com/quizdrill/quizdrill/internal/infra/redis"
	"github.com/quizdrill/quizdrill/internal/quizgen"
	transport "github.com/quizdrill/quizdrill/internal/transport/http"
)

// NewServerCmd builds the CLI subcommand to start the server.
func NewServerCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the quiz API server",
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

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*time.Minute)
	sweepInterval := config.TTLDuration(cfg.Session.SweepInterval, memory.DefaultSweepInterval)
	wordTTL := config.TTLDuration(cfg.Words.TTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		memSessions := memory.NewSessionStore(sessionTTL)
		memSessions.Start(sweepInterval, logger)
		defer memSessions.Stop()
		sessions = memSessions
	}

	var (
		results     app.ResultRepository
		multipliers app.MultiplierRepository
		credits     app.CreditRepository
		wordLoader  memory.WordLoader
	)
	if pool != nil {
		store := pgstore.NewResultStore(pool)
		results, multipliers, credits = store, store, store
		wordLoader = pgstore.NewWordLoader(pool, cfg.Words.ListID)
	} else {
		store := memory.NewResultStore()
		results, multipliers, credits = store, store, store
		wordLoader = memory.NewStaticWordLoader(quizgen.DefaultWordList())
	}
	words := memory.NewWordRepository(wordLoader, wordTTL)

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "quizdrill-dev-secret"
		logger.Warn("auth.secret not configured, using the insecure dev secret")
	}
	authUsers := make([]auth.User, 0, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		authUsers = append(authUsers, auth.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
		})
	}
	authSvc := auth.NewService(secret, authUsers)

	live := transport.NewLiveHandler(logger)
	service := app.NewSessionService(app.ServiceConfig{
		Sessions:    sessions,
		Results:     results,
		Multipliers: multipliers,
		Credits:     credits,
		Words:       words,
		Sink:        live,
		Logger:      logger,
	})
	handler := transport.NewHandler(service, authSvc, live, logger)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler.Routes(),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quizdrill server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
