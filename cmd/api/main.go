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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mentoria/mentoria-go/internal/config"
	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/handler"
	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/markdown"
	"github.com/mentoria/mentoria-go/internal/repository"
	"github.com/mentoria/mentoria-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.DSN, repository.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db, cfg.Database.Driver); err != nil {
			return err
		}
		logger.Info("database migrated", "driver", cfg.Database.Driver)
	}

	users := repository.NewUserRepository(db)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), cfg.Auth.SessionTTL, logger)

	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error { return repository.Ping(ctx, db) },
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		cache := repository.NewSessionCache(rdb, cfg.Auth.SessionTTL)
		sessions.WithCache(cache)
		checks["redis"] = cache.Ping
		logger.Info("session cache enabled", "addr", cfg.Redis.Addr)
	}

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hasher := crypto.NewPasswordHasher(crypto.DefaultHashParams())
	authSvc := service.NewAuthService(users, sessions, hasher, logger)
	profileSvc := service.NewProfileService(users, sessions, hasher)
	chatSvc := service.NewChatService(repository.NewChatRepository(db), client, markdown.NewRenderer(), service.ChatConfig{
		HistoryWindow: cfg.Chat.HistoryWindow,
		DisplayWindow: cfg.Chat.DisplayWindow,
		TitleTimeout:  cfg.Chat.TitleTimeout,
	}, logger)
	quizSvc := service.NewQuizService(repository.NewQuizRepository(db), client)

	router := handler.NewRouter(handler.RouterConfig{
		CORSOrigins:   cfg.Server.CORSOrigins,
		AuthRateRPS:   cfg.Auth.RateLimitRPS,
		AuthRateBurst: cfg.Auth.RateLimitBurst,
		LLMRateRPS:    cfg.LLM.RateLimitRPS,
		LLMRateBurst:  cfg.LLM.RateLimitBurst,
		ExposeMetrics: true,
	}, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, logger),
		Profile:  handler.NewProfileHandler(profileSvc, logger),
		Chat:     handler.NewChatHandler(chatSvc, logger),
		Quiz:     handler.NewQuizHandler(quizSvc, logger).WithRecentLimit(cfg.Quiz.RecentLimit),
		Health:   handler.NewHealthHandler(checks, logger),
		Sessions: sessions,
	}, logger)

	// No WriteTimeout: chat streams clear their own deadline and the
	// buffered routes are bounded by the LLM timeouts.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	opts := llm.Options{
		Timeout:         cfg.LLM.Timeout,
		StreamTimeout:   cfg.LLM.StreamTimeout,
		MaxRetries:      cfg.LLM.MaxRetries,
		InitialInterval: llm.DefaultOptions().InitialInterval,
	}

	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured, chat and quiz generation are disabled")
		opts.MaxRetries = 0
		return llm.NewResilient(llm.Unconfigured{}, opts, logger), nil
	}

	gemini, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewResilient(gemini, opts, logger), nil
}
