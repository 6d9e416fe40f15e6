// Package cmd implements the mentoriactl operator commands.
package cmd

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mentoria/mentoria-go/internal/config"
	"github.com/mentoria/mentoria-go/internal/repository"
	"github.com/mentoria/mentoria-go/internal/service"
)

// NewRootCmd builds the mentoriactl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentoriactl",
		Short: "Operate a MentorIA deployment",
		Long: `Administrative commands for the MentorIA API.

Configuration is read the same way the server reads it: config.yaml,
MENTORIA_* environment variables and an optional .env file.

Examples:
  mentoriactl migrate up
  mentoriactl migrate down --steps 1
  mentoriactl user deactivate alice@x.com
  mentoriactl sessions prune`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newUserCmd(), newSessionsCmd())
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
	return NewRootCmd().Execute()
}

// env holds the resources a command needs, opened from configuration.
type env struct {
	cfg    *config.Config
	db     *sql.DB
	redis  *redis.Client
	logger *slog.Logger
}

func openEnv(withCache bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.DSN, repository.PoolConfig{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, db: db, logger: logger}
	if withCache && cfg.Redis.Addr != "" {
		e.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return e, nil
}

func (e *env) sessions() *service.SessionService {
	svc := service.NewSessionService(repository.NewSessionRepository(e.db), e.cfg.Auth.SessionTTL, e.logger)
	if e.redis != nil {
		svc.WithCache(repository.NewSessionCache(e.redis, e.cfg.Auth.SessionTTL))
	}
	return svc
}

func (e *env) Close() {
	if e.redis != nil {
		e.redis.Close()
	}
	e.db.Close()
}
