package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envProduction = "production"

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Auth     AuthConfig
	Chat     ChatConfig
	Quiz     QuizConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig configures the session cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	StreamTimeout  time.Duration
	MaxRetries     int
	RateLimitRPS   float64
	RateLimitBurst int
}

type AuthConfig struct {
	SessionTTL     time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

type ChatConfig struct {
	HistoryWindow int
	DisplayWindow int
	TitleTimeout  time.Duration
}

type QuizConfig struct {
	RecentLimit int
}

// IsProduction reports whether the server runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == envProduction
}

// LogLevel parses Log.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads configuration from config.yaml (optional) and MENTORIA_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/mentoria")
	v.SetEnvPrefix("MENTORIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			Environment:     v.GetString("server.environment"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     splitList(v.GetStringSlice("server.cors_origins")),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		LLM: LLMConfig{
			APIKey:         firstNonEmpty(v.GetString("llm.api_key"), os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Model:          v.GetString("llm.model"),
			Timeout:        v.GetDuration("llm.timeout"),
			StreamTimeout:  v.GetDuration("llm.stream_timeout"),
			MaxRetries:     v.GetInt("llm.max_retries"),
			RateLimitRPS:   v.GetFloat64("llm.rate_limit_rps"),
			RateLimitBurst: v.GetInt("llm.rate_limit_burst"),
		},
		Auth: AuthConfig{
			SessionTTL:     v.GetDuration("auth.session_ttl"),
			RateLimitRPS:   v.GetFloat64("auth.rate_limit_rps"),
			RateLimitBurst: v.GetInt("auth.rate_limit_burst"),
		},
		Chat: ChatConfig{
			HistoryWindow: v.GetInt("chat.history_window"),
			DisplayWindow: v.GetInt("chat.display_window"),
			TitleTimeout:  v.GetDuration("chat.title_timeout"),
		},
		Quiz: QuizConfig{
			RecentLimit: v.GetInt("quiz.recent_limit"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "root:password@tcp(127.0.0.1:3306)/mentoria?parseTime=true")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.stream_timeout", 5*time.Minute)
	v.SetDefault("llm.max_retries", 1)
	v.SetDefault("llm.rate_limit_rps", 1)
	v.SetDefault("llm.rate_limit_burst", 5)

	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.rate_limit_rps", 5)
	v.SetDefault("auth.rate_limit_burst", 10)

	v.SetDefault("chat.history_window", 10)
	v.SetDefault("chat.display_window", 100)
	v.SetDefault("chat.title_timeout", 15*time.Second)

	v.SetDefault("quiz.recent_limit", 12)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must be set")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.IsProduction() && c.LLM.APIKey == "" {
		return errors.New("an LLM API key (MENTORIA_LLM_API_KEY or GEMINI_API_KEY) must be set in production")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
