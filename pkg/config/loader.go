// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultEnv = "development"

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// Missing env files are fine outside local development.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = defaultEnv
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile reads the YAML file at path overlaid with the environment.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-reads the config file on every change and passes the new, valid
// configuration to onChange. Invalid edits are logged and skipped.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Error("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.sentry", false)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("logger.format", "text")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_listen", "")
	v.SetDefault("bot.webhook_url", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("backend.endpoint", "https://cofacts-api.g0v.tw/graphql")
	v.SetDefault("backend.app_id", "")
	v.SetDefault("backend.app_secret", "")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("dialogue.language", "en")
	v.SetDefault("dialogue.contact_phrase", "contact")
	v.SetDefault("dialogue.threshold", 0.95)
	v.SetDefault("dialogue.candidate_limit", 4)
	v.SetDefault("dialogue.min_content_runes", 4)
	v.SetDefault("dialogue.visible_replies", 10)
	v.SetDefault("dialogue.max_auto_advance", 1)
	v.SetDefault("dialogue.turn_timeout", 20*time.Second)
	v.SetDefault("dialogue.group_mentions", true)

	v.SetDefault("session.storage", "redis")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.lock_ttl", 30*time.Second)
	v.SetDefault("session.stale_after", time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)
	v.SetDefault("session.metrics_interval", time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user.limit", 30)
	v.SetDefault("rate_limit.per_user.window", "1m")
	v.SetDefault("rate_limit.events.text.limit", 20)
	v.SetDefault("rate_limit.events.text.window", "1m")
	v.SetDefault("rate_limit.events.postback.limit", 40)
	v.SetDefault("rate_limit.events.postback.window", "1m")

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("idempotency.cleanup_interval", time.Hour)

	v.SetDefault("delivery.async", false)
	v.SetDefault("delivery.concurrency", 10)
	v.SetDefault("delivery.max_retry", 5)
}
