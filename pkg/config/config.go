package config

import (
	"time"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/pkg/logger"
	"github.com/Proton-105/rumor-bot/pkg/redis"
)

// Config holds runtime configuration for the rumor-check bot.
type Config struct {
	AppEnv      string            `mapstructure:"app_env"`
	Logger      logger.Config     `mapstructure:"logger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Bot         BotConfig         `mapstructure:"bot"`
	Server      ServerConfig      `mapstructure:"server"`
	Redis       redis.Config      `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Backend     backend.Config    `mapstructure:"backend"`
	Dialogue    DialogueConfig    `mapstructure:"dialogue"`
	Session     SessionConfig     `mapstructure:"session"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	// Blocklist holds user ids whose messages are ignored.
	Blocklist []int64 `mapstructure:"blocklist"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Mode    string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	// WebhookListen is the address telebot listens on in webhook mode.
	WebhookListen string `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
}

// ServerConfig configures the HTTP server exposing health and metrics.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DSN           string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	MaxOpenConns  int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// DialogueConfig tunes matching, rendering and turn processing.
type DialogueConfig struct {
	Language        string        `mapstructure:"language"`
	LocalesDir      string        `mapstructure:"locales_dir"`
	SiteURL         string        `mapstructure:"site_url" validate:"omitempty,url"`
	ManualURL       string        `mapstructure:"manual_url" validate:"omitempty,url"`
	ContactEmail    string        `mapstructure:"contact_email" validate:"omitempty,email"`
	ContactPhrase   string        `mapstructure:"contact_phrase"`
	Threshold       float64       `mapstructure:"threshold" validate:"gte=0,lte=1"`
	CandidateLimit  int           `mapstructure:"candidate_limit" validate:"gte=0"`
	MinContentRunes int           `mapstructure:"min_content_runes" validate:"gte=0"`
	VisibleReplies  int           `mapstructure:"visible_replies" validate:"gte=0"`
	MaxAutoAdvance  int           `mapstructure:"max_auto_advance" validate:"gte=0"`
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"`
	// GroupMentions answers group messages that mention the bot.
	GroupMentions bool `mapstructure:"group_mentions"`
}

// SessionConfig configures where sessions live and how stale ones are swept.
type SessionConfig struct {
	Storage         string        `mapstructure:"storage" validate:"oneof=redis memory"`
	TTL             time.Duration `mapstructure:"ttl"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
}

// RateLimitRule is a limit of requests per window, e.g. 20 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

// EventRateLimits holds per event type limits.
type EventRateLimits struct {
	Text     RateLimitRule `mapstructure:"text"`
	Postback RateLimitRule `mapstructure:"postback"`
}

type RateLimitConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	Global    RateLimitRule   `mapstructure:"global"`
	PerUser   RateLimitRule   `mapstructure:"per_user"`
	Events    EventRateLimits `mapstructure:"events"`
	Whitelist []int64         `mapstructure:"whitelist"`
}

type IdempotencyConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DeliveryConfig switches reply delivery to the background queue.
type DeliveryConfig struct {
	Async       bool `mapstructure:"async"`
	Concurrency int  `mapstructure:"concurrency" validate:"gte=0"`
	MaxRetry    int  `mapstructure:"max_retry" validate:"gte=0"`
}
