// Package bot connects the dialogue to Telegram.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	"github.com/Proton-105/rumor-bot/internal/delivery"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/idempotency"
	"github.com/Proton-105/rumor-bot/internal/middleware"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/user"
	"github.com/Proton-105/rumor-bot/pkg/config"
)

// Deps are the collaborators of the Telegram adapter. Users, Idempotency,
// RateLimit and Deliverer are optional.
type Deps struct {
	Service        handlers.TurnService
	Catalog        *reply.Catalog
	Errors         *apperrors.Handler
	Users          *user.Service
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	RateLimit      *middleware.RateLimitMiddleware
	// Deliverer defaults to sending through the bot itself.
	Deliverer     delivery.Deliverer
	ContactPhrase string
	// Mentions answers group messages that mention the bot. Optional.
	Mentions handlers.MentionChecker
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot   *telebot.Bot
	log       *slog.Logger
	router    *Router
	deliverer delivery.Deliverer
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.BotConfig, deps Deps, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	return newBot(settings, deps, log)
}

func newBot(settings telebot.Settings, deps Deps, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Service == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("bot: dialogue service and reply catalog are required")
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewHandler(log, false)
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	deliverer := deps.Deliverer
	if deliverer == nil {
		deliverer = delivery.NewDirect(tb, delivery.ModeInline, log)
	}

	b := &Bot{
		telebot:   tb,
		log:       log,
		router:    NewRouter(log),
		deliverer: deliverer,
	}

	var (
		botID    int64
		username string
	)
	if tb.Me != nil {
		botID, username = tb.Me.ID, tb.Me.Username
	}

	b.setupRouter(deps, botID, username)
	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop until Stop is called.
func (b *Bot) Start() {
	b.log.Info("starting telegram bot", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// PublishCommands updates the command menu shown by Telegram clients.
func (b *Bot) PublishCommands() error {
	cmds := make([]telebot.Command, 0, len(Commands))
	for _, c := range Commands {
		cmds = append(cmds, telebot.Command{Text: c.Text, Description: c.Description})
	}
	return b.telebot.SetCommands(cmds)
}

// Route hands one update to the router.
func (b *Bot) Route(c telebot.Context) error {
	return b.router.Route(c)
}

func (b *Bot) setupRouter(deps Deps, botID int64, username string) {
	b.router.Use(RecoveryMiddleware(b.log, deps.Errors, deps.Catalog, b.deliverer))
	b.router.Use(middleware.Idempotency(deps.Idempotency, botID, deps.IdempotencyTTL, b.log))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(ErrorHandlingMiddleware(deps.Errors, deps.Catalog, b.deliverer, b.log))
	b.router.Use(UserMiddleware(deps.Users, b.log))
	b.router.Use(middleware.Metrics)
	if deps.RateLimit != nil {
		deps.RateLimit.SetDeliverer(b.deliverer)
		b.router.Use(deps.RateLimit.Handle)
	}

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(deps.Catalog, b.deliverer, deps.ContactPhrase))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(deps.Catalog, b.deliverer, deps.ContactPhrase))
	b.router.RegisterCommand(CommandReset, handlers.NewResetHandler(deps.Service, b.log))
	b.router.SetDefault(handlers.NewTurnHandler(deps.Service, b.deliverer, b.log))
	if deps.Mentions != nil && username != "" {
		b.router.SetMention(username, handlers.NewMentionHandler(deps.Mentions, username, b.deliverer, b.log))
	}
}

func (b *Bot) registerTelebotHandlers() {
	for _, endpoint := range []string{
		telebot.OnText,
		telebot.OnCallback,
		telebot.OnPhoto,
		telebot.OnVideo,
		telebot.OnDocument,
		telebot.OnSticker,
		telebot.OnVoice,
		telebot.OnAudio,
		telebot.OnAnimation,
		telebot.OnVideoNote,
		telebot.OnLocation,
		telebot.OnContact,
	} {
		b.telebot.Handle(endpoint, b.Route)
	}
}
