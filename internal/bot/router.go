package bot

import (
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
)

// Router dispatches commands to their handlers and everything else to the
// dialogue. It is configured before the bot starts and only read afterwards.
type Router struct {
	commands    map[string]handlers.Handler
	fallback    handlers.Handler
	mention     handlers.Handler
	username    string
	middlewares []handlers.Middleware
	log         *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands: make(map[string]handlers.Handler),
		log:      log,
	}
}

// RegisterCommand routes "/cmd" to h. Matching ignores case and a "@bot" suffix.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.commands[strings.ToLower(cmd)] = h
}

// Use appends a middleware. The first one added runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the handler for updates that are not registered commands.
func (r *Router) SetDefault(h handlers.Handler) {
	r.fallback = h
}

// SetMention routes group messages that mention @username to h.
func (r *Router) SetMention(username string, h handlers.Handler) {
	r.username = username
	r.mention = h
}

// Route runs the update through the middlewares and its handler. Unknown
// commands are treated as text so the dialogue can answer them.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	h := r.match(c)
	if h == nil {
		r.log.Info("no handler for update", slog.String("kind", handlers.EventKind(c)))
		return nil
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		if h = r.middlewares[i](h); h == nil {
			return nil
		}
	}
	return h(c)
}

func (r *Router) match(c telebot.Context) handlers.Handler {
	if c.Callback() == nil {
		if h, ok := r.commands[commandName(c.Text())]; ok && h != nil {
			return h
		}
	}
	if r.mention != nil && handlers.IsGroupMention(c, r.username) {
		return r.mention
	}
	return r.fallback
}

// commandName extracts "/cmd" from "/cmd@botname args".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}
