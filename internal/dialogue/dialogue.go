// Package dialogue runs conversation turns: it picks the handler of the
// session's state, applies its decision and persists the result.
package dialogue

import (
	"context"
	"errors"
	"time"
)

// ErrContractViolation marks a handler result that breaks the session model:
// a state entered without the data it owns or a move the machine forbids.
var ErrContractViolation = errors.New("dialogue contract violation")

const (
	DefaultMaxAutoAdvance = 1
	DefaultTurnTimeout    = 20 * time.Second
	DefaultContactPhrase  = "contact"
	ResetCommand          = "RESET"
)

// Options tunes turn processing.
type Options struct {
	// MaxAutoAdvance bounds how many times one turn may re-enter the machine
	// without waiting for the user.
	MaxAutoAdvance int `mapstructure:"max_auto_advance" validate:"gte=0"`
	// TurnTimeout caps the time one turn may spend on backend and store calls.
	TurnTimeout time.Duration `mapstructure:"turn_timeout" validate:"gte=0"`
	// ContactPhrase answers with the contact details instead of a search.
	ContactPhrase string `mapstructure:"contact_phrase"`
}

// DefaultOptions returns the stock turn settings.
func DefaultOptions() Options {
	return Options{
		MaxAutoAdvance: DefaultMaxAutoAdvance,
		TurnTimeout:    DefaultTurnTimeout,
		ContactPhrase:  DefaultContactPhrase,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAutoAdvance < 0 {
		o.MaxAutoAdvance = 0
	}
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = DefaultTurnTimeout
	}
	if o.ContactPhrase == "" {
		o.ContactPhrase = DefaultContactPhrase
	}
	return o
}

type languageKey struct{}

// WithLanguage stores the user's language tag in ctx.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// LanguageFromContext returns the language stored by WithLanguage or "".
func LanguageFromContext(ctx context.Context) string {
	lang, _ := ctx.Value(languageKey{}).(string)
	return lang
}
