package ratelimit

import (
	"errors"
	"slices"
	"time"

	"github.com/Proton-105/rumor-bot/pkg/config"
)

// Event kinds that carry their own limit.
const (
	EventText     = "text"
	EventPostback = "postback"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether limits should be enforced at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	return slices.Contains(r.config.Whitelist, userID)
}

// GetEventLimit returns the limit and window for an inbound event kind.
func (r *Rules) GetEventLimit(kind string) (int, time.Duration, error) {
	switch kind {
	case EventText:
		return parseRule(r.config.Events.Text)
	case EventPostback:
		return parseRule(r.config.Events.Postback)
	default:
		return 0, 0, errors.New("unsupported event kind")
	}
}

// GetGlobalLimit returns the global rate limiting rule.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerUserLimit returns the per-user rate limiting rule.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
