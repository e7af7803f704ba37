package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewFallbackHandler answers turns whose state no handler knows.
func NewFallbackHandler() Handler {
	return func(_ context.Context, p Params) (Result, error) {
		return p.move(state.StateInit, p.Data, p.Reply.DidntUnderstand()), nil
	}
}
