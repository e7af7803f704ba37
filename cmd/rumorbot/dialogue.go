package main

import (
	"fmt"
	"log/slog"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	"github.com/Proton-105/rumor-bot/internal/dialogue/handlers"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/i18n"
	"github.com/Proton-105/rumor-bot/internal/matcher"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/pkg/config"
)

// dialogueStack is what serve and chat need from the dialogue layer.
type dialogueStack struct {
	service  *dialogue.Service
	mentions *dialogue.Mentions
	catalog  *reply.Catalog
}

// newDialogue assembles the turn service shared by serve and chat.
func newDialogue(
	cfg *config.Config,
	content backend.Backend,
	store state.Storage,
	locker state.Locker,
	blocklist dialogue.Blocklist,
	errHandler *apperrors.Handler,
	log *slog.Logger,
) (*dialogueStack, error) {
	dc := cfg.Dialogue

	var (
		messages *i18n.Manager
		err      error
	)
	if dc.LocalesDir != "" {
		messages, err = i18n.LoadFromDir(dc.LocalesDir, dc.Language)
	} else {
		messages, err = i18n.Load(dc.Language)
	}
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	catalog := reply.NewCatalog(messages, reply.Config{
		SiteURL:      dc.SiteURL,
		ManualURL:    dc.ManualURL,
		ContactEmail: dc.ContactEmail,
		VisibleLimit: dc.VisibleReplies,
	})

	m := matcher.New(content, matcher.Config{
		Threshold:       dc.Threshold,
		CandidateLimit:  dc.CandidateLimit,
		MinContentRunes: dc.MinContentRunes,
	})

	opts := dialogue.Options{
		MaxAutoAdvance: dc.MaxAutoAdvance,
		TurnTimeout:    dc.TurnTimeout,
		ContactPhrase:  dc.ContactPhrase,
	}
	registry := handlers.NewRegistry(handlers.Deps{Backend: content, Matcher: m})
	dispatcher := dialogue.NewDispatcher(registry, catalog, errHandler, opts, log)

	service := dialogue.NewService(dialogue.ServiceDeps{
		Store:      store,
		Locker:     locker,
		Dispatcher: dispatcher,
		Catalog:    catalog,
		Blocklist:  blocklist,
		Errors:     errHandler,
	}, opts, log)

	stack := &dialogueStack{service: service, catalog: catalog}
	if dc.GroupMentions {
		stack.mentions = dialogue.NewMentions(m, content, catalog, opts, log)
	}
	return stack, nil
}
