// Package handlers holds one handler per conversation state.
package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/matcher"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
)

// Params is everything a handler sees of the current turn.
type Params struct {
	Data     state.Data
	State    state.State
	Event    state.Event
	IssuedAt int64
	UserID   int64
	// Reply renders messages in the user's language.
	Reply *reply.Composer
}

// Result is a handler's decision for the turn.
type Result struct {
	Data    state.Data
	State   state.State
	Event   state.Event
	Replies []reply.Message
	// SkipUser asks the dispatcher to run the handler of State right away
	// with Event instead of waiting for the user.
	SkipUser bool
}

// Handler processes one event in one state. A returned error aborts the turn.
type Handler func(ctx context.Context, p Params) (Result, error)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Backend backend.Backend
	Matcher *matcher.Matcher
}

// Registry maps each state to its handler.
type Registry map[state.State]Handler

// NewRegistry builds the handlers of every state.
func NewRegistry(deps Deps) Registry {
	return Registry{
		state.StateInit:                              NewInitHandler(deps),
		state.StateChoosingArticle:                   NewChoosingArticleHandler(deps),
		state.StateChoosingReply:                     NewChoosingReplyHandler(deps),
		state.StateAskingReplyFeedback:               NewAskingReplyFeedbackHandler(deps),
		state.StateAskingNotUsefulFeedback:           NewAskingNotUsefulFeedbackHandler(deps),
		state.StateAskingNotUsefulFeedbackSubmission: NewAskingNotUsefulFeedbackSubmissionHandler(deps),
		state.StateAskingArticleSubmissionReason:     NewAskingArticleSubmissionReasonHandler(),
		state.StateAskingArticleSubmission:           NewAskingArticleSubmissionHandler(deps),
		state.StateAskingReplyRequestReason:          NewAskingReplyRequestReasonHandler(deps),
		state.StateAskingReplyRequestSubmission:      NewAskingReplyRequestSubmissionHandler(deps),
	}
}

func (p Params) stay(replies ...reply.Message) Result {
	return Result{Data: p.Data, State: p.State, Event: p.Event, Replies: replies}
}

func (p Params) move(to state.State, data state.Data, replies ...reply.Message) Result {
	return Result{Data: data, State: to, Event: p.Event, Replies: replies}
}

// token is the normalized form of a single-letter answer such as "y", "n" or "r".
func token(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// choice parses a numeric pick. ok is false for anything that is not a
// non-negative integer.
func choice(input string) (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

const noComment = "none"
