package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewChoosingReplyHandler shows the reply the user picked and asks whether it helped.
func NewChoosingReplyHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateChoosingReply); err != nil {
			return Result{}, err
		}

		ids := p.Data.FoundReplyIDs
		n, ok := choice(p.Event.Input)
		if !ok || n < 1 || n > len(ids) {
			return p.stay(p.Reply.InvalidReplyChoice(len(ids))), nil
		}

		detail, err := deps.Backend.GetReply(ctx, p.UserID, ids[n-1])
		if err != nil {
			return Result{}, err
		}

		data := p.Data.Clone()
		data.SelectedReplyID = ids[n-1]

		return p.move(state.StateAskingReplyFeedback, data, p.Reply.ReplyDetail(data.SelectedArticleID, *detail)...), nil
	}
}
