package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewInitHandler looks up a new message among the known articles.
func NewInitHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		data := state.Data{SearchedText: p.Event.Input}

		found, err := deps.Matcher.FindCandidates(ctx, p.UserID, p.Event.Input)
		if err != nil {
			return Result{}, err
		}

		if len(found.Candidates) > 0 {
			data.FoundArticleIDs = found.ArticleIDs()

			result := p.move(state.StateChoosingArticle, data, p.Reply.ArticleCandidates(p.Event.Input, found)...)
			if found.SingleMatch() {
				result.Event = state.Event{Input: "1", Type: p.Event.Type}
				result.SkipUser = true
			}
			return result, nil
		}

		if deps.Matcher.IsNonsense(p.Event.Input) {
			return p.move(state.StateInit, data, p.Reply.Nonsense()), nil
		}

		return p.move(state.StateAskingArticleSubmissionReason, data, p.Reply.NotFound(p.Event.Input)...), nil
	}
}
