package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewChoosingArticleHandler opens the article the user picked from the search
// results and presents its replies.
func NewChoosingArticleHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateChoosingArticle); err != nil {
			return Result{}, err
		}

		ids := p.Data.FoundArticleIDs
		n, ok := choice(p.Event.Input)

		if ok && n == 0 {
			if deps.Matcher.IsNonsense(p.Data.SearchedText) {
				return p.move(state.StateInit, p.Data, p.Reply.Nonsense()), nil
			}
			return p.move(state.StateAskingArticleSubmissionReason, p.Data, p.Reply.AskArticleSubmission()...), nil
		}

		if !ok || n > len(ids) {
			return p.stay(p.Reply.InvalidArticleChoice(len(ids))), nil
		}

		article, err := deps.Backend.GetArticle(ctx, p.UserID, ids[n-1])
		if err != nil {
			return Result{}, err
		}

		data := p.Data.Clone()
		data.SelectedArticleID = ids[n-1]
		data.SelectedArticleText = article.Text
		data.FoundReplyIDs = nil
		data.SelectedReplyID = ""
		data.ReasonText = ""
		data.Comment = ""

		ranked := reply.RankAndTally(article.ArticleReplies, p.Reply.VisibleLimit())

		switch len(ranked.Ordered) {
		case 0:
			return p.move(state.StateAskingReplyRequestReason, data, p.Reply.AskReplyRequest()...), nil

		case 1:
			only := ranked.Ordered[0].Reply.ID
			detail, err := deps.Backend.GetReply(ctx, p.UserID, only)
			if err != nil {
				return Result{}, err
			}

			data.FoundReplyIDs = []string{only}
			data.SelectedReplyID = only

			replies := append([]reply.Message{p.Reply.ArticleSummary(ranked.Tally)}, p.Reply.ReplyDetail(data.SelectedArticleID, *detail)...)
			return p.move(state.StateAskingReplyFeedback, data, replies...), nil
		}

		data.FoundReplyIDs = ranked.ReplyIDs()

		replies := append([]reply.Message{p.Reply.ArticleSummary(ranked.Tally)}, p.Reply.ReplyCarousel(data.SelectedArticleID, ranked)...)
		return p.move(state.StateChoosingReply, data, replies...), nil
	}
}
