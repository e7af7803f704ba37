package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewAskingReplyFeedbackHandler records whether the shown reply helped.
func NewAskingReplyFeedbackHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingReplyFeedback); err != nil {
			return Result{}, err
		}

		switch token(p.Event.Input) {
		case "y":
			count, err := vote(ctx, deps, p, domain.VoteUp, "")
			if err != nil {
				return Result{}, err
			}

			detail, err := deps.Backend.GetReply(ctx, p.UserID, p.Data.SelectedReplyID)
			if err != nil {
				return Result{}, err
			}

			return p.move(state.StateInit, p.Data,
				p.Reply.FeedbackThanks(count),
				p.Reply.ShareReply(p.Data.SelectedArticleID, p.Data.SelectedArticleText, detail.Type),
			), nil

		case "n":
			return p.move(state.StateAskingNotUsefulFeedback, p.Data, p.Reply.AskNotUsefulReason()), nil
		}

		return p.stay(p.Reply.HelpfulPrompt()), nil
	}
}

// NewAskingNotUsefulFeedbackHandler collects why a reply did not help.
func NewAskingNotUsefulFeedbackHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingNotUsefulFeedback); err != nil {
			return Result{}, err
		}

		if token(p.Event.Input) == "n" {
			return downvoted(ctx, deps, p, noComment)
		}

		data := p.Data.Clone()
		data.Comment = p.Event.Input

		return p.move(state.StateAskingNotUsefulFeedbackSubmission, data, p.Reply.ConfirmFeedback(p.Event.Input)...), nil
	}
}

// NewAskingNotUsefulFeedbackSubmissionHandler submits, drops or revises the comment.
func NewAskingNotUsefulFeedbackSubmissionHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingNotUsefulFeedbackSubmission); err != nil {
			return Result{}, err
		}

		switch token(p.Event.Input) {
		case "y":
			comment := p.Data.Comment
			if comment == "" {
				comment = noComment
			}
			return downvoted(ctx, deps, p, comment)
		case "n":
			return downvoted(ctx, deps, p, noComment)
		case "r":
			return p.move(state.StateAskingNotUsefulFeedback, p.Data, p.Reply.ReviseFeedback()), nil
		}

		return p.stay(p.Reply.FeedbackConfirmPrompt()), nil
	}
}

func downvoted(ctx context.Context, deps Deps, p Params, comment string) (Result, error) {
	count, err := vote(ctx, deps, p, domain.VoteDown, comment)
	if err != nil {
		return Result{}, err
	}

	return p.move(state.StateInit, p.Data,
		p.Reply.FeedbackThanks(count),
		p.Reply.BetterReply(p.Data.SelectedArticleID),
	), nil
}

func vote(ctx context.Context, deps Deps, p Params, v domain.Vote, comment string) (int, error) {
	return deps.Backend.VoteReply(ctx, p.UserID, backend.FeedbackInput{
		ArticleID: p.Data.SelectedArticleID,
		ReplyID:   p.Data.SelectedReplyID,
		Vote:      v,
		Comment:   comment,
	})
}

