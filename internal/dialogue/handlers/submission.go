package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewAskingArticleSubmissionReasonHandler collects why an unknown message should be checked.
func NewAskingArticleSubmissionReasonHandler() Handler {
	return func(_ context.Context, p Params) (Result, error) {
		if token(p.Event.Input) == "n" {
			return p.move(state.StateInit, p.Data, p.Reply.SubmissionDiscarded()), nil
		}

		data := p.Data.Clone()
		data.ReasonText = p.Event.Input

		return p.move(state.StateAskingArticleSubmission, data, p.Reply.ConfirmArticleSubmission(p.Event.Input)...), nil
	}
}

// NewAskingArticleSubmissionHandler submits, discards or revises a new article.
func NewAskingArticleSubmissionHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingArticleSubmission); err != nil {
			return Result{}, err
		}

		switch token(p.Event.Input) {
		case "y":
			id, err := deps.Backend.CreateArticle(ctx, p.UserID, p.Data.SearchedText, p.Data.ReasonText)
			if err != nil {
				return Result{}, err
			}
			return p.move(state.StateInit, p.Data, p.Reply.ArticleCreated(id)...), nil
		case "n":
			return p.move(state.StateInit, p.Data, p.Reply.SubmissionDiscarded()), nil
		case "r":
			return p.move(state.StateAskingArticleSubmissionReason, p.Data, p.Reply.ReviseSubmission()), nil
		}

		return p.stay(p.Reply.SubmissionConfirmPrompt()), nil
	}
}
