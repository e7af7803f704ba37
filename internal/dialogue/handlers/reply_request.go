package handlers

import (
	"context"

	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewAskingReplyRequestReasonHandler collects why an unanswered article deserves a reply.
func NewAskingReplyRequestReasonHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingReplyRequestReason); err != nil {
			return Result{}, err
		}

		if token(p.Event.Input) == "n" {
			return requested(ctx, deps, p, "")
		}

		data := p.Data.Clone()
		data.ReasonText = p.Event.Input

		return p.move(state.StateAskingReplyRequestSubmission, data, p.Reply.ConfirmReplyRequest(p.Event.Input)...), nil
	}
}

// NewAskingReplyRequestSubmissionHandler sends the reply request with or without the reason.
func NewAskingReplyRequestSubmissionHandler(deps Deps) Handler {
	return func(ctx context.Context, p Params) (Result, error) {
		if err := p.Data.Require(state.StateAskingReplyRequestSubmission); err != nil {
			return Result{}, err
		}

		switch token(p.Event.Input) {
		case "y":
			return requested(ctx, deps, p, p.Data.ReasonText)
		case "n":
			return requested(ctx, deps, p, "")
		case "r":
			return p.move(state.StateAskingReplyRequestReason, p.Data, p.Reply.ReviseReplyRequest()), nil
		}

		return p.stay(p.Reply.ReplyRequestConfirmPrompt()), nil
	}
}

func requested(ctx context.Context, deps Deps, p Params, reason string) (Result, error) {
	count, err := deps.Backend.CreateReplyRequest(ctx, p.UserID, p.Data.SelectedArticleID, reason)
	if err != nil {
		return Result{}, err
	}

	return p.move(state.StateInit, p.Data, p.Reply.ReplyRequestRecorded(p.Data.SelectedArticleID, count)), nil
}
