// Package backend talks to the content service that owns articles, replies and
// user feedback.
package backend

import (
	"context"
	"errors"

	"github.com/Proton-105/rumor-bot/internal/domain"
)

// ErrNotFound is returned when the requested article or reply does not exist.
var ErrNotFound = errors.New("backend: not found")

// FeedbackInput is a user's vote on a reply attached to an article.
type FeedbackInput struct {
	ArticleID string
	ReplyID   string
	Vote      domain.Vote
	Comment   string
}

// Backend is the content service as seen by the dialogue. Every call acts on
// behalf of userID.
type Backend interface {
	// SearchArticles suggests up to limit articles resembling text, most relevant first.
	SearchArticles(ctx context.Context, userID int64, text string, limit int) ([]domain.Article, error)
	// GetArticle loads an article with its visible replies and their feedback counters.
	GetArticle(ctx context.Context, userID int64, articleID string) (*domain.Article, error)
	// GetReply loads a reply in full.
	GetReply(ctx context.Context, userID int64, replyID string) (*domain.Reply, error)
	// VoteReply creates or updates the user's feedback and returns the reply's feedback count.
	VoteReply(ctx context.Context, userID int64, in FeedbackInput) (int, error)
	// CreateArticle submits text for fact-checking and returns the new article id.
	CreateArticle(ctx context.Context, userID int64, text, reason string) (string, error)
	// CreateReplyRequest asks for a reply to an article and returns how many
	// requests the article has. An empty reason is omitted.
	CreateReplyRequest(ctx context.Context, userID int64, articleID, reason string) (int, error)
}
