package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/matcher"
	"github.com/Proton-105/rumor-bot/internal/reply"
)

// ArticleSource loads an article with its replies.
type ArticleSource interface {
	GetArticle(ctx context.Context, userID int64, articleID string) (*domain.Article, error)
}

// Mentions answers messages the bot is mentioned about in group chats. The
// answer is a single summary; no session is kept.
type Mentions struct {
	matcher  *matcher.Matcher
	articles ArticleSource
	catalog  *reply.Catalog
	timeout  time.Duration
	log      *slog.Logger
}

func NewMentions(m *matcher.Matcher, articles ArticleSource, catalog *reply.Catalog, opts Options, log *slog.Logger) *Mentions {
	if log == nil {
		log = slog.Default()
	}

	return &Mentions{
		matcher:  m,
		articles: articles,
		catalog:  catalog,
		timeout:  opts.withDefaults().TurnTimeout,
		log:      log,
	}
}

// Check looks text up on behalf of nobody in particular. Text without enough
// content gets no answer.
func (m *Mentions) Check(ctx context.Context, text string) ([]reply.Message, error) {
	if m.matcher.IsNonsense(text) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	composer := m.catalog.Composer(LanguageFromContext(ctx))

	found, err := m.matcher.FindCandidates(ctx, 0, text)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	if len(found.Candidates) == 0 {
		return []reply.Message{composer.MentionNotFound()}, nil
	}

	top := found.Candidates[0].ArticleID
	article, err := m.articles.GetArticle(ctx, 0, top)
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", top, err)
	}

	ranked := reply.RankAndTally(article.ArticleReplies, composer.VisibleLimit())

	m.log.DebugContext(ctx, "mention checked",
		slog.String("article_id", top),
		slog.Int("candidates", len(found.Candidates)),
		slog.Float64("similarity", found.Candidates[0].Similarity),
	)

	return composer.MentionSummary(found, ranked.Tally), nil
}
