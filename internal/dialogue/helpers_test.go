package dialogue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/dialogue/handlers"
	"github.com/Proton-105/rumor-bot/internal/domain"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/i18n"
	"github.com/Proton-105/rumor-bot/internal/matcher"
	"github.com/Proton-105/rumor-bot/internal/reply"
)

type createdArticle struct {
	Text   string
	Reason string
}

type replyRequest struct {
	ArticleID string
	Reason    string
}

// fakeBackend answers from fixed data and records every mutation.
type fakeBackend struct {
	mu sync.Mutex

	searchResults []domain.Article
	articles      map[string]domain.Article
	replies       map[string]domain.Reply
	err           error

	feedbackCount int
	requestCount  int
	newArticleID  string

	calls    []string
	votes    []backend.FeedbackInput
	created  []createdArticle
	requests []replyRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		articles:      make(map[string]domain.Article),
		replies:       make(map[string]domain.Reply),
		feedbackCount: 1,
		requestCount:  1,
		newArticleID:  "new-article",
	}
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeBackend) SearchArticles(_ context.Context, _ int64, _ string, limit int) ([]domain.Article, error) {
	if err := f.record("search"); err != nil {
		return nil, err
	}
	if len(f.searchResults) > limit {
		return f.searchResults[:limit], nil
	}
	return f.searchResults, nil
}

func (f *fakeBackend) GetArticle(_ context.Context, _ int64, articleID string) (*domain.Article, error) {
	if err := f.record("article:" + articleID); err != nil {
		return nil, err
	}
	article, ok := f.articles[articleID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &article, nil
}

func (f *fakeBackend) GetReply(_ context.Context, _ int64, replyID string) (*domain.Reply, error) {
	if err := f.record("reply:" + replyID); err != nil {
		return nil, err
	}
	r, ok := f.replies[replyID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &r, nil
}

func (f *fakeBackend) VoteReply(_ context.Context, _ int64, in backend.FeedbackInput) (int, error) {
	if err := f.record("vote"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, in)
	return f.feedbackCount, nil
}

func (f *fakeBackend) CreateArticle(_ context.Context, _ int64, text, reason string) (string, error) {
	if err := f.record("create-article"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, createdArticle{Text: text, Reason: reason})
	return f.newArticleID, nil
}

func (f *fakeBackend) CreateReplyRequest(_ context.Context, _ int64, articleID, reason string) (int, error) {
	if err := f.record("reply-request"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, replyRequest{ArticleID: articleID, Reason: reason})
	return f.requestCount, nil
}

func (f *fakeBackend) addReply(r domain.Reply) domain.ArticleReply {
	f.replies[r.ID] = r
	return domain.ArticleReply{Reply: r}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *reply.Catalog {
	t.Helper()

	manager, err := i18n.Load(i18n.DefaultLang)
	require.NoError(t, err)

	return reply.NewCatalog(manager, reply.Config{SiteURL: "https://site.test"})
}

func newTestDispatcher(t *testing.T, be *fakeBackend, opts Options) (*Dispatcher, *reply.Composer) {
	t.Helper()

	catalog := testCatalog(t)
	registry := handlers.NewRegistry(handlers.Deps{
		Backend: be,
		Matcher: matcher.New(be, matcher.DefaultConfig()),
	})

	d := NewDispatcher(registry, catalog, apperrors.NewHandler(testLogger(), false), opts, testLogger())
	return d, catalog.Composer(i18n.DefaultLang)
}

func concat(groups ...[]reply.Message) []reply.Message {
	var out []reply.Message
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func one(m reply.Message) []reply.Message {
	return []reply.Message{m}
}
