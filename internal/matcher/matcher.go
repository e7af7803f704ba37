// Package matcher finds the known articles that look like a user's message.
package matcher

import (
	"cmp"
	"context"
	"slices"

	"github.com/Proton-105/rumor-bot/internal/domain"
)

const (
	DefaultThreshold       = 0.95
	DefaultCandidateLimit  = 4
	DefaultMinContentRunes = 4
)

// Searcher suggests articles related to free text, most relevant first.
type Searcher interface {
	SearchArticles(ctx context.Context, userID int64, text string, limit int) ([]domain.Article, error)
}

// Config tunes matching.
type Config struct {
	// Threshold is the similarity from which a candidate counts as a near-duplicate.
	Threshold float64
	// CandidateLimit caps how many articles are requested from the backend.
	CandidateLimit int
	// MinContentRunes is the nonsense floor, see IsNonsense.
	MinContentRunes int
}

// DefaultConfig returns the stock matching parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		CandidateLimit:  DefaultCandidateLimit,
		MinContentRunes: DefaultMinContentRunes,
	}
}

// Candidate is a found article scored against the searched text.
type Candidate struct {
	ArticleID  string
	Text       string
	Similarity float64
}

// Result is the ranked outcome of a search.
type Result struct {
	Candidates       []Candidate
	HasNearDuplicate bool
}

// SingleMatch reports whether the search produced exactly one candidate and it is a near-duplicate.
func (r Result) SingleMatch() bool {
	return len(r.Candidates) == 1 && r.HasNearDuplicate
}

// ArticleIDs returns the candidate ids in ranked order.
func (r Result) ArticleIDs() []string {
	ids := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		ids[i] = c.ArticleID
	}
	return ids
}

// Matcher ranks backend suggestions by textual similarity.
type Matcher struct {
	searcher Searcher
	cfg      Config
}

// New builds a Matcher. Zero config fields fall back to the defaults.
func New(searcher Searcher, cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}

	return &Matcher{searcher: searcher, cfg: cfg}
}

// FindCandidates asks the backend for related articles and ranks them against text.
func (m *Matcher) FindCandidates(ctx context.Context, userID int64, text string) (Result, error) {
	articles, err := m.searcher.SearchArticles(ctx, userID, text, m.cfg.CandidateLimit)
	if err != nil {
		return Result{}, err
	}

	if len(articles) > m.cfg.CandidateLimit {
		articles = articles[:m.cfg.CandidateLimit]
	}

	return Rank(text, articles, m.cfg.Threshold), nil
}

// IsNonsense applies the configured nonsense floor to text.
func (m *Matcher) IsNonsense(text string) bool {
	return IsNonsense(text, m.cfg.MinContentRunes)
}

// Rank scores articles against text and orders them by descending similarity.
// Articles with equal scores keep their incoming order.
func Rank(text string, articles []domain.Article, threshold float64) Result {
	candidates := make([]Candidate, len(articles))
	for i, article := range articles {
		candidates[i] = Candidate{
			ArticleID:  article.ID,
			Text:       article.Text,
			Similarity: Similarity(text, article.Text),
		}
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	return Result{
		Candidates:       candidates,
		HasNearDuplicate: len(candidates) > 0 && candidates[0].Similarity >= threshold,
	}
}
