package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/Proton-105/rumor-bot/internal/domain"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Config describes how to reach the content service.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`
	AppID     string        `mapstructure:"app_id" validate:"required"`
	AppSecret string        `mapstructure:"app_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GraphQLClient implements Backend over the service's GraphQL endpoint.
type GraphQLClient struct {
	cfg     Config
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewGraphQLClient constructs a GraphQLClient. A nil httpClient gets one with cfg.Timeout.
func NewGraphQLClient(cfg Config, httpClient *http.Client, log *slog.Logger) *GraphQLClient {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	checked := *httpClient
	next := checked.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	checked.Transport = statusTransport{next: next}

	return &GraphQLClient{
		cfg:     cfg,
		http:    &checked,
		breaker: apperrors.NewCircuitBreaker(apperrors.BreakerConfig{
			OnStateChange: func(from, to apperrors.State) {
				log.Warn("content backend circuit breaker changed state",
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
				metrics.SetBreakerState("backend", to.String())
			},
		}),
		log:     log,
	}
}

func (c *GraphQLClient) SearchArticles(ctx context.Context, userID int64, text string, limit int) ([]domain.Article, error) {
	var out struct {
		ListArticles struct {
			Edges []struct {
				Node domain.Article `json:"node"`
			} `json:"edges"`
		} `json:"ListArticles"`
	}

	err := c.query(ctx, "search_articles", userID, listArticlesQuery, map[string]any{"text": text, "first": limit}, &out)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, len(out.ListArticles.Edges))
	for i, edge := range out.ListArticles.Edges {
		articles[i] = edge.Node
	}
	return articles, nil
}

func (c *GraphQLClient) GetArticle(ctx context.Context, userID int64, articleID string) (*domain.Article, error) {
	var out struct {
		GetArticle *domain.Article `json:"GetArticle"`
	}

	if err := c.query(ctx, "get_article", userID, getArticleQuery, map[string]any{"id": articleID}, &out); err != nil {
		return nil, err
	}
	if out.GetArticle == nil {
		return nil, notFound("get_article", "article "+articleID)
	}
	if out.GetArticle.ID == "" {
		out.GetArticle.ID = articleID
	}
	return out.GetArticle, nil
}

func (c *GraphQLClient) GetReply(ctx context.Context, userID int64, replyID string) (*domain.Reply, error) {
	var out struct {
		GetReply *domain.Reply `json:"GetReply"`
	}

	if err := c.query(ctx, "get_reply", userID, getReplyQuery, map[string]any{"id": replyID}, &out); err != nil {
		return nil, err
	}
	if out.GetReply == nil {
		return nil, notFound("get_reply", "reply "+replyID)
	}
	if out.GetReply.ID == "" {
		out.GetReply.ID = replyID
	}
	return out.GetReply, nil
}

func (c *GraphQLClient) VoteReply(ctx context.Context, userID int64, in FeedbackInput) (int, error) {
	var out struct {
		Action struct {
			FeedbackCount int `json:"feedbackCount"`
		} `json:"action"`
	}

	vars := map[string]any{
		"vote":      string(in.Vote),
		"articleId": in.ArticleID,
		"replyId":   in.ReplyID,
	}
	if in.Comment != "" {
		vars["comment"] = in.Comment
	}

	if err := c.mutate(ctx, "vote_reply", userID, voteMutation, vars, &out); err != nil {
		return 0, err
	}
	return out.Action.FeedbackCount, nil
}

func (c *GraphQLClient) CreateArticle(ctx context.Context, userID int64, text, reason string) (string, error) {
	var out struct {
		CreateArticle struct {
			ID string `json:"id"`
		} `json:"CreateArticle"`
	}

	vars := map[string]any{"text": text, "reason": reason}
	if err := c.mutate(ctx, "create_article", userID, createArticleMutation, vars, &out); err != nil {
		return "", err
	}
	return out.CreateArticle.ID, nil
}

func (c *GraphQLClient) CreateReplyRequest(ctx context.Context, userID int64, articleID, reason string) (int, error) {
	var out struct {
		CreateReplyRequest struct {
			ReplyRequestCount int `json:"replyRequestCount"`
		} `json:"CreateReplyRequest"`
	}

	vars := map[string]any{"id": articleID}
	if reason != "" {
		vars["reason"] = reason
	}

	if err := c.mutate(ctx, "create_reply_request", userID, createReplyRequestMutation, vars, &out); err != nil {
		return 0, err
	}
	return out.CreateReplyRequest.ReplyRequestCount, nil
}

// Ping checks that the endpoint answers GraphQL requests.
func (c *GraphQLClient) Ping(ctx context.Context) error {
	var out struct{}
	return c.breaker.Call(func() error {
		return c.do(ctx, "ping", 0, pingQuery, nil, &out)
	})
}

// query runs a read through the circuit breaker and retries transient failures.
func (c *GraphQLClient) query(ctx context.Context, op string, userID int64, query string, vars map[string]any, out any) error {
	return c.observe(op, func() error {
		return apperrors.WithRetry(ctx, func() error {
			return c.guarded(ctx, op, userID, query, vars, out)
		})
	})
}

// mutate runs a write through the circuit breaker exactly once.
func (c *GraphQLClient) mutate(ctx context.Context, op string, userID int64, query string, vars map[string]any, out any) error {
	return c.observe(op, func() error {
		return c.guarded(ctx, op, userID, query, vars, out)
	})
}

func (c *GraphQLClient) guarded(ctx context.Context, op string, userID int64, query string, vars map[string]any, out any) error {
	err := c.breaker.Call(func() error {
		return c.do(ctx, op, userID, query, vars, out)
	})
	if stderrors.Is(err, apperrors.ErrCircuitOpen) || stderrors.Is(err, apperrors.ErrHalfOpenTooManyRequests) {
		return apperrors.NewExternalAPIError("backend."+op, err).WithRetryable(false)
	}
	return err
}

func (c *GraphQLClient) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	switch {
	case stderrors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.RecordBackendCall(op, status, time.Since(start))

	if err != nil && status == "error" {
		c.log.Warn("backend call failed", slog.String("operation", op), slog.Any("error", err))
	}
	return err
}

func (c *GraphQLClient) do(ctx context.Context, op string, userID int64, query string, vars map[string]any, out any) error {
	api := "backend." + op

	client := graphql.NewClient(c.endpoint(userID), graphql.WithHTTPClient(c.http))
	client.Log = func(line string) {
		c.log.Debug(line, slog.String("operation", op))
	}

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("x-app-id", c.cfg.AppID)
	if c.cfg.AppSecret != "" {
		req.Header.Set("x-app-secret", c.cfg.AppSecret)
	}

	var data json.RawMessage
	if err := client.Run(ctx, req, &data); err != nil {
		return classify(ctx, api, err)
	}

	if len(data) == 0 || string(data) == "null" {
		return apperrors.NewExternalAPIError(api, stderrors.New("empty data")).WithRetryable(false)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewExternalAPIError(api, fmt.Errorf("decode data: %w", err)).WithRetryable(false)
	}
	return nil
}

// classify maps a failed run to an ExternalAPIError. Transport failures and
// 5xx answers are retryable; GraphQL errors and bad payloads are not.
func classify(ctx context.Context, api string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewExternalAPIError(api, err).WithRetryable(false)
	}

	var status *statusError
	if stderrors.As(err, &status) {
		return apperrors.NewExternalAPIError(api, status).WithRetryable(status.code >= http.StatusInternalServerError)
	}

	var transport *url.Error
	if stderrors.As(err, &transport) {
		return apperrors.NewExternalAPIError(api, err)
	}

	return apperrors.NewExternalAPIError(api, err).WithRetryable(false)
}

// statusError is an HTTP answer the endpoint gave instead of a GraphQL payload.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// statusTransport turns HTTP error statuses into errors so they reach
// classify with their code.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
}

func (c *GraphQLClient) endpoint(userID int64) string {
	if userID == 0 {
		return c.cfg.Endpoint
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return c.cfg.Endpoint
	}
	q := u.Query()
	q.Set("userId", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func notFound(op, what string) error {
	return apperrors.NewExternalAPIError("backend."+op, fmt.Errorf("%w: %s", ErrNotFound, what)).WithRetryable(false)
}
