package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/matcher"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
)

const (
	testUser   int64 = 42
	prevIssued int64 = 1_000
	nowIssued  int64 = 2_000
)

func text(input string) state.Event {
	return state.Event{Input: input, Type: state.EventText}
}

func TestRunTurn_ChoosingArticleWithoutFoundArticlesIsContractViolation(t *testing.T) {
	be := newFakeBackend()
	d, c := newTestDispatcher(t, be, DefaultOptions())

	session := &state.Session{State: state.StateChoosingArticle, IssuedAt: prevIssued}
	out := d.RunTurn(context.Background(), testUser, session, text("1"), nowIssued)

	require.Error(t, out.Err)
	assert.ErrorIs(t, out.Err, ErrContractViolation)
	assert.ErrorIs(t, out.Err, state.ErrMissingData)
	assert.Equal(t, state.StateInit, out.Session.State)
	assert.Equal(t, state.Data{}, out.Session.Data)
	assert.Equal(t, nowIssued, out.Session.IssuedAt)
	assert.Equal(t, one(c.Apology()), out.Replies)
	assert.Empty(t, be.calls)
}

func TestRunTurn_UnmatchedTextAsksForSubmission(t *testing.T) {
	be := newFakeBackend()
	d, c := newTestDispatcher(t, be, DefaultOptions())

	input := "the water supply will be cut tomorrow"
	out := d.RunTurn(context.Background(), testUser, nil, text(input), nowIssued)

	require.NoError(t, out.Err)
	assert.Equal(t, state.StateAskingArticleSubmissionReason, out.Session.State)
	assert.Equal(t, input, out.Session.Data.SearchedText)
	assert.Equal(t, nowIssued, out.Session.IssuedAt)
	if diff := cmp.Diff(c.NotFound(input), out.Replies); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestRunTurn_NonsenseStaysAtInit(t *testing.T) {
	be := newFakeBackend()
	d, c := newTestDispatcher(t, be, DefaultOptions())

	session := &state.Session{State: state.StateInit, IssuedAt: prevIssued}
	out := d.RunTurn(context.Background(), testUser, session, text("https://example.com/x ?!"), nowIssued)

	require.NoError(t, out.Err)
	assert.Equal(t, state.StateInit, out.Session.State)
	assert.Equal(t, prevIssued, out.Session.IssuedAt)
	assert.Equal(t, one(c.Nonsense()), out.Replies)
}

func TestRunTurn_ListsCandidates(t *testing.T) {
	be := newFakeBackend()
	be.searchResults = []domain.Article{
		{ID: "a1", Text: "drinking hot water cures flu"},
		{ID: "a2", Text: "the water supply will be cut tomorrow"},
	}
	d, c := newTestDispatcher(t, be, DefaultOptions())

	input := "water will be cut tomorrow"
	out := d.RunTurn(context.Background(), testUser, nil, text(input), nowIssued)

	require.NoError(t, out.Err)
	assert.Equal(t, state.StateChoosingArticle, out.Session.State)
	assert.Equal(t, []string{"a2", "a1"}, out.Session.Data.FoundArticleIDs)

	want := c.ArticleCandidates(input, matcher.Rank(input, be.searchResults, matcher.DefaultThreshold))
	if diff := cmp.Diff(want, out.Replies); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestRunTurn_AutoAdvance(t *testing.T) {
	input := "the water supply will be cut tomorrow"

	setup := func() *fakeBackend {
		be := newFakeBackend()
		be.searchResults = []domain.Article{{ID: "a1", Text: input}}
		be.articles["a1"] = domain.Article{ID: "a1", Text: input, ArticleReplies: []domain.ArticleReply{
			be.addReply(domain.Reply{ID: "r1", Type: domain.ReplyTypeRumor, Text: "false"}),
			be.addReply(domain.Reply{ID: "r2", Type: domain.ReplyTypeNotRumor, Text: "true"}),
		}}
		return be
	}

	t.Run("single near duplicate opens the article", func(t *testing.T) {
		be := setup()
		d, c := newTestDispatcher(t, be, DefaultOptions())

		out := d.RunTurn(context.Background(), testUser, nil, text(input), nowIssued)

		require.NoError(t, out.Err)
		assert.Equal(t, 1, out.AutoAdvanced)
		assert.Equal(t, state.StateChoosingReply, out.Session.State)
		assert.Equal(t, "a1", out.Session.Data.SelectedArticleID)
		assert.Equal(t, []string{"r1", "r2"}, out.Session.Data.FoundReplyIDs)

		ranked := reply.RankAndTally(be.articles["a1"].ArticleReplies, c.VisibleLimit())
		want := concat(one(c.ArticleSummary(ranked.Tally)), c.ReplyCarousel("a1", ranked))
		if diff := cmp.Diff(want, out.Replies); diff != "" {
			t.Errorf("replies mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"search", "article:a1"}, be.calls)
	})

	t.Run("matches a manual pick of the only candidate", func(t *testing.T) {
		autoBackend := setup()
		auto, _ := newTestDispatcher(t, autoBackend, DefaultOptions())
		automatic := auto.RunTurn(context.Background(), testUser, &state.Session{State: state.StateInit}, text(input), nowIssued)
		require.NoError(t, automatic.Err)

		manualBackend := setup()
		picker, _ := newTestDispatcher(t, manualBackend, DefaultOptions())
		choosing := &state.Session{
			State:    state.StateChoosingArticle,
			Data:     state.Data{SearchedText: input, FoundArticleIDs: []string{"a1"}},
			IssuedAt: prevIssued,
		}
		manual := picker.RunTurn(context.Background(), testUser, choosing, text("1"), nowIssued)
		require.NoError(t, manual.Err)

		if diff := cmp.Diff(manual.Session, automatic.Session); diff != "" {
			t.Errorf("session mismatch (-manual +auto):\n%s", diff)
		}
		if diff := cmp.Diff(manual.Replies, automatic.Replies); diff != "" {
			t.Errorf("replies mismatch (-manual +auto):\n%s", diff)
		}
		assert.Equal(t, 1, automatic.AutoAdvanced)
		assert.Zero(t, manual.AutoAdvanced)
	})

	t.Run("bound reached returns the candidates", func(t *testing.T) {
		be := setup()
		d, c := newTestDispatcher(t, be, Options{MaxAutoAdvance: 0})

		out := d.RunTurn(context.Background(), testUser, nil, text(input), nowIssued)

		require.NoError(t, out.Err)
		assert.Zero(t, out.AutoAdvanced)
		assert.Equal(t, state.StateChoosingArticle, out.Session.State)

		want := c.ArticleCandidates(input, matcher.Rank(input, be.searchResults, matcher.DefaultThreshold))
		if diff := cmp.Diff(want, out.Replies); diff != "" {
			t.Errorf("replies mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRunTurn_ReordersNotArticleRepliesLast(t *testing.T) {
	be := newFakeBackend()
	be.articles["a1"] = domain.Article{ID: "a1", Text: "text", ArticleReplies: []domain.ArticleReply{
		be.addReply(domain.Reply{ID: "r1", Type: domain.ReplyTypeNotArticle}),
		be.addReply(domain.Reply{ID: "r2", Type: domain.ReplyTypeRumor}),
		be.addReply(domain.Reply{ID: "r3", Type: domain.ReplyTypeNotRumor}),
	}}
	d, _ := newTestDispatcher(t, be, DefaultOptions())

	session := &state.Session{
		State: state.StateChoosingArticle,
		Data:  state.Data{SearchedText: "text", FoundArticleIDs: []string{"a1"}},
	}
	out := d.RunTurn(context.Background(), testUser, session, text("1"), nowIssued)

	require.NoError(t, out.Err)
	assert.Equal(t, state.StateChoosingReply, out.Session.State)
	assert.Equal(t, []string{"r2", "r3", "r1"}, out.Session.Data.FoundReplyIDs)
}

func TestRunTurn_ReplayIsIdempotent(t *testing.T) {
	be := newFakeBackend()
	be.articles["a1"] = domain.Article{ID: "a1", Text: "text", ArticleReplies: []domain.ArticleReply{
		be.addReply(domain.Reply{ID: "r1", Type: domain.ReplyTypeRumor}),
		be.addReply(domain.Reply{ID: "r2", Type: domain.ReplyTypeOpinionated}),
	}}
	d, _ := newTestDispatcher(t, be, DefaultOptions())

	session := &state.Session{
		State:    state.StateChoosingArticle,
		Data:     state.Data{SearchedText: "text", FoundArticleIDs: []string{"a1", "a2"}},
		IssuedAt: prevIssued,
	}
	first := d.RunTurn(context.Background(), testUser, session, text("1"), nowIssued)
	second := d.RunTurn(context.Background(), testUser, session, text("1"), nowIssued)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replayed turn differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, []string{"a1", "a2"}, session.Data.FoundArticleIDs)
	assert.Equal(t, state.StateChoosingArticle, session.State)
}

func TestRunTurn_Transitions(t *testing.T) {
	articleReplies := func(be *fakeBackend, types ...domain.ReplyType) []domain.ArticleReply {
		out := make([]domain.ArticleReply, len(types))
		for i, rt := range types {
			out[i] = be.addReply(domain.Reply{ID: "r" + string(rune('1'+i)), Type: rt, Text: "reply text", Reference: "https://ref.test"})
		}
		return out
	}

	feedbackData := state.Data{
		SearchedText:        "searched text",
		FoundArticleIDs:     []string{"a1"},
		SelectedArticleID:   "a1",
		SelectedArticleText: "article text",
		FoundReplyIDs:       []string{"r1"},
		SelectedReplyID:     "r1",
	}

	tests := []struct {
		name      string
		setup     func(be *fakeBackend)
		session   state.Session
		input     string
		wantState state.State
		wantData  func(d state.Data) state.Data
		want      func(c *reply.Composer, be *fakeBackend) []reply.Message
		check     func(t *testing.T, be *fakeBackend)
	}{
		{
			name:      "article choice out of range re-prompts",
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "x", FoundArticleIDs: []string{"a1", "a2"}}},
			input:     "3",
			wantState: state.StateChoosingArticle,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.InvalidArticleChoice(2))
			},
		},
		{
			name:      "article choice that is not a number re-prompts",
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "x", FoundArticleIDs: []string{"a1", "a2"}}},
			input:     "first",
			wantState: state.StateChoosingArticle,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.InvalidArticleChoice(2))
			},
		},
		{
			name:      "none of these asks for a submission reason",
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "some rumor text", FoundArticleIDs: []string{"a1"}}},
			input:     "0",
			wantState: state.StateAskingArticleSubmissionReason,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return c.AskArticleSubmission()
			},
		},
		{
			name:      "none of these with nonsense text gives up",
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "??", FoundArticleIDs: []string{"a1"}}},
			input:     "0",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.Nonsense())
			},
		},
		{
			name: "article without replies asks for a reply request",
			setup: func(be *fakeBackend) {
				be.articles["a1"] = domain.Article{ID: "a1", Text: "article text"}
			},
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "x", FoundArticleIDs: []string{"a1"}}},
			input:     "1",
			wantState: state.StateAskingReplyRequestReason,
			wantData: func(d state.Data) state.Data {
				d.SelectedArticleID = "a1"
				d.SelectedArticleText = "article text"
				return d
			},
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return c.AskReplyRequest()
			},
		},
		{
			name: "article with a single reply shows it",
			setup: func(be *fakeBackend) {
				be.articles["a1"] = domain.Article{ID: "a1", Text: "article text", ArticleReplies: articleReplies(be, domain.ReplyTypeRumor)}
			},
			session:   state.Session{State: state.StateChoosingArticle, Data: state.Data{SearchedText: "x", FoundArticleIDs: []string{"a1"}}},
			input:     "1",
			wantState: state.StateAskingReplyFeedback,
			wantData: func(d state.Data) state.Data {
				d.SelectedArticleID = "a1"
				d.SelectedArticleText = "article text"
				d.FoundReplyIDs = []string{"r1"}
				d.SelectedReplyID = "r1"
				return d
			},
			want: func(c *reply.Composer, be *fakeBackend) []reply.Message {
				ranked := reply.RankAndTally(be.articles["a1"].ArticleReplies, c.VisibleLimit())
				return concat(one(c.ArticleSummary(ranked.Tally)), c.ReplyDetail("a1", be.replies["r1"]))
			},
		},
		{
			name: "reply choice shows the reply",
			setup: func(be *fakeBackend) {
				articleReplies(be, domain.ReplyTypeRumor, domain.ReplyTypeNotRumor)
			},
			session:   state.Session{State: state.StateChoosingReply, Data: state.Data{SelectedArticleID: "a1", FoundReplyIDs: []string{"r1", "r2"}}},
			input:     "2",
			wantState: state.StateAskingReplyFeedback,
			wantData: func(d state.Data) state.Data {
				d.SelectedReplyID = "r2"
				return d
			},
			want: func(c *reply.Composer, be *fakeBackend) []reply.Message {
				return c.ReplyDetail("a1", be.replies["r2"])
			},
		},
		{
			name:      "reply choice zero re-prompts",
			session:   state.Session{State: state.StateChoosingReply, Data: state.Data{SelectedArticleID: "a1", FoundReplyIDs: []string{"r1", "r2"}}},
			input:     "0",
			wantState: state.StateChoosingReply,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.InvalidReplyChoice(2))
			},
		},
		{
			name: "helpful reply with first feedback thanks and shares",
			setup: func(be *fakeBackend) {
				articleReplies(be, domain.ReplyTypeRumor)
				be.feedbackCount = 1
			},
			session:   state.Session{State: state.StateAskingReplyFeedback, Data: feedbackData},
			input:     "y",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return []reply.Message{
					c.FeedbackThanks(1),
					c.ShareReply("a1", "article text", domain.ReplyTypeRumor),
				}
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []backend.FeedbackInput{{ArticleID: "a1", ReplyID: "r1", Vote: domain.VoteUp}}, be.votes)
			},
		},
		{
			name:      "unhelpful reply asks why",
			session:   state.Session{State: state.StateAskingReplyFeedback, Data: feedbackData},
			input:     "N",
			wantState: state.StateAskingNotUsefulFeedback,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.AskNotUsefulReason())
			},
		},
		{
			name:      "unknown feedback token re-prompts",
			session:   state.Session{State: state.StateAskingReplyFeedback, Data: feedbackData},
			input:     "maybe",
			wantState: state.StateAskingReplyFeedback,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.HelpfulPrompt())
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Empty(t, be.calls)
			},
		},
		{
			name:      "skipping the reason downvotes without comment",
			session:   state.Session{State: state.StateAskingNotUsefulFeedback, Data: feedbackData},
			input:     "n",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return []reply.Message{c.FeedbackThanks(1), c.BetterReply("a1")}
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []backend.FeedbackInput{{ArticleID: "a1", ReplyID: "r1", Vote: domain.VoteDown, Comment: "none"}}, be.votes)
			},
		},
		{
			name:      "reason is stashed for confirmation",
			session:   state.Session{State: state.StateAskingNotUsefulFeedback, Data: feedbackData},
			input:     "it misses the source",
			wantState: state.StateAskingNotUsefulFeedbackSubmission,
			wantData: func(d state.Data) state.Data {
				d.Comment = "it misses the source"
				return d
			},
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return c.ConfirmFeedback("it misses the source")
			},
		},
		{
			name: "confirmed reason is sent with the downvote",
			setup: func(be *fakeBackend) {
				be.feedbackCount = 3
			},
			session: state.Session{State: state.StateAskingNotUsefulFeedbackSubmission, Data: func() state.Data {
				d := feedbackData.Clone()
				d.Comment = "it misses the source"
				return d
			}()},
			input:     "y",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return []reply.Message{c.FeedbackThanks(3), c.BetterReply("a1")}
			},
			check: func(t *testing.T, be *fakeBackend) {
				require.Len(t, be.votes, 1)
				assert.Equal(t, "it misses the source", be.votes[0].Comment)
			},
		},
		{
			name:      "revising the reason asks again",
			session:   state.Session{State: state.StateAskingNotUsefulFeedbackSubmission, Data: feedbackData},
			input:     "r",
			wantState: state.StateAskingNotUsefulFeedback,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.ReviseFeedback())
			},
		},
		{
			name:      "unknown submission token re-prompts",
			session:   state.Session{State: state.StateAskingNotUsefulFeedbackSubmission, Data: feedbackData},
			input:     "ok",
			wantState: state.StateAskingNotUsefulFeedbackSubmission,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.FeedbackConfirmPrompt())
			},
		},
		{
			name:      "submission reason declined discards",
			session:   state.Session{State: state.StateAskingArticleSubmissionReason, Data: state.Data{SearchedText: "rumor"}},
			input:     "n",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.SubmissionDiscarded())
			},
		},
		{
			name:      "submission reason is stashed for confirmation",
			session:   state.Session{State: state.StateAskingArticleSubmissionReason, Data: state.Data{SearchedText: "rumor"}},
			input:     "my family keeps sharing it",
			wantState: state.StateAskingArticleSubmission,
			wantData: func(d state.Data) state.Data {
				d.ReasonText = "my family keeps sharing it"
				return d
			},
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return c.ConfirmArticleSubmission("my family keeps sharing it")
			},
		},
		{
			name:      "confirmed submission creates the article",
			session:   state.Session{State: state.StateAskingArticleSubmission, Data: state.Data{SearchedText: "rumor", ReasonText: "because"}},
			input:     "y",
			wantState: state.StateInit,
			want: func(c *reply.Composer, be *fakeBackend) []reply.Message {
				return c.ArticleCreated(be.newArticleID)
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []createdArticle{{Text: "rumor", Reason: "because"}}, be.created)
			},
		},
		{
			name:      "revising the submission asks for the reason again",
			session:   state.Session{State: state.StateAskingArticleSubmission, Data: state.Data{SearchedText: "rumor", ReasonText: "because"}},
			input:     "r",
			wantState: state.StateAskingArticleSubmissionReason,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.ReviseSubmission())
			},
		},
		{
			name: "skipping the reply request reason still records the request",
			setup: func(be *fakeBackend) {
				be.requestCount = 4
			},
			session:   state.Session{State: state.StateAskingReplyRequestReason, Data: state.Data{SearchedText: "rumor", SelectedArticleID: "a1"}},
			input:     "n",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.ReplyRequestRecorded("a1", 4))
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []replyRequest{{ArticleID: "a1"}}, be.requests)
			},
		},
		{
			name:      "reply request reason is stashed for confirmation",
			session:   state.Session{State: state.StateAskingReplyRequestReason, Data: state.Data{SearchedText: "rumor", SelectedArticleID: "a1"}},
			input:     "it is everywhere",
			wantState: state.StateAskingReplyRequestSubmission,
			wantData: func(d state.Data) state.Data {
				d.ReasonText = "it is everywhere"
				return d
			},
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return c.ConfirmReplyRequest("it is everywhere")
			},
		},
		{
			name:      "confirmed reply request sends the reason",
			session:   state.Session{State: state.StateAskingReplyRequestSubmission, Data: state.Data{SearchedText: "rumor", SelectedArticleID: "a1", ReasonText: "it is everywhere"}},
			input:     "y",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.ReplyRequestRecorded("a1", 1))
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []replyRequest{{ArticleID: "a1", Reason: "it is everywhere"}}, be.requests)
			},
		},
		{
			name:      "declined reply request reason is dropped",
			session:   state.Session{State: state.StateAskingReplyRequestSubmission, Data: state.Data{SearchedText: "rumor", SelectedArticleID: "a1", ReasonText: "it is everywhere"}},
			input:     "n",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.ReplyRequestRecorded("a1", 1))
			},
			check: func(t *testing.T, be *fakeBackend) {
				assert.Equal(t, []replyRequest{{ArticleID: "a1"}}, be.requests)
			},
		},
		{
			name:      "unknown state falls back",
			session:   state.Session{State: "SOMETHING_ELSE", Data: state.Data{SearchedText: "rumor"}},
			input:     "hello",
			wantState: state.StateInit,
			want: func(c *reply.Composer, _ *fakeBackend) []reply.Message {
				return one(c.DidntUnderstand())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := newFakeBackend()
			if tt.setup != nil {
				tt.setup(be)
			}
			d, c := newTestDispatcher(t, be, DefaultOptions())

			session := tt.session
			session.IssuedAt = prevIssued
			out := d.RunTurn(context.Background(), testUser, &session, text(tt.input), nowIssued)

			require.NoError(t, out.Err)
			assert.Equal(t, tt.wantState, out.Session.State)

			if tt.wantData != nil {
				if diff := cmp.Diff(tt.wantData(tt.session.Data.Clone()), out.Session.Data); diff != "" {
					t.Errorf("data mismatch (-want +got):\n%s", diff)
				}
			}

			wantIssued := prevIssued
			if tt.wantState != tt.session.State {
				wantIssued = nowIssued
			}
			assert.Equal(t, wantIssued, out.Session.IssuedAt)

			if diff := cmp.Diff(tt.want(c, be), out.Replies); diff != "" {
				t.Errorf("replies mismatch (-want +got):\n%s", diff)
			}

			if tt.check != nil {
				tt.check(t, be)
			}
		})
	}
}

func TestRunTurn_BackendFailureApologizes(t *testing.T) {
	be := newFakeBackend()
	be.err = errors.New("connection refused")
	d, c := newTestDispatcher(t, be, DefaultOptions())

	session := &state.Session{
		State:    state.StateChoosingArticle,
		Data:     state.Data{SearchedText: "x", FoundArticleIDs: []string{"a1"}},
		IssuedAt: prevIssued,
	}
	out := d.RunTurn(context.Background(), testUser, session, text("1"), nowIssued)

	require.Error(t, out.Err)
	assert.NotErrorIs(t, out.Err, ErrContractViolation)
	assert.Equal(t, &state.Session{State: state.StateInit, IssuedAt: nowIssued}, out.Session)
	assert.Equal(t, one(c.Apology()), out.Replies)
	assert.Equal(t, []string{"a1"}, session.Data.FoundArticleIDs)
}

func TestRunTurn_EmptyStateStartsAtInit(t *testing.T) {
	be := newFakeBackend()
	d, _ := newTestDispatcher(t, be, DefaultOptions())

	out := d.RunTurn(context.Background(), testUser, &state.Session{}, text("a message nobody has seen before"), nowIssued)

	require.NoError(t, out.Err)
	assert.Equal(t, state.StateAskingArticleSubmissionReason, out.Session.State)
	assert.Equal(t, []string{"search"}, be.calls)
}
