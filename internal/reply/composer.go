package reply

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/i18n"
	"github.com/Proton-105/rumor-bot/internal/matcher"
)

const (
	DefaultSiteURL      = "https://cofacts.g0v.tw"
	DefaultManualURL    = "http://bit.ly/cofacts-fb-users"
	DefaultContactEmail = "cofacts@googlegroups.com"

	cardTitleLimit = 80
	replyTextLimit = 2000
	shareQuoteSize = 15

	// NoneOfThese is the payload of the card saying no candidate matches.
	NoneOfThese = "0"
)

// Config holds the links and limits the composer renders with.
type Config struct {
	SiteURL      string
	ManualURL    string
	ContactEmail string
	VisibleLimit int
}

// Composer renders dialogue replies through a translator. Every method is a
// pure function of its arguments.
type Composer struct {
	tr  i18n.Translator
	cfg Config
}

// NewComposer builds a Composer. Empty config fields use the defaults.
func NewComposer(tr i18n.Translator, cfg Config) *Composer {
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.ManualURL == "" {
		cfg.ManualURL = DefaultManualURL
	}
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = DefaultContactEmail
	}
	if cfg.VisibleLimit <= 0 {
		cfg.VisibleLimit = DefaultVisibleLimit
	}
	return &Composer{tr: tr, cfg: cfg}
}

// VisibleLimit is the number of replies shown in one carousel.
func (c *Composer) VisibleLimit() int {
	return c.cfg.VisibleLimit
}

func (c *Composer) text(key string, params any) Message {
	return Text(c.tr.Render(key, params))
}

func (c *Composer) articleURL(articleID string) string {
	return ArticleURL(c.cfg.SiteURL, articleID)
}

func (c *Composer) NotText() Message         { return c.text("common.not_text", nil) }
func (c *Composer) DidntUnderstand() Message { return c.text("common.didnt_understand", nil) }
func (c *Composer) Apology() Message         { return c.text("common.apology", nil) }
func (c *Composer) RateLimited() Message     { return c.text("common.rate_limited", nil) }

func (c *Composer) Contact() Message {
	return c.text("common.contact", map[string]any{"Email": c.cfg.ContactEmail})
}

func (c *Composer) Nonsense() Message {
	return c.text("common.nonsense", map[string]any{"ManualURL": c.cfg.ManualURL})
}

func (c *Composer) Welcome(name string) Message {
	return c.text("common.welcome", map[string]any{"Name": name})
}

func (c *Composer) Help(contactPhrase string) Message {
	return c.text("common.help", map[string]any{"ContactPhrase": contactPhrase})
}

// ArticleCandidates asks the user to pick the article matching searched.
// A "none of these" card is appended unless a near-duplicate was found.
func (c *Composer) ArticleCandidates(searched string, result matcher.Result) []Message {
	choose := c.tr.T("search.choose")

	cards := make([]Card, 0, len(result.Candidates)+1)
	for i, candidate := range result.Candidates {
		cards = append(cards, Card{
			Title: truncate(candidate.Text, cardTitleLimit),
			Subtitle: c.tr.Render("search.similarity", map[string]any{
				"Percent": fmt.Sprintf("%.2f%%", candidate.Similarity*100),
			}),
			Buttons: []Button{Postback(choose, strconv.Itoa(i+1))},
		})
	}
	if !result.HasNearDuplicate {
		cards = append(cards, Card{
			Title:   c.tr.T("search.none_match"),
			Buttons: []Button{Postback(choose, NoneOfThese)},
		})
	}

	return []Message{
		c.text("search.checking", map[string]any{"Summary": Summary(searched)}),
		c.text("search.which_matches", nil),
		Carousel(cards...),
	}
}

// NotFound tells the user nothing matched and offers to submit the message.
func (c *Composer) NotFound(searched string) []Message {
	return append(
		[]Message{c.text("search.not_found", map[string]any{"Summary": Summary(searched)})},
		c.AskArticleSubmission()...,
	)
}

// AskArticleSubmission asks for the reason a message should be fact-checked.
func (c *Composer) AskArticleSubmission() []Message {
	return []Message{
		c.text("submission.ask", nil),
		c.text("submission.ask_reason", nil),
		Buttons(c.tr.T("submission.discard_hint"), Postback(c.tr.T("submission.discard_button"), "n")),
	}
}

func (c *Composer) InvalidArticleChoice(count int) Message {
	return c.text("article.invalid_choice", map[string]any{"Count": count})
}

func (c *Composer) InvalidReplyChoice(count int) Message {
	return c.text("reply.invalid_choice", map[string]any{"Count": count})
}

// ArticleSummary lists how the replies of an article are classified.
func (c *Composer) ArticleSummary(tally Tally) Message {
	return c.text("article.summary", map[string]any{
		"Rumor":            tally[domain.ReplyTypeRumor],
		"RumorWords":       TypeWords(c.tr, domain.ReplyTypeRumor),
		"NotRumor":         tally[domain.ReplyTypeNotRumor],
		"NotRumorWords":    TypeWords(c.tr, domain.ReplyTypeNotRumor),
		"Opinionated":      tally[domain.ReplyTypeOpinionated],
		"OpinionatedWords": TypeWords(c.tr, domain.ReplyTypeOpinionated),
		"NotArticle":       tally[domain.ReplyTypeNotArticle],
		"NotArticleWords":  TypeWords(c.tr, domain.ReplyTypeNotArticle),
	})
}

// MentionSummary answers a mention in a group in one go: how close the best
// match is, how its replies are classified and where to read every candidate.
func (c *Composer) MentionSummary(result matcher.Result, tally Tally) []Message {
	if len(result.Candidates) == 0 {
		return []Message{c.MentionNotFound()}
	}

	links := make([]string, len(result.Candidates))
	for i, candidate := range result.Candidates {
		links[i] = c.articleURL(candidate.ArticleID)
	}

	return []Message{
		c.text("mention.found", map[string]any{
			"Percent": fmt.Sprintf("%d%%", int(math.Round(result.Candidates[0].Similarity*100))),
		}),
		c.ArticleSummary(tally),
		c.text("mention.links", map[string]any{"Links": strings.Join(links, "\n")}),
	}
}

// MentionNotFound tells a group that the mentioned message is unknown.
func (c *Composer) MentionNotFound() Message { return c.text("mention.not_found", nil) }

// ReplyCarousel lets the user pick one of the visible replies. A pointer to
// the article page follows when some replies did not fit.
func (c *Composer) ReplyCarousel(articleID string, ranked Ranked) []Message {
	read := c.tr.T("article.read_reply")

	cards := make([]Card, len(ranked.Visible))
	for i, ar := range ranked.Visible {
		cards[i] = Card{
			Title:    truncate(ar.Reply.Text, cardTitleLimit),
			Subtitle: TypeWords(c.tr, ar.Reply.Type) + "\n" + FeedbackWords(c.tr, ar.PositiveFeedbackCount, ar.NegativeFeedbackCount),
			Buttons:  []Button{Postback(read, strconv.Itoa(i+1))},
		}
	}

	messages := []Message{Carousel(cards...)}
	if ranked.Truncated {
		messages = append(messages, c.text("article.more_replies", map[string]any{"URL": c.articleURL(articleID)}))
	}
	return messages
}

// AskReplyRequest asks why an unanswered article deserves a reply.
func (c *Composer) AskReplyRequest() []Message {
	return []Message{
		c.text("request.ask", nil),
		c.text("request.ask_reason", nil),
		Buttons(c.tr.T("request.skip_hint"), Postback(c.tr.T("request.skip_button"), "n")),
	}
}

// ReplyDetail shows one reply in full and asks whether it helped.
func (c *Composer) ReplyDetail(articleID string, r domain.Reply) []Message {
	return []Message{
		c.text("reply.marked", map[string]any{"Type": TypeWords(c.tr, r.Type)}),
		Text(Ellipsis(r.Text, replyTextLimit)),
		Text(Ellipsis(ReferenceWords(c.tr, r), replyTextLimit)),
		c.text("reply.provided_by", map[string]any{"URL": c.articleURL(articleID)}),
		c.HelpfulPrompt(),
	}
}

// HelpfulPrompt asks whether the shown reply helped.
func (c *Composer) HelpfulPrompt() Message {
	return Buttons(c.tr.T("reply.helpful"),
		Postback(c.tr.T("common.yes_button"), "y"),
		Postback(c.tr.T("common.no_button"), "n"),
	)
}

// FeedbackThanks acknowledges a vote. count includes the user's own vote.
func (c *Composer) FeedbackThanks(count int) Message {
	if count > 1 {
		return c.text("feedback.thanks_others", map[string]any{"Others": count - 1})
	}
	return c.text("feedback.thanks_first", nil)
}

// ShareReply invites the user to spread a helpful reply.
func (c *Composer) ShareReply(articleID, articleText string, replyType domain.ReplyType) Message {
	url := c.articleURL(articleID)

	shared := &Card{
		Title: c.tr.Render("feedback.share_title", map[string]any{
			"Summary": Ellipsis(articleText, shareQuoteSize),
			"Type":    TypeWords(c.tr, replyType),
		}),
		Subtitle: c.tr.Render("feedback.share_subtitle", map[string]any{"URL": url}),
		Buttons:  []Button{Link(c.tr.T("feedback.see_others"), url)},
	}

	return Message{
		Type: TypeGeneric,
		Text: c.tr.T("feedback.share_prompt"),
		Buttons: []Button{
			{Kind: ButtonShare, Title: c.tr.T("feedback.share_button"), URL: url, Share: shared},
			Link(c.tr.T("feedback.submit_reply"), url),
		},
	}
}

// AskNotUsefulReason asks why a reply did not help.
func (c *Composer) AskNotUsefulReason() Message {
	return Buttons(c.tr.T("feedback.ask_why"), Postback(c.tr.T("feedback.skip_button"), "n"))
}

// BetterReply invites the user to write a reply of their own.
func (c *Composer) BetterReply(articleID string) Message {
	return c.text("feedback.better_reply", map[string]any{"URL": c.articleURL(articleID)})
}

// ConfirmFeedback echoes a not-useful comment and asks to submit it.
func (c *Composer) ConfirmFeedback(comment string) []Message {
	return []Message{
		c.text("common.reason_echo", map[string]any{"Reason": comment}),
		c.FeedbackConfirmPrompt(),
	}
}

func (c *Composer) FeedbackConfirmPrompt() Message {
	return Buttons(c.tr.T("feedback.confirm"),
		Postback(c.tr.T("common.submit_button"), "y"),
		Postback(c.tr.T("common.revise_button"), "r"),
		Postback(c.tr.T("feedback.never_mind_button"), "n"),
	)
}

func (c *Composer) ReviseFeedback() Message {
	return Buttons(c.tr.T("feedback.revise"), Postback(c.tr.T("feedback.revise_skip_button"), "n"))
}

// ConfirmArticleSubmission echoes the reason and asks to submit the article.
func (c *Composer) ConfirmArticleSubmission(reason string) []Message {
	return []Message{
		c.text("common.reason_echo", map[string]any{"Reason": reason}),
		c.text("submission.quality_warning", nil),
		c.SubmissionConfirmPrompt(),
	}
}

func (c *Composer) SubmissionConfirmPrompt() Message {
	return Buttons(c.tr.T("common.confirm"),
		Postback(c.tr.T("common.submit_button"), "y"),
		Postback(c.tr.T("common.revise_button"), "r"),
		Postback(c.tr.T("submission.discard_button"), "n"),
	)
}

func (c *Composer) ArticleCreated(articleID string) []Message {
	return []Message{
		c.text("submission.created", map[string]any{"URL": c.articleURL(articleID)}),
		c.text("submission.thanks", nil),
	}
}

func (c *Composer) SubmissionDiscarded() Message { return c.text("submission.discarded", nil) }
func (c *Composer) ReviseSubmission() Message    { return c.text("submission.revise", nil) }

// ConfirmReplyRequest echoes the reason and asks to send the reply request.
func (c *Composer) ConfirmReplyRequest(reason string) []Message {
	return []Message{
		c.text("common.reason_echo", map[string]any{"Reason": reason}),
		c.text("submission.quality_warning", nil),
		c.ReplyRequestConfirmPrompt(),
	}
}

func (c *Composer) ReplyRequestConfirmPrompt() Message {
	return Buttons(c.tr.T("common.confirm"),
		Postback(c.tr.T("common.submit_button"), "y"),
		Postback(c.tr.T("common.revise_button"), "r"),
		Postback(c.tr.T("request.skip_button"), "n"),
	)
}

// ReplyRequestRecorded reports how many users wait for a reply to the article.
func (c *Composer) ReplyRequestRecorded(articleID string, count int) Message {
	return c.text("request.recorded", map[string]any{"Count": count, "URL": c.articleURL(articleID)})
}

func (c *Composer) ReviseReplyRequest() Message { return c.text("request.revise", nil) }
