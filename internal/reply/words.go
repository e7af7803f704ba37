package reply

import (
	"strings"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/i18n"
)

const ellipsisMark = "⋯⋯"

// Ellipsis returns text unchanged when it is shorter than limit runes, and
// otherwise cuts it so that the result including the mark is limit runes long.
func Ellipsis(text string, limit int) string {
	runes := []rune(text)
	if len(runes) < limit {
		return text
	}

	keep := limit - len([]rune(ellipsisMark))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + ellipsisMark
}

// Summary is the short quote of a user's message used in search replies.
func Summary(text string) string {
	runes := []rune(text)
	if len(runes) <= 10 {
		return text
	}
	return string(runes[:10]) + ellipsisMark
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// ArticleURL is the public page of an article.
func ArticleURL(siteURL, articleID string) string {
	return strings.TrimRight(siteURL, "/") + "/article/" + articleID
}

// TypeWords describes a reply type.
func TypeWords(tr i18n.Translator, t domain.ReplyType) string {
	switch t {
	case domain.ReplyTypeRumor, domain.ReplyTypeNotRumor, domain.ReplyTypeOpinionated, domain.ReplyTypeNotArticle:
		return tr.T("words.type." + string(t))
	}
	return tr.T("words.type.unknown")
}

// FeedbackWords describes how many users found a reply helpful or not.
func FeedbackWords(tr i18n.Translator, positive, negative int) string {
	if positive+negative == 0 {
		return tr.T("words.feedback.none")
	}

	var lines []string
	if positive > 0 {
		lines = append(lines, tr.Render("words.feedback.positive", map[string]any{"Count": positive}))
	}
	if negative > 0 {
		lines = append(lines, tr.Render("words.feedback.negative", map[string]any{"Count": negative}))
	}
	return "[" + strings.Join(lines, "\n") + "]"
}

// ReferenceWords presents the sources of a reply, or a warning when it has none.
func ReferenceWords(tr i18n.Translator, r domain.Reply) string {
	prompt := tr.T("words.reference.source")
	if r.Type == domain.ReplyTypeOpinionated {
		prompt = tr.T("words.reference.opinions")
	}

	if strings.TrimSpace(r.Reference) == "" {
		return tr.Render("words.reference.missing", map[string]any{"Prompt": prompt})
	}
	return tr.Render("words.reference.line", map[string]any{"Prompt": prompt, "Reference": r.Reference})
}
