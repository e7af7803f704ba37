package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/reply"
)

// MentionChecker answers a message the bot was mentioned about.
type MentionChecker interface {
	Check(ctx context.Context, text string) ([]reply.Message, error)
}

// IsGroupMention reports whether the update is a group message that mentions
// @username.
func IsGroupMention(c telebot.Context, username string) bool {
	if username == "" || c.Callback() != nil {
		return false
	}

	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return false
	}
	if msg.Chat.Type != telebot.ChatGroup && msg.Chat.Type != telebot.ChatSuperGroup {
		return false
	}
	return indexFold(msg.Text, "@"+username) >= 0
}

// MentionTarget is the text to check: the message being replied to, or the
// mentioning message itself without the mention.
func MentionTarget(msg *telebot.Message, username string) string {
	if msg == nil {
		return ""
	}
	if quoted := msg.ReplyTo; quoted != nil {
		if quoted.Text != "" {
			return quoted.Text
		}
		if quoted.Caption != "" {
			return quoted.Caption
		}
	}

	text := msg.Text
	if i := indexFold(text, "@"+username); i >= 0 {
		text = text[:i] + text[i+len(username)+1:]
	}
	return strings.TrimSpace(text)
}

// indexFold finds an ASCII needle in s ignoring case.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// NewMentionHandler posts a one-shot fact-check summary into the group.
func NewMentionHandler(checker MentionChecker, username string, deliverer delivery.Deliverer, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		target := MentionTarget(c.Message(), username)
		if target == "" {
			return nil
		}

		ctx := RequestContext(c)
		replies, err := checker.Check(ctx, target)
		if err != nil {
			log.ErrorContext(ctx, "mention check failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			return nil
		}
		if len(replies) == 0 {
			return nil
		}

		return deliverer.Deliver(ctx, ChatID(c), replies)
	}
}
