package keyboard

import (
	"fmt"
	"net/url"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/reply"
)

// ShareURL is Telegram's endpoint for forwarding a link to another chat.
const ShareURL = "https://t.me/share/url"

// Outgoing is one Telegram message ready to send.
type Outgoing struct {
	Text   string
	Markup *telebot.ReplyMarkup
}

// Options returns the send options for the message.
func (o Outgoing) Options() []any {
	opts := []any{telebot.NoPreview}
	if o.Markup != nil {
		opts = append(opts, o.Markup)
	}
	return opts
}

// Render converts dialogue replies into Telegram messages. Order is preserved
// and every reply becomes exactly one message.
func Render(messages []reply.Message) ([]Outgoing, error) {
	out := make([]Outgoing, 0, len(messages))
	for i, msg := range messages {
		rendered, err := renderOne(msg)
		if err != nil {
			return nil, fmt.Errorf("render message %d: %w", i, err)
		}
		out = append(out, rendered)
	}
	return out, nil
}

func renderOne(msg reply.Message) (Outgoing, error) {
	switch msg.Type {
	case reply.TypeText, "":
		return Outgoing{Text: msg.Text}, nil
	case reply.TypeButtons, reply.TypeGeneric:
		return withButtons(msg.Text, msg.Buttons)
	case reply.TypeCarousel:
		return carousel(msg.Cards)
	default:
		return Outgoing{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

func withButtons(text string, buttons []reply.Button) (Outgoing, error) {
	kb := NewInlineKeyboard()
	for _, btn := range buttons {
		inline, err := inlineButton(btn.Title, btn)
		if err != nil {
			return Outgoing{}, err
		}
		kb.AddRow(inline)
	}

	return build(text, kb)
}

// carousel lists the cards as numbered paragraphs with one button per card.
func carousel(cards []reply.Card) (Outgoing, error) {
	var sb strings.Builder
	kb := NewInlineKeyboard()

	for i, card := range cards {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, card.Title)
		if card.Subtitle != "" {
			sb.WriteString("\n")
			sb.WriteString(card.Subtitle)
		}

		if len(card.Buttons) == 0 {
			continue
		}
		inline, err := inlineButton(fmt.Sprintf("%d. %s", i+1, card.Buttons[0].Title), card.Buttons[0])
		if err != nil {
			return Outgoing{}, err
		}
		kb.AddRow(inline)
	}

	return build(sb.String(), kb)
}

func inlineButton(title string, btn reply.Button) (InlineButton, error) {
	switch btn.Kind {
	case reply.ButtonPostback:
		return InlineButton{Text: title, Unique: UniquePostback, Data: btn.Payload}, nil
	case reply.ButtonURL:
		return InlineButton{Text: title, URL: btn.URL}, nil
	case reply.ButtonShare:
		return InlineButton{Text: title, URL: shareLink(btn)}, nil
	default:
		return InlineButton{}, fmt.Errorf("unsupported button kind %q", btn.Kind)
	}
}

func shareLink(btn reply.Button) string {
	q := url.Values{}
	q.Set("url", btn.URL)
	if btn.Share != nil {
		text := btn.Share.Title
		if btn.Share.Subtitle != "" {
			text += "\n" + btn.Share.Subtitle
		}
		q.Set("text", text)
	}
	return ShareURL + "?" + q.Encode()
}

func build(text string, kb *InlineKeyboardBuilder) (Outgoing, error) {
	if kb.Empty() {
		return Outgoing{Text: text}, nil
	}

	markup, err := kb.Build()
	if err != nil {
		return Outgoing{}, err
	}
	return Outgoing{Text: text, Markup: markup}, nil
}
