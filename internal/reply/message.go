// Package reply orders fact-check replies and composes the platform-neutral
// messages the dialogue sends back to users.
package reply

// MessageType tells adapters how to present a Message.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeButtons  MessageType = "buttons"
	TypeCarousel MessageType = "carousel"
	TypeGeneric  MessageType = "generic"
)

// ButtonKind is the action behind a button.
type ButtonKind string

const (
	// ButtonPostback sends Payload back to the dialogue as a postback event.
	ButtonPostback ButtonKind = "postback"
	// ButtonURL opens URL.
	ButtonURL ButtonKind = "url"
	// ButtonShare lets the user forward Share to other chats.
	ButtonShare ButtonKind = "share"
)

// Button is one user action attached to a message or card.
type Button struct {
	Kind    ButtonKind `json:"kind"`
	Title   string     `json:"title"`
	Payload string     `json:"payload,omitempty"`
	URL     string     `json:"url,omitempty"`
	Share   *Card      `json:"share,omitempty"`
}

// Card is one element of a carousel, or shared content.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Message is a single outbound reply.
//
// Text messages carry Text only; buttons and generic messages carry Text and
// Buttons; carousels carry Cards.
type Message struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text,omitempty"`
	Buttons []Button    `json:"buttons,omitempty"`
	Cards   []Card      `json:"cards,omitempty"`
}

// Text builds a plain text message.
func Text(text string) Message {
	return Message{Type: TypeText, Text: text}
}

// Buttons builds a prompt with buttons.
func Buttons(text string, buttons ...Button) Message {
	return Message{Type: TypeButtons, Text: text, Buttons: buttons}
}

// Carousel builds a list of selectable cards.
func Carousel(cards ...Card) Message {
	return Message{Type: TypeCarousel, Cards: cards}
}

// Postback builds a button that answers with payload.
func Postback(title, payload string) Button {
	return Button{Kind: ButtonPostback, Title: title, Payload: payload}
}

// Link builds a button that opens url.
func Link(title, url string) Button {
	return Button{Kind: ButtonURL, Title: title, URL: url}
}
