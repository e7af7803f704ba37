// Package testutil holds fakes shared by the bot tests.
package testutil

import (
	"io"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Sent is one message passed to Context.Send.
type Sent struct {
	What any
	Opts []any
}

// Context is a telebot.Context backed by a fixed update. Methods the bot
// does not use panic through the nil embedded interface.
type Context struct {
	telebot.Context

	Upd telebot.Update

	mu        sync.Mutex
	store     map[string]any
	sent      []Sent
	responded int
}

// TextUpdate builds a private chat message from userID.
func TextUpdate(updateID int, userID int64, text string) *Context {
	return &Context{Upd: telebot.Update{
		ID:      updateID,
		Message: message(userID, text),
	}}
}

// GroupUpdate builds a message from userID in group chatID. A non-empty
// quoted text makes it a reply to another member's message.
func GroupUpdate(updateID int, userID, chatID int64, text, quoted string) *Context {
	msg := message(userID, text)
	msg.Chat = &telebot.Chat{ID: chatID, Type: telebot.ChatGroup}
	if quoted != "" {
		msg.ReplyTo = &telebot.Message{
			ID:     2,
			Sender: &telebot.User{ID: userID + 1, FirstName: "Member"},
			Chat:   msg.Chat,
			Text:   quoted,
		}
	}
	return &Context{Upd: telebot.Update{ID: updateID, Message: msg}}
}

// CallbackUpdate builds a button press from userID.
func CallbackUpdate(updateID int, userID int64, data string) *Context {
	user := &telebot.User{ID: userID, FirstName: "Tester", LanguageCode: "en"}
	return &Context{Upd: telebot.Update{
		ID: updateID,
		Callback: &telebot.Callback{
			ID:      "cb-1",
			Sender:  user,
			Data:    data,
			Message: message(userID, ""),
		},
	}}
}

// PhotoUpdate builds a photo message from userID.
func PhotoUpdate(updateID int, userID int64) *Context {
	msg := message(userID, "")
	msg.Photo = &telebot.Photo{}
	return &Context{Upd: telebot.Update{ID: updateID, Message: msg}}
}

func message(userID int64, text string) *telebot.Message {
	return &telebot.Message{
		ID:     1,
		Sender: &telebot.User{ID: userID, FirstName: "Tester", LanguageCode: "en"},
		Chat:   &telebot.Chat{ID: userID, Type: telebot.ChatPrivate},
		Text:   text,
	}
}

func (c *Context) Update() telebot.Update { return c.Upd }

func (c *Context) Message() *telebot.Message {
	if c.Upd.Callback != nil {
		return c.Upd.Callback.Message
	}
	return c.Upd.Message
}

func (c *Context) Callback() *telebot.Callback { return c.Upd.Callback }

func (c *Context) Sender() *telebot.User {
	if c.Upd.Callback != nil {
		return c.Upd.Callback.Sender
	}
	if c.Upd.Message != nil {
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *telebot.Chat {
	if msg := c.Message(); msg != nil {
		return msg.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if msg := c.Message(); msg != nil {
		return msg.Text
	}
	return ""
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = val
}

func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Respond(...*telebot.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responded++
	return nil
}

// SentMessages returns what was passed to Send.
func (c *Context) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Responded counts callback acknowledgements.
func (c *Context) Responded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}
