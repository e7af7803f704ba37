package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rumor-bot/internal/dialogue"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
)

type scriptedService struct {
	events  []state.Event
	replies [][]reply.Message
	err     error
}

func (s *scriptedService) HandleEvent(_ context.Context, _ int64, event state.Event) ([]reply.Message, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return nil, nil
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

func TestChatEvent(t *testing.T) {
	postbacks := []string{"A1", "A2"}

	tests := []struct {
		name   string
		line   string
		want   state.Event
		wantOK bool
	}{
		{name: "blank", line: "   ", wantOK: false},
		{name: "text", line: " is this true? ", want: state.Event{Input: "is this true?", Type: state.EventText}, wantOK: true},
		{name: "button", line: "2", want: state.Event{Input: "A2", Type: state.EventPostback}, wantOK: true},
		{name: "number out of range", line: "3", want: state.Event{Input: "3", Type: state.EventText}, wantOK: true},
		{name: "reset", line: "/RESET", want: state.Event{Input: dialogue.ResetCommand, Type: state.EventText}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chatEvent(tt.line, postbacks)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintMessages(t *testing.T) {
	var out bytes.Buffer

	postbacks, err := printMessages(&out, []reply.Message{
		reply.Text("hello"),
		reply.Buttons("pick one",
			reply.Postback("Yes", "Y"),
			reply.Link("Site", "https://example.org"),
			reply.Postback("No", "N"),
		),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Y", "N"}, postbacks)
	assert.Equal(t, "hello\npick one\n  1) Yes\n  [Site] https://example.org\n  2) No\n", out.String())
}

func TestRunChat(t *testing.T) {
	svc := &scriptedService{
		replies: [][]reply.Message{
			{reply.Buttons("which one?", reply.Postback("First", "ARTICLE-1"))},
			{reply.Text("thanks")},
		},
	}
	var out bytes.Buffer

	err := runChat(context.Background(), svc, "en", strings.NewReader("hello\n\n1\n/reset\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, []state.Event{
		{Input: "hello", Type: state.EventText},
		{Input: "ARTICLE-1", Type: state.EventPostback},
		{Input: dialogue.ResetCommand, Type: state.EventText},
	}, svc.events)
	assert.Contains(t, out.String(), "  1) First")
	assert.Contains(t, out.String(), "thanks")
}

func TestRunChat_ReportsTurnErrors(t *testing.T) {
	svc := &scriptedService{err: errors.New("session locked")}
	var out bytes.Buffer

	err := runChat(context.Background(), svc, "", strings.NewReader("hello\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "! session locked")
	assert.Len(t, svc.events, 1)
}
