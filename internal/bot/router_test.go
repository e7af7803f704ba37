package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/testutil"
)

func TestRouter_GroupMentions(t *testing.T) {
	var routed []string
	record := func(name string) func(telebot.Context) error {
		return func(telebot.Context) error {
			routed = append(routed, name)
			return nil
		}
	}

	r := NewRouter(testutil.DiscardLogger())
	r.RegisterCommand(CommandHelp, record("help"))
	r.SetDefault(record("dialogue"))
	r.SetMention("rumor_bot", record("mention"))

	tests := []struct {
		name string
		c    telebot.Context
		want string
	}{
		{name: "mention in group", c: testutil.GroupUpdate(1, 7, -100, "@Rumor_Bot is this true?", ""), want: "mention"},
		{name: "mention replying to a message", c: testutil.GroupUpdate(2, 7, -100, "@rumor_bot", "free money for all"), want: "mention"},
		{name: "group chatter", c: testutil.GroupUpdate(3, 7, -100, "lunch?", ""), want: "dialogue"},
		{name: "private mention", c: testutil.TextUpdate(4, 7, "@rumor_bot hi"), want: "dialogue"},
		{name: "command wins", c: testutil.GroupUpdate(5, 7, -100, "/help@rumor_bot", ""), want: "help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routed = nil
			require.NoError(t, r.Route(tt.c))
			assert.Equal(t, []string{tt.want}, routed)
		})
	}
}
