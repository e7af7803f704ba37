package bot

// Command constants for Telegram bot commands.
const (
	CommandStart = "/start"
	CommandReset = "/reset"
	CommandHelp  = "/help"
)

// Commands describes the bot's commands for the Telegram menu.
var Commands = []struct {
	Text        string
	Description string
}{
	{Text: "start", Description: "How this bot works"},
	{Text: "reset", Description: "Start over"},
	{Text: "help", Description: "Usage and contact"},
}
