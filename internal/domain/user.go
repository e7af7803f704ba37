package domain

import "time"

// User is a chat user known to the bot.
type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	FirstName    string    `json:"first_name"`
	Username     string    `json:"username"`
	LanguageCode string    `json:"language_code"`
	Blocked      bool      `json:"blocked"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}
