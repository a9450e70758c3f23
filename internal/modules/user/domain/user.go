package domain

import "time"

// User is a Telegram chat subscribed to live notifications.
type User struct {
	ID       int64     `json:"id"`
	ChatID   int64     `json:"chat_id"`
	Username string    `json:"username"`
	AddedAt  time.Time `json:"added_at"`
	Muted    bool      `json:"muted"`
}
