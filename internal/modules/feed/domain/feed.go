package domain

import "time"

// FeedConfig describes the notification feed channel.
type FeedConfig struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Updated     time.Time `json:"updated"`
}
