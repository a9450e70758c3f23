package domain

import "time"

// Vod is one archived broadcast of a channel.
type Vod struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	Thumbnail       string    `json:"thumbnail,omitempty"`
	Game            string    `json:"game,omitempty"`
	URL             string    `json:"url,omitempty"`
}

// Valid reports whether the entry carries what a listing needs.
func (v Vod) Valid() bool {
	return v.ID != "" && !v.CreatedAt.IsZero() && v.DurationSeconds >= 0
}

// Page is one page of VODs as returned by the remote API.
// An empty NextCursor means there are no further pages.
type Page struct {
	Vods       []Vod
	NextCursor string
}

// PageResult is the state of a channel's listing after a page load.
type PageResult struct {
	ChannelID  string `json:"channel_id"`
	Vods       []Vod  `json:"vods"`
	Added      int    `json:"added"`
	NextCursor string `json:"next_cursor,omitempty"`
	Terminal   bool   `json:"terminal"`
	// Restarted is set when the cursor was rejected and the listing started over.
	Restarted bool `json:"restarted"`
}
