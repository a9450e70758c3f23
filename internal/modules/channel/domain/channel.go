package domain

import "time"

// Channel is a tracked broadcast channel. The registry owns every Channel;
// everything handed out of it is a copy.
type Channel struct {
	ID                 string     `json:"id"`
	Login              string     `json:"login,omitempty"`
	DisplayName        string     `json:"display_name"`
	Title              string     `json:"title,omitempty"`
	LiveStatus         LiveStatus `json:"live_status"`
	ViewerCount        int        `json:"viewer_count"`
	GameID             string     `json:"game_id,omitempty"`
	GameName           string     `json:"game_name,omitempty"`
	Thumbnail          string     `json:"thumbnail,omitempty"`
	Favourite          bool       `json:"favourite"`
	Featured           bool       `json:"featured"`
	FeaturedRank       int        `json:"-"`
	LastNotifiedStatus LiveStatus `json:"-"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsLive reports whether the channel is currently broadcasting.
func (c Channel) IsLive() bool {
	return c.LiveStatus == LiveStatusLive
}

// GameKey identifies the channel's game category, empty when it has none.
func (c Channel) GameKey() string {
	if c.GameID != "" {
		return c.GameID
	}
	return c.GameName
}

// Snapshot is a channel as reported by the remote API.
type Snapshot struct {
	ID          string
	Login       string
	DisplayName string
	Title       string
	LiveStatus  LiveStatus
	ViewerCount int
	GameID      string
	GameName    string
	Thumbnail   string
}

// StatusUpdate carries partial remote data for Registry.Upsert.
// Nil fields are left untouched.
type StatusUpdate struct {
	Login       *string
	DisplayName *string
	Title       *string
	LiveStatus  *LiveStatus
	ViewerCount *int
	GameID      *string
	GameName    *string
	Thumbnail   *string
}

// Descriptor returns the descriptive part of the snapshot without live status,
// for data that comes from search and directory listings.
func (s Snapshot) Descriptor() StatusUpdate {
	u := StatusUpdate{}
	setIfNotEmpty(&u.Login, s.Login)
	setIfNotEmpty(&u.DisplayName, s.DisplayName)
	setIfNotEmpty(&u.Title, s.Title)
	setIfNotEmpty(&u.GameID, s.GameID)
	setIfNotEmpty(&u.GameName, s.GameName)
	setIfNotEmpty(&u.Thumbnail, s.Thumbnail)
	return u
}

// Status returns the full update including live status and viewer count.
func (s Snapshot) Status() StatusUpdate {
	u := s.Descriptor()
	status := s.LiveStatus
	viewers := s.ViewerCount
	if status != LiveStatusLive {
		viewers = 0
	}
	u.LiveStatus = &status
	u.ViewerCount = &viewers
	return u
}

// OfflineUpdate is applied to channels the remote API did not report as live.
func OfflineUpdate() StatusUpdate {
	status := LiveStatusOffline
	viewers := 0
	return StatusUpdate{LiveStatus: &status, ViewerCount: &viewers}
}

func setIfNotEmpty(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

// Delta describes what a single Upsert changed.
type Delta struct {
	ChannelID string
	Created   bool
	Changed   bool
	OldStatus LiveStatus
	NewStatus LiveStatus
	Channel   Channel
}

// Empty reports whether the upsert was a no-op.
func (d Delta) Empty() bool {
	return !d.Created && !d.Changed
}

// StatusChanged reports whether the live status moved.
func (d Delta) StatusChanged() bool {
	return d.OldStatus != d.NewStatus
}

// GameCategory aggregates channels playing the same game.
type GameCategory struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Viewers    int      `json:"viewers"`
	ChannelIDs []string `json:"channel_ids"`
}

// GameSnapshot is a top game with its top channels as reported by the remote API.
type GameSnapshot struct {
	ID       string
	Name     string
	BoxArt   string
	Channels []Snapshot
}
