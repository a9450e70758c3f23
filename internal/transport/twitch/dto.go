package twitch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	vodDomain "github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type pagination struct {
	Cursor string `json:"cursor"`
}

// envelope keeps entries raw so one malformed entry cannot fail the page.
type envelope struct {
	Data       []json.RawMessage `json:"data"`
	Pagination pagination        `json:"pagination"`
}

type streamDTO struct {
	ID           string `json:"id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	GameID       string `json:"game_id"`
	GameName     string `json:"game_name"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	ViewerCount  int    `json:"viewer_count" validate:"gte=0"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s streamDTO) snapshot() channelDomain.Snapshot {
	status := channelDomain.LiveStatusLive
	if s.Type != "" && s.Type != "live" {
		status = channelDomain.LiveStatusOffline
	}
	return channelDomain.Snapshot{
		ID:          s.UserID,
		Login:       s.UserLogin,
		DisplayName: s.UserName,
		Title:       s.Title,
		LiveStatus:  status,
		ViewerCount: s.ViewerCount,
		GameID:      s.GameID,
		GameName:    s.GameName,
		Thumbnail:   sizedThumbnail(s.ThumbnailURL, 440, 248),
	}
}

type channelDTO struct {
	ID               string `json:"id" validate:"required"`
	BroadcasterLogin string `json:"broadcaster_login" validate:"required"`
	DisplayName      string `json:"display_name"`
	GameID           string `json:"game_id"`
	GameName         string `json:"game_name"`
	IsLive           bool   `json:"is_live"`
	Title            string `json:"title"`
	ThumbnailURL     string `json:"thumbnail_url"`
}

func (c channelDTO) snapshot() channelDomain.Snapshot {
	status := channelDomain.LiveStatusOffline
	if c.IsLive {
		status = channelDomain.LiveStatusLive
	}
	return channelDomain.Snapshot{
		ID:          c.ID,
		Login:       c.BroadcasterLogin,
		DisplayName: c.DisplayName,
		Title:       c.Title,
		LiveStatus:  status,
		GameID:      c.GameID,
		GameName:    c.GameName,
		Thumbnail:   c.ThumbnailURL,
	}
}

type userDTO struct {
	ID              string `json:"id" validate:"required"`
	Login           string `json:"login" validate:"required"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (u userDTO) snapshot() channelDomain.Snapshot {
	return channelDomain.Snapshot{
		ID:          u.ID,
		Login:       u.Login,
		DisplayName: u.DisplayName,
		Thumbnail:   u.ProfileImageURL,
	}
}

type gameDTO struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	BoxArtURL string `json:"box_art_url"`
}

type videoDTO struct {
	ID           string    `json:"id" validate:"required"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at" validate:"required"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Duration     string    `json:"duration" validate:"required"`
	URL          string    `json:"url"`
}

func (v videoDTO) vod(channelID string) (vodDomain.Vod, error) {
	d, err := time.ParseDuration(v.Duration)
	if err != nil {
		return vodDomain.Vod{}, fmt.Errorf("duration %q: %w", v.Duration, err)
	}
	return vodDomain.Vod{
		ID:              v.ID,
		ChannelID:       channelID,
		Title:           v.Title,
		DurationSeconds: int(d.Seconds()),
		CreatedAt:       v.CreatedAt,
		Thumbnail:       sizedThumbnail(v.ThumbnailURL, 320, 180),
		URL:             v.URL,
	}, nil
}

// sizedThumbnail fills the size placeholders the API leaves in image urls.
func sizedThumbnail(raw string, width, height int) string {
	r := strings.NewReplacer(
		"{width}", fmt.Sprint(width),
		"{height}", fmt.Sprint(height),
		"%{width}", fmt.Sprint(width),
		"%{height}", fmt.Sprint(height),
	)
	return r.Replace(raw)
}

// decodeItems unmarshals and validates each entry on its own, dropping
// the ones that fail. It reports how many were dropped.
func decodeItems[T any](raw []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(raw))
	for _, entry := range raw {
		var item T
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		if err := validate.Struct(item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, len(raw) - len(out)
}
