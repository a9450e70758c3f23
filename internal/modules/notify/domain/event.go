package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
)

// Event is a transient notification about one channel's transition.
type Event struct {
	ID          uuid.UUID        `json:"id"`
	ChannelID   string           `json:"channel_id"`
	DisplayName string           `json:"display_name"`
	Kind        NotificationKind `json:"kind"`
	Timestamp   time.Time        `json:"timestamp"`
	Summary     string           `json:"summary"`
	Title       string           `json:"title,omitempty"`
	Thumbnail   string           `json:"thumbnail,omitempty"`
}

// NewWentLive builds the event announcing that ch started broadcasting.
func NewWentLive(ch channelDomain.Channel, at time.Time) Event {
	summary := fmt.Sprintf("%s is live", ch.DisplayName)
	if ch.GameName != "" {
		summary = fmt.Sprintf("%s is live playing %s", ch.DisplayName, ch.GameName)
	}
	return Event{
		ID:          uuid.New(),
		ChannelID:   ch.ID,
		DisplayName: ch.DisplayName,
		Kind:        NotificationKindWentLive,
		Timestamp:   at,
		Summary:     summary,
		Title:       ch.Title,
		Thumbnail:   ch.Thumbnail,
	}
}
