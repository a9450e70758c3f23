package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	notifyDomain "github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(channel string, at time.Time) notifyDomain.Event {
	return notifyDomain.Event{
		ID:          uuid.New(),
		ChannelID:   channel,
		DisplayName: "Chan " + channel,
		Kind:        notifyDomain.NotificationKindWentLive,
		Timestamp:   at,
		Summary:     "Chan " + channel + " is live",
		Title:       "<b>speedrun</b>",
		Thumbnail:   "https://img/" + channel + ".jpg",
	}
}

func TestHistoryIsBoundedNewestFirst(t *testing.T) {
	s := New(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, ch := range []string{"a", "b", "c"} {
		require.NoError(t, s.Deliver(context.Background(), event(ch, now.Add(time.Duration(i)*time.Minute))))
	}

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].ChannelID)
	assert.Equal(t, "b", history[1].ChannelID)
}

func TestGenerateFeedRendersRSS(t *testing.T) {
	s := New(10)
	ev := event("a", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Deliver(context.Background(), ev))

	feed := s.GenerateFeed("http://localhost:8080")
	assert.Equal(t, "http://localhost:8080/rss/live", feed.Link.Href)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, ev.ID.String(), feed.Items[0].Id)
	assert.Contains(t, feed.Items[0].Content, "&lt;b&gt;speedrun&lt;/b&gt;")

	rss, err := feed.ToRss()
	require.NoError(t, err)
	assert.Contains(t, rss, "Chan a is live")
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "héll...", truncate("héllo", 4))
	assert.Equal(t, "hi", truncate("hi", 4))
}
