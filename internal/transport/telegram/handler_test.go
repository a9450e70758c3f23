package telegram

import (
	"fmt"
	"testing"
	"time"

	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	vodDomain "github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/stretchr/testify/assert"
)

func TestCommandArg(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "/follow alice", want: "alice", ok: true},
		{text: "/search  speed run ", want: "speed run", ok: true},
		{text: "/follow", ok: false},
		{text: "/follow   ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := commandArg(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatChannel(t *testing.T) {
	offline := channelDomain.Channel{ID: "1", Login: "alice", DisplayName: "Alice", LiveStatus: channelDomain.LiveStatusOffline}
	assert.Equal(t, "Alice", formatChannel(offline))

	live := channelDomain.Channel{
		ID:          "2",
		Login:       "bob_tv",
		DisplayName: "Bob",
		LiveStatus:  channelDomain.LiveStatusLive,
		ViewerCount: 12,
		GameName:    "Chess",
	}
	assert.Equal(t, "Bob (bob_tv) 🔴 Chess, 12 viewers", formatChannel(live))
}

func TestFormatChannelListTruncates(t *testing.T) {
	assert.Equal(t, "empty", formatChannelList("header", nil, "empty"))

	var channels []channelDomain.Channel
	for i := range maxListed + 3 {
		channels = append(channels, channelDomain.Channel{ID: fmt.Sprint(i), DisplayName: fmt.Sprintf("c%d", i)})
	}
	out := formatChannelList("header", channels, "empty")
	assert.Contains(t, out, "1. c0")
	assert.NotContains(t, out, "c22")
	assert.Contains(t, out, "and 3 more")
}

func TestFormatVods(t *testing.T) {
	ch := channelDomain.Channel{ID: "7", Login: "alice", DisplayName: "Alice"}
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	result := vodDomain.PageResult{
		ChannelID: "7",
		Vods: []vodDomain.Vod{
			{ID: "a", Title: "old", DurationSeconds: 60, CreatedAt: created},
			{ID: "b", Title: "new", DurationSeconds: 3723, CreatedAt: created},
		},
		Added: 1,
	}

	out := formatVods(ch, result)
	assert.Contains(t, out, "new (1h2m3s, 2026-03-01)")
	assert.NotContains(t, out, "old")
	assert.Contains(t, out, "/vods alice more")

	result.Terminal = true
	result.Added = 2
	out = formatVods(ch, result)
	assert.Contains(t, out, "old")
	assert.NotContains(t, out, "more")

	assert.Equal(t, "Alice has no broadcasts.", formatVods(ch, vodDomain.PageResult{}))
}

func TestFormatStatus(t *testing.T) {
	cfg := &config.Config{PollInterval: 90 * time.Second, PublicURL: "http://watch.test"}
	out := formatStatus(poller.Stats{Ticks: 4, SkippedTicks: 1}, 2, cfg)

	assert.Contains(t, out, "Favourites: 2")
	assert.Contains(t, out, "Poll interval: 1m30s")
	assert.Contains(t, out, "Polls: 4 (skipped 1)")
	assert.Contains(t, out, "Last poll: never")
	assert.Contains(t, out, "http://watch.test/rss/live")
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "❌ Channel not found", describeError("follow", errs.ErrChannelNotFound))
	assert.Contains(t, describeError("search", fmt.Errorf("wrapped: %w", errs.ErrRateLimited)), "Rate limited")
	assert.Contains(t, describeError("search", errs.ErrNetwork), "service unreachable")
}
