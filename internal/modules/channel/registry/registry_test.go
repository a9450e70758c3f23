package registry

import (
	"io"
	"log/slog"
	"testing"

	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, capacity int) *Registry {
	t.Helper()
	r, err := New(capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func liveSnapshot(id string, viewers int) domain.Snapshot {
	return domain.Snapshot{
		ID:          id,
		Login:       id,
		DisplayName: "Display " + id,
		Title:       "stream of " + id,
		LiveStatus:  domain.LiveStatusLive,
		ViewerCount: viewers,
		GameID:      "g1",
		GameName:    "Game One",
	}
}

type recordingSubscriber struct {
	registry *Registry
	changes  []Change
	seen     []domain.Channel
}

func (s *recordingSubscriber) OnRegistryChange(change Change) {
	s.changes = append(s.changes, change)
	for _, id := range change.Updated {
		if ch, ok := s.registry.Get(id); ok {
			s.seen = append(s.seen, ch)
		}
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, 10)

	first := r.Upsert("a", liveSnapshot("a", 120).Status())
	require.True(t, first.Created)
	assert.Equal(t, domain.LiveStatusUnknown, first.OldStatus)
	assert.Equal(t, domain.LiveStatusLive, first.NewStatus)

	second := r.Upsert("a", liveSnapshot("a", 120).Status())
	assert.True(t, second.Empty())
	assert.False(t, second.StatusChanged())
}

func TestUpsertKeepsLocalFields(t *testing.T) {
	r := newTestRegistry(t, 10)
	require.True(t, r.SetFavourite("a", true))
	r.MarkNotified("a", domain.LiveStatusLive)

	r.Upsert("a", liveSnapshot("a", 5).Status())

	ch, ok := r.Get("a")
	require.True(t, ok)
	assert.True(t, ch.Favourite)
	assert.Equal(t, domain.LiveStatusLive, ch.LastNotifiedStatus)
	assert.Equal(t, 5, ch.ViewerCount)
	assert.Equal(t, "Display a", ch.DisplayName)
}

func TestSetFavouriteDoesNotTouchStatus(t *testing.T) {
	r := newTestRegistry(t, 10)
	r.Upsert("a", liveSnapshot("a", 7).Status())

	require.True(t, r.SetFavourite("a", true))
	require.False(t, r.SetFavourite("a", true))

	ch, _ := r.Get("a")
	assert.Equal(t, domain.LiveStatusLive, ch.LiveStatus)
	assert.Equal(t, 7, ch.ViewerCount)
}

func TestOfflineUpdateResetsViewers(t *testing.T) {
	r := newTestRegistry(t, 10)
	r.Upsert("a", liveSnapshot("a", 40).Status())

	delta := r.Upsert("a", domain.OfflineUpdate())

	assert.Equal(t, domain.LiveStatusLive, delta.OldStatus)
	assert.Equal(t, domain.LiveStatusOffline, delta.NewStatus)
	assert.Equal(t, 0, delta.Channel.ViewerCount)
}

func TestSubscribersSeeAppliedState(t *testing.T) {
	r := newTestRegistry(t, 10)
	sub := &recordingSubscriber{registry: r}
	r.Subscribe(sub)

	r.Upsert("a", liveSnapshot("a", 3).Status())
	r.Upsert("a", liveSnapshot("a", 3).Status())

	require.Len(t, sub.changes, 1, "no-op upserts must not notify")
	require.Len(t, sub.seen, 1)
	assert.Equal(t, domain.LiveStatusLive, sub.seen[0].LiveStatus)
}

func TestIdleChannelsAreEvictedLeastRecentlyUsedFirst(t *testing.T) {
	r := newTestRegistry(t, 2)
	sub := &recordingSubscriber{registry: r}
	r.Subscribe(sub)

	r.Upsert("a", liveSnapshot("a", 1).Descriptor())
	r.Upsert("b", liveSnapshot("b", 1).Descriptor())
	r.Upsert("a", domain.OfflineUpdate())
	r.Upsert("c", liveSnapshot("c", 1).Descriptor())

	_, ok := r.Get("b")
	assert.False(t, ok, "b was the least recently used idle channel")
	_, ok = r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, sub.changes[len(sub.changes)-1].Removed)
}

func TestFavouritesAndRetainedChannelsAreNeverEvicted(t *testing.T) {
	r := newTestRegistry(t, 1)
	require.True(t, r.SetFavourite("fav", true))
	r.Upsert("kept", liveSnapshot("kept", 1).Descriptor())
	r.Retain("kept")

	for _, id := range []string{"x", "y", "z"} {
		r.Upsert(id, liveSnapshot(id, 1).Descriptor())
	}

	_, ok := r.Get("fav")
	assert.True(t, ok)
	_, ok = r.Get("kept")
	assert.True(t, ok)
	assert.Equal(t, 3, r.Len(), "only one idle channel fits next to fav and kept")
}

func TestInterestSetFollowsReferences(t *testing.T) {
	r := newTestRegistry(t, 10)
	require.True(t, r.SetFavourite("fav", true))
	r.Upsert("shown", liveSnapshot("shown", 1).Descriptor())
	r.Upsert("hidden", liveSnapshot("hidden", 1).Descriptor())
	sub := &recordingSubscriber{registry: r}
	r.Subscribe(sub)
	r.Retain("shown")
	r.Retain("shown")

	assert.Equal(t, []string{"fav", "shown"}, r.InterestSet())
	require.Len(t, sub.changes, 1, "only the first reference changes interest")
	assert.Equal(t, []string{"shown"}, sub.changes[0].Interest)

	r.Release("shown")
	assert.True(t, r.Referenced("shown"))
	require.Len(t, sub.changes, 1)

	r.Release("shown")
	assert.Equal(t, []string{"fav"}, r.InterestSet())
	assert.False(t, r.Referenced("shown"))
	require.Len(t, sub.changes, 2)
	assert.Equal(t, []string{"shown"}, sub.changes[1].Interest)
	_, ok := r.Get("shown")
	assert.True(t, ok, "released channels linger until evicted")
}

func TestSetFeaturedRanksChannels(t *testing.T) {
	r := newTestRegistry(t, 10)
	for _, id := range []string{"a", "b", "c"} {
		r.Upsert(id, liveSnapshot(id, 1).Descriptor())
	}

	r.SetFeatured([]string{"c", "a"})
	c, _ := r.Get("c")
	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, 1, c.FeaturedRank)
	assert.Equal(t, 2, a.FeaturedRank)
	assert.False(t, b.Featured)

	r.SetFeatured([]string{"b"})
	a, _ = r.Get("a")
	b, _ = r.Get("b")
	assert.False(t, a.Featured)
	assert.True(t, b.Featured)
}
