package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	"github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func status(id string, s channelDomain.LiveStatus) channelDomain.StatusUpdate {
	return channelDomain.Snapshot{ID: id, DisplayName: "Chan " + id, LiveStatus: s, ViewerCount: 10, GameName: "Chess"}.Status()
}

func newDetectorFixture(t *testing.T) (*registry.Registry, *Queue, *Detector) {
	t.Helper()
	reg, err := registry.New(16, discardLogger())
	require.NoError(t, err)
	queue := NewQueue(8, discardLogger())
	return reg, queue, NewDetector(reg, queue, discardLogger())
}

func drain(q *Queue) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev := <-q.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDetectorEmitsWentLiveOncePerSession(t *testing.T) {
	reg, queue, detector := newDetectorFixture(t)
	reg.SetFavourite("a", true)

	for i := 0; i < 5; i++ {
		detector.Inspect(reg.Upsert("a", status("a", channelDomain.LiveStatusLive)))
	}

	events := drain(queue)
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotificationKindWentLive, events[0].Kind)
	assert.Equal(t, "a", events[0].ChannelID)
	assert.Equal(t, "Chan a is live playing Chess", events[0].Summary)
	assert.NotEqual(t, uuid.Nil, events[0].ID)

	ch, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, channelDomain.LiveStatusLive, ch.LastNotifiedStatus)
}

func TestDetectorRearmsAfterOffline(t *testing.T) {
	reg, queue, detector := newDetectorFixture(t)
	reg.SetFavourite("a", true)

	detector.Inspect(reg.Upsert("a", status("a", channelDomain.LiveStatusLive)))
	_, emitted := detector.Inspect(reg.Upsert("a", channelDomain.OfflineUpdate()))
	assert.False(t, emitted, "going offline never notifies")

	ch, _ := reg.Get("a")
	assert.Equal(t, channelDomain.LiveStatusOffline, ch.LastNotifiedStatus)

	detector.Inspect(reg.Upsert("a", status("a", channelDomain.LiveStatusLive)))
	assert.Len(t, drain(queue), 2)
}

func TestDetectorFirstLivePollOfFavouriteNotifies(t *testing.T) {
	reg, queue, detector := newDetectorFixture(t)
	reg.SetFavourite("a", true)

	delta := reg.Upsert("a", status("a", channelDomain.LiveStatusLive))
	require.Equal(t, channelDomain.LiveStatusUnknown, delta.OldStatus)

	_, emitted := detector.Inspect(delta)
	assert.True(t, emitted, "a favourite found live on its first poll is announced")
	assert.Len(t, drain(queue), 1)

	reg.SetFavourite("b", true)
	_, emitted = detector.Inspect(reg.Upsert("b", channelDomain.OfflineUpdate()))
	assert.False(t, emitted)
}

func TestDetectorIgnoresNonFavourites(t *testing.T) {
	reg, queue, detector := newDetectorFixture(t)

	_, emitted := detector.Inspect(reg.Upsert("b", status("b", channelDomain.LiveStatusLive)))
	assert.False(t, emitted)
	assert.Empty(t, drain(queue))

	ch, _ := reg.Get("b")
	assert.Equal(t, channelDomain.LiveStatusUnknown, ch.LastNotifiedStatus)
}

func TestDetectorInspectAllCountsEvents(t *testing.T) {
	reg, queue, detector := newDetectorFixture(t)
	reg.SetFavourite("a", true)
	reg.SetFavourite("b", true)

	deltas := reg.UpsertMany([]registry.Entry{
		{ID: "a", Update: status("a", channelDomain.LiveStatusLive)},
		{ID: "b", Update: channelDomain.OfflineUpdate()},
		{ID: "c", Update: status("c", channelDomain.LiveStatusLive)},
	})

	assert.Equal(t, 1, detector.InspectAll(deltas))
	assert.Len(t, drain(queue), 1)
}

func TestQueueDropsWhenFull(t *testing.T) {
	queue := NewQueue(1, discardLogger())

	assert.True(t, queue.Publish(domain.Event{ChannelID: "a"}))
	assert.False(t, queue.Publish(domain.Event{ChannelID: "b"}))

	events := drain(queue)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].ChannelID)
}

type recordingDeliverer struct {
	name string
	err  error

	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingDeliverer) Name() string { return r.name }

func (r *recordingDeliverer) Deliver(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingDeliverer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcherFansOutToEveryDeliverer(t *testing.T) {
	queue := NewQueue(4, discardLogger())
	ok := &recordingDeliverer{name: "ok"}
	failing := &recordingDeliverer{name: "failing", err: errors.New("chat unreachable")}
	dispatcher := NewDispatcher(queue, discardLogger(), ok, failing, NewLogDeliverer(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	queue.Publish(domain.Event{ChannelID: "a", Kind: domain.NotificationKindWentLive})
	queue.Publish(domain.Event{ChannelID: "b", Kind: domain.NotificationKindWentLive})

	require.Eventually(t, func() bool {
		return ok.count() == 2 && failing.count() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
