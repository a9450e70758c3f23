package service

import (
	"log/slog"
	"time"

	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
)

// NotifiedMarker records the last status a notification went out for.
type NotifiedMarker interface {
	MarkNotified(id string, status channelDomain.LiveStatus)
}

// Publisher accepts events without blocking.
type Publisher interface {
	Publish(ev domain.Event) bool
}

// Detector classifies registry deltas and emits notifications. It runs on the
// control loop, right after the poller applied a batch.
type Detector struct {
	marker    NotifiedMarker
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewDetector(marker NotifiedMarker, publisher Publisher, logger *slog.Logger) *Detector {
	return &Detector{
		marker:    marker,
		publisher: publisher,
		logger:    logger.With("component", "detector"),
		now:       time.Now,
	}
}

// Inspect looks at one delta and returns the event it emitted, if any.
func (d *Detector) Inspect(delta channelDomain.Delta) (domain.Event, bool) {
	if !delta.StatusChanged() {
		return domain.Event{}, false
	}
	ch := delta.Channel

	switch {
	// Unknown counts as not live, so a favourite already live at its first
	// poll is announced once.
	case delta.NewStatus == channelDomain.LiveStatusLive:
		if !ch.Favourite || ch.LastNotifiedStatus == channelDomain.LiveStatusLive {
			return domain.Event{}, false
		}
		ev := domain.NewWentLive(ch, d.now())
		d.marker.MarkNotified(ch.ID, channelDomain.LiveStatusLive)
		d.publisher.Publish(ev)
		d.logger.Info("channel went live", "channel_id", ch.ID, "name", ch.DisplayName)
		return ev, true

	case delta.OldStatus == channelDomain.LiveStatusLive:
		if ch.LastNotifiedStatus == channelDomain.LiveStatusLive {
			d.marker.MarkNotified(ch.ID, channelDomain.LiveStatusOffline)
		}
		d.logger.Debug("channel went offline", "channel_id", ch.ID, "favourite", ch.Favourite)
	}
	return domain.Event{}, false
}

// InspectAll runs Inspect over a batch of deltas.
func (d *Detector) InspectAll(deltas []channelDomain.Delta) int {
	emitted := 0
	for _, delta := range deltas {
		if _, ok := d.Inspect(delta); ok {
			emitted++
		}
	}
	return emitted
}
