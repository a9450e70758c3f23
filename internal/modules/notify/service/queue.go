package service

import (
	"log/slog"

	"github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
)

const DefaultQueueSize = 64

// Queue is the bounded hand-off between the detector and the dispatcher.
type Queue struct {
	events chan domain.Event
	logger *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queue{
		events: make(chan domain.Event, size),
		logger: logger.With("component", "notify_queue"),
	}
}

// Publish never blocks. When the queue is full the event is dropped.
func (q *Queue) Publish(ev domain.Event) bool {
	select {
	case q.events <- ev:
		return true
	default:
		q.logger.Warn("notification queue full, dropping event",
			"channel_id", ev.ChannelID,
			"kind", ev.Kind,
		)
		return false
	}
}

// Events is drained by the dispatcher.
func (q *Queue) Events() <-chan domain.Event {
	return q.events
}
