package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
)

const deliverTimeout = 15 * time.Second

// Deliverer hands an event to one external sink (chat, feed, log).
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, ev domain.Event) error
}

// Dispatcher drains the queue and fans every event out to all deliverers.
// Deliveries are fire-and-forget: failures are logged and never retried.
type Dispatcher struct {
	queue      *Queue
	deliverers []Deliverer
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewDispatcher(queue *Queue, logger *slog.Logger, deliverers ...Deliverer) *Dispatcher {
	return &Dispatcher{
		queue:      queue,
		deliverers: deliverers,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight deliveries.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("notification dispatcher started", "deliverers", len(d.deliverers))
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return nil
		case ev := <-d.queue.Events():
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev domain.Event) {
	for _, deliverer := range d.deliverers {
		d.wg.Add(1)
		go func(dl Deliverer) {
			defer d.wg.Done()

			deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
			defer cancel()

			if err := dl.Deliver(deliverCtx, ev); err != nil {
				d.logger.Error("failed to deliver notification",
					"deliverer", dl.Name(),
					"event_id", ev.ID,
					"channel_id", ev.ChannelID,
					"error", err,
				)
			}
		}(deliverer)
	}
}

// LogDeliverer writes every event to the structured log.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger.With("component", "notifications")}
}

func (l *LogDeliverer) Name() string { return "log" }

func (l *LogDeliverer) Deliver(_ context.Context, ev domain.Event) error {
	l.logger.Info(ev.Summary,
		"event_id", ev.ID,
		"channel_id", ev.ChannelID,
		"kind", ev.Kind,
		"title", ev.Title,
	)
	return nil
}
