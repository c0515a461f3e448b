package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/robertoclunarc/minisuper-pos/internal/obs"
)

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the event topic and aggregate.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID.String()).
		Msg("domain_event")
	return nil
}

// MetricNotifier counts emitted events per topic.
type MetricNotifier struct{}

func (MetricNotifier) Notify(_ context.Context, event Event) error {
	if obs.EventsEmittedTotal != nil {
		obs.EventsEmittedTotal.WithLabelValues(event.Topic).Inc()
	}
	return nil
}
