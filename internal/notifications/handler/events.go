package handler

import (
	"context"
	"errors"

	"booktable/internal/notifications/service"
	"booktable/pkg/kafka"
	"booktable/pkg/model"
)

// BookingEvents adapts the notifier to the consumer. Malformed or unknown
// events are permanent failures and go straight to the dead letter topic;
// store failures are retried.
func BookingEvents(notifier service.Notifier) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.Type == "" {
			event.Type = msg.GetEventType()
		}

		err := notifier.HandleBookingEvent(ctx, msg.GetEventID(), &event)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrUnknownEvent), errors.Is(err, service.ErrIncompleteEvent):
			return kafka.NewPermanentError("rejected booking event", err)
		default:
			return kafka.NewTransientError("failed to handle booking event", err)
		}
	}
}
