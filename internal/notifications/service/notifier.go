package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booktable/internal/notifications/mailer"
	"booktable/internal/notifications/repository"
	notificationserrors "booktable/internal/notifications/errors"
	"booktable/pkg/logger"
	"booktable/pkg/model"
)

var (
	ErrUnknownEvent    = errors.New("unknown booking event type")
	ErrIncompleteEvent = errors.New("booking event is missing the booking or user")
)

// Notifier turns committed booking events into an in-app notification and an
// email for the diner. Redelivered events are recognised by their event id
// and produce neither a second notification nor a second email.
type Notifier interface {
	HandleBookingEvent(ctx context.Context, eventID string, event *model.BookingEvent) error
}

type notifier struct {
	repo   repository.NotificationRepository
	mailer mailer.Mailer
	log    *logger.Logger
	now    func() time.Time
}

func NewNotifier(repo repository.NotificationRepository, m mailer.Mailer, log *logger.Logger) Notifier {
	return &notifier{
		repo:   repo,
		mailer: m,
		log:    log.Component("notifier"),
		now:    time.Now,
	}
}

type eventTemplate struct {
	notificationType string
	verb             string
	subject          string
	closing          string
}

var templates = map[string]eventTemplate{
	model.EventBookingConfirmed: {
		notificationType: model.NotificationBookingConfirmed,
		verb:             "is confirmed",
		subject:          "Your booking confirmation at %s",
		closing:          "We look forward to serving you!",
	},
	model.EventBookingCancelled: {
		notificationType: model.NotificationBookingCancelled,
		verb:             "has been cancelled",
		subject:          "Booking cancellation at %s",
		closing:          "If you did not request this cancellation, please contact us.",
	},
}

func (n *notifier) HandleBookingEvent(ctx context.Context, eventID string, event *model.BookingEvent) error {
	tmpl, ok := templates[event.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
	booking := event.Booking
	if booking.ID == "" || booking.UserID == "" {
		return fmt.Errorf("%w: event %s", ErrIncompleteEvent, eventID)
	}

	restaurant := event.RestaurantName
	if restaurant == "" {
		restaurant = "the restaurant"
	}

	notification := &model.Notification{
		UserID:    booking.UserID,
		Type:      tmpl.notificationType,
		Message:   Message(restaurant, &booking, tmpl.verb),
		BookingID: booking.ID,
		EventID:   eventID,
		CreatedAt: n.now().UTC().Truncate(time.Millisecond),
	}
	if err := n.repo.Create(ctx, notification); err != nil {
		if errors.Is(err, notificationserrors.ErrDuplicateEvent) {
			n.log.Info("Booking event already handled",
				"event_id", eventID,
				"booking_id", booking.ID,
			)
			return nil
		}
		return fmt.Errorf("failed to record notification: %w", err)
	}

	n.log.Info("Notification recorded",
		"event_id", eventID,
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"type", notification.Type,
	)

	if booking.UserEmail == "" {
		n.log.Warn("Booking has no email address, skipping mail",
			"booking_id", booking.ID,
			"user_id", booking.UserID,
		)
		return nil
	}

	mail := mailer.Mail{
		To:      booking.UserEmail,
		Subject: fmt.Sprintf(tmpl.subject, restaurant),
		Body:    mailBody(notification.Message, &booking, tmpl.closing),
	}
	if err := n.mailer.Send(ctx, mail); err != nil {
		n.log.Error("Failed to send booking mail",
			"booking_id", booking.ID,
			"type", notification.Type,
			"error", err,
		)
	}
	return nil
}

// Message is the in-app text, e.g.
// "Your booking at Bistro for 2026-10-18 at 18:00 is confirmed."
func Message(restaurant string, booking *model.Booking, verb string) string {
	return fmt.Sprintf("Your booking at %s for %s at %s %s.", restaurant, booking.Date, booking.Time, verb)
}

func mailBody(message string, booking *model.Booking, closing string) string {
	return fmt.Sprintf("%s\n\nDate: %s\nTime: %s\nParty size: %d\n\n%s\n\nThe BookTable Team\n",
		message, booking.Date, booking.Time, booking.PartySize, closing)
}
