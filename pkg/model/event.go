package model

import "time"

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"

	EventSchemaVersion = "1"
)

// BookingEvent is published after a booking state change has been committed.
type BookingEvent struct {
	Type           string    `json:"type"`
	Booking        Booking   `json:"booking"`
	RestaurantName string    `json:"restaurant_name"`
	ActorID        string    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}
