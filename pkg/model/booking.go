package model

import (
	"time"

	"booktable/pkg/civil"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	ID           string          `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       string          `json:"user_id" bson:"user_id"`
	UserEmail    string          `json:"user_email,omitempty" bson:"user_email,omitempty"`
	RestaurantID string          `json:"restaurant_id" bson:"restaurant_id"`
	Date         civil.Date      `json:"date" bson:"date"`
	Time         civil.TimeOfDay `json:"time" bson:"time"`
	PartySize    int             `json:"party_size" bson:"party_size"`
	TableSize    int             `json:"table_size" bson:"table_size"`
	Status       string          `json:"status" bson:"status"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// Bucket is the size bucket the booking holds a table in.
func (b *Booking) Bucket() BucketRef {
	return BucketRef{RestaurantID: b.RestaurantID, Date: b.Date, TableSize: b.TableSize}
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// CreateBookingRequest carries raw strings so that malformed dates and times
// surface as field-level input errors rather than decode failures.
type CreateBookingRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required,mongodb"`
	Date         string `json:"date" validate:"required,civil_date"`
	Time         string `json:"time" validate:"required,time_of_day"`
	PartySize    int    `json:"party_size"`
}
