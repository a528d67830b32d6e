package model

import "time"

const (
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationBookingReminder  = "booking_reminder"
	NotificationGeneralUpdate    = "general_update"
)

type Notification struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Type      string    `json:"type" bson:"type"`
	Message   string    `json:"message" bson:"message"`
	BookingID string    `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	EventID   string    `json:"-" bson:"event_id,omitempty"`
	IsRead    bool      `json:"is_read" bson:"is_read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NotificationInbox is one page of a user's notifications plus the number
// still unread across all pages.
type NotificationInbox struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int64           `json:"unread_count"`
	TotalCount    int64           `json:"total_count"`
	Limit         int             `json:"limit"`
	Offset        int64           `json:"offset"`
}
