package model

// DailyStat aggregates confirmed bookings per booking date.
type DailyStat struct {
	Date             string  `json:"date" bson:"_id"`
	TotalBookings    int     `json:"total_bookings" bson:"total_bookings"`
	AveragePartySize float64 `json:"average_party_size" bson:"average_party_size"`
}
