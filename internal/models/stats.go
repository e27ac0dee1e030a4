package models

// EventStats is the read-side aggregate for one event.
type EventStats struct {
	EventID           int64 `json:"event_id"`
	TotalSeats        int   `json:"total_seats"`
	AvailableSeats    int   `json:"available_seats"`
	SoldSeats         int   `json:"sold_seats"`
	ReservedSeats     int   `json:"reserved_seats"`
	IsSoldOut         bool  `json:"is_sold_out"`
	TotalRevenue      Money `json:"total_revenue"`
	TotalBookings     int   `json:"total_bookings"`
	ConfirmedBookings int   `json:"confirmed_bookings"`
}
