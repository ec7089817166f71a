package models

import "time"

const (
	ScheduleScheduled = "scheduled"
	ScheduleDeparted  = "departed"
	ScheduleCompleted = "completed"
	ScheduleCancelled = "cancelled"
)

// Schedule is a single departure of a bus on a route with its own seat
// inventory. AvailableSeats is only ever changed through conditional
// updates in the repository.
type Schedule struct {
	ID             int64     `json:"id"`
	BusID          int64     `json:"bus_id"`
	RouteID        int64     `json:"route_id"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Price          int64     `json:"price"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Bookable reports whether new bookings may be taken at now.
func (s Schedule) Bookable(now time.Time) bool {
	return s.Status == ScheduleScheduled && s.DepartureTime.After(now)
}

type SchedulePayload struct {
	BusID         int64     `json:"bus_id" binding:"required"`
	RouteID       int64     `json:"route_id" binding:"required"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
	Price         int64     `json:"price" binding:"required"`
	Status        string    `json:"status"`
}

// ScheduleSummary is the joined row returned by route search and
// operator listings.
type ScheduleSummary struct {
	ScheduleID     int64     `json:"schedule_id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Price          int64     `json:"price"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Status         string    `json:"status"`
	BusID          int64     `json:"bus_id"`
	PlateNumber    string    `json:"plate_number"`
	BusModel       string    `json:"bus_model"`
	Amenities      string    `json:"amenities"`
	OperatorID     int64     `json:"operator_id"`
	OperatorName   string    `json:"operator_name"`
}
