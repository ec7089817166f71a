package models

import "time"

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"

	MaxSeatsPerBooking = 10
)

type Booking struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ScheduleID    int64      `json:"schedule_id"`
	NumberOfSeats int        `json:"number_of_seats"`
	TotalAmount   int64      `json:"total_amount"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// BookingDetail joins a booking with its trip, payment and ticket.
type BookingDetail struct {
	Booking
	PassengerName  string    `json:"passenger_name"`
	PassengerEmail string    `json:"passenger_email"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	PlateNumber    string    `json:"plate_number"`
	OperatorName   string    `json:"operator_name"`
	PaymentMethod  string    `json:"payment_method"`
	PaymentStatus  string    `json:"payment_status"`
	QRCode         string    `json:"qr_code"`
}

type Ticket struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	QRCode    string    `json:"qr_code"`
	IssuedAt  time.Time `json:"issued_at"`
}
