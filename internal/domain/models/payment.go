package models

import "time"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
	PaymentRefunded  = "refunded"
)

// PaymentMethods lists the accepted payment method tags.
var PaymentMethods = map[string]bool{
	"mobile_money": true,
	"mpesa":        true,
	"tigo_pesa":    true,
	"airtel_money": true,
	"card":         true,
	"cash":         true,
}

// Payment is 1:1 with a booking.
type Payment struct {
	ID             int64     `json:"id"`
	BookingID      int64     `json:"booking_id"`
	Amount         int64     `json:"amount"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
