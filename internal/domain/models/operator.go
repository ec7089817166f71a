package models

import "time"

const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"

	ActivityActive    = "active"
	ActivitySuspended = "suspended"
)

// Operator is a bus company account, owned 1:1 by a user.
type Operator struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	CompanyName        string    `json:"company_name"`
	LicenseNumber      string    `json:"license_number"`
	ContactPhone       string    `json:"contact_phone"`
	VerificationStatus string    `json:"verification_status"`
	ActivityStatus     string    `json:"activity_status"`
	OwnerEmail         string    `json:"owner_email,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CanOperate reports whether the operator may manage buses and schedules.
func (o Operator) CanOperate() bool {
	return o.VerificationStatus == VerificationVerified && o.ActivityStatus == ActivityActive
}

// CascadeReport counts rows removed by a cascading delete.
type CascadeReport struct {
	Buses     int64 `json:"buses"`
	Schedules int64 `json:"schedules"`
	Bookings  int64 `json:"bookings"`
	Payments  int64 `json:"payments"`
	Tickets   int64 `json:"tickets"`
	Reviews   int64 `json:"reviews"`
	Sessions  int64 `json:"sessions"`
	Operators int64 `json:"operators"`
	Users     int64 `json:"users"`
}
