package models

import "time"

const (
	ReviewTargetBus      = "bus"
	ReviewTargetOperator = "operator"
	ReviewTargetPlatform = "platform"
)

type Review struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	TargetType string    `json:"target_type"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewPayload struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   *int64 `json:"target_id"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}
