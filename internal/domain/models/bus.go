package models

import "time"

const (
	BusStatusActive      = "active"
	BusStatusMaintenance = "maintenance"
	BusStatusRetired     = "retired"

	MaxBusCapacity = 100
)

type Bus struct {
	ID          int64     `json:"id"`
	OperatorID  int64     `json:"operator_id"`
	PlateNumber string    `json:"plate_number"`
	Model       string    `json:"model"`
	Capacity    int       `json:"capacity"`
	Amenities   string    `json:"amenities"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BusPayload struct {
	PlateNumber string `json:"plate_number" binding:"required"`
	Model       string `json:"model"`
	Capacity    int    `json:"capacity" binding:"required"`
	Amenities   string `json:"amenities"`
	Status      string `json:"status"`
}

type Route struct {
	ID               int64     `json:"id"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	DistanceKM       int       `json:"distance_km"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

type RoutePayload struct {
	Origin           string `json:"origin" binding:"required"`
	Destination      string `json:"destination" binding:"required"`
	DistanceKM       int    `json:"distance_km"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}
