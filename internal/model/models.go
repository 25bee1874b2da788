package model

import "time"

// Ride represents one completed tracked activity.
// Timestamp is the ride's start time and is the field used for tier
// membership and ordering. CreatedAt/UpdatedAt are storage bookkeeping
// and carry no ride semantics.
type Ride struct {
	ID           string       // UUID, assigned on insert, storage key in both tiers
	Timestamp    time.Time    // Ride start time
	Distance     float64      // Kilometers, non-negative
	Duration     int64        // Seconds, non-negative
	AverageSpeed float64      // km/h
	MaxSpeed     *float64     // km/h, optional
	RoutePoints  []RoutePoint // Optional, only needed for detail/map rendering
	AISummary    *string      // Optional, attached after creation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoutePoint is a single geographic sample recorded during a ride.
type RoutePoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  *float64  `json:"accuracy,omitempty"` // Meters
	Speed     *float64  `json:"speed,omitempty"`    // km/h
}

// RideDraft is a finished measurement handed to the core by the sensor
// subsystem. It carries everything a Ride has except identity and
// bookkeeping, which the local store assigns on insert.
type RideDraft struct {
	Timestamp    time.Time
	Distance     float64
	Duration     int64
	AverageSpeed float64
	MaxSpeed     *float64
	RoutePoints  []RoutePoint
}

// RideStats is an aggregate over one storage tier.
type RideStats struct {
	Count         int64
	TotalDistance float64 // Kilometers
	TotalDuration int64   // Seconds
}
