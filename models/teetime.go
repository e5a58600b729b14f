// File: models/teetime.go
package models

import "time"

// TeeTime is a discovered bookable slot.
type TeeTime struct {
	ID             string    `bson:"id" json:"id"`
	CourseID       string    `bson:"courseId" json:"courseId"`
	Date           string    `bson:"date" json:"date"` // YYYY-MM-DD
	Time           string    `bson:"time" json:"time"` // HH:MM, 24h
	AvailableSpots int       `bson:"availableSpots" json:"availableSpots"`
	Price          *float64  `bson:"price,omitempty" json:"price,omitempty"`
	PlatformID     string    `bson:"platformId" json:"platformId"` // re-addresses the slot on its platform
	Placeholder    bool      `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	LastChecked    time.Time `bson:"lastChecked" json:"lastChecked"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}
