package models

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusFailed    = "failed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents the result of a successful booking call.
type Booking struct {
	ID               string         `bson:"id" json:"id"`
	PlatformRef      string         `bson:"platformRef,omitempty" json:"platformRef,omitempty"` // booking id on the remote platform
	UserID           string         `bson:"userId" json:"userId"`
	AutomationID     string         `bson:"automationId,omitempty" json:"automationId,omitempty"`
	CourseID         string         `bson:"courseId" json:"courseId"`
	TeeTimeID        string         `bson:"teeTimeId" json:"teeTimeId"`
	Status           string         `bson:"status" json:"status"`
	Details          BookingDetails `bson:"bookingDetails" json:"bookingDetails"`
	PlatformResponse map[string]any `bson:"platformResponse,omitempty" json:"platformResponse,omitempty"` // raw response kept for audit
	ErrorMessage     string         `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt        time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `bson:"updatedAt" json:"updatedAt"`
}

type BookingDetails struct {
	Date    string   `bson:"date" json:"date"`
	Time    string   `bson:"time" json:"time"`
	Players int      `bson:"players" json:"players"`
	Price   *float64 `bson:"price,omitempty" json:"price,omitempty"`
}
