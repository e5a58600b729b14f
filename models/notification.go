package models

import "time"

const NotificationTypeTeeTimeFound = "tee_time_found"

type Notification struct {
	ID        string           `bson:"id" json:"id"`
	UserID    string           `bson:"userId" json:"userId"`
	Type      string           `bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Data      NotificationData `bson:"data" json:"data"`
	IsRead    bool             `bson:"isRead" json:"isRead"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

type NotificationData struct {
	AutomationID string            `bson:"automationId" json:"automationId"`
	CourseID     string            `bson:"courseId" json:"courseId"`
	CourseName   string            `bson:"courseName" json:"courseName"`
	Placeholder  bool              `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	TeeTimes     []NotifiedTeeTime `bson:"teeTimes" json:"teeTimes"`
}

// NotifiedTeeTime is the slot summary embedded in a notification.
type NotifiedTeeTime struct {
	ID             string   `bson:"id" json:"id"`
	Date           string   `bson:"date" json:"date"`
	Time           string   `bson:"time" json:"time"`
	Price          *float64 `bson:"price,omitempty" json:"price,omitempty"`
	AvailableSpots int      `bson:"availableSpots" json:"availableSpots"`
}
