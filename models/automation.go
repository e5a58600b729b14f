// File: models/automation.go
package models

import "time"

const (
	BookingActionNotify   = "notify"
	BookingActionAutoBook = "auto-book"
)

// Automation is a user-defined recurring watch rule.
type Automation struct {
	ID            string     `bson:"id" json:"id"`
	UserID        string     `bson:"userId" json:"userId"`
	Name          string     `bson:"name" json:"name"`
	Courses       []string   `bson:"courses" json:"courses"` // course ids
	TimeRange     TimeRange  `bson:"timeRange" json:"timeRange"`
	DaysOfWeek    []int      `bson:"daysOfWeek" json:"daysOfWeek"`       // 0-6, Sunday first
	CheckInterval int        `bson:"checkInterval" json:"checkInterval"` // minutes
	IsActive      bool       `bson:"isActive" json:"isActive"`
	BookingAction string     `bson:"bookingAction" json:"bookingAction"`
	LastChecked   *time.Time `bson:"lastChecked,omitempty" json:"lastChecked,omitempty"`
	NextCheck     *time.Time `bson:"nextCheck,omitempty" json:"nextCheck,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// TimeRange is an inclusive HH:MM window.
type TimeRange struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// RunsOn reports whether the automation is scheduled for the given weekday.
func (a Automation) RunsOn(day time.Weekday) bool {
	for _, d := range a.DaysOfWeek {
		if d == int(day) {
			return true
		}
	}
	return false
}

// Interval returns the check interval as a duration.
func (a Automation) Interval() time.Duration {
	return time.Duration(a.CheckInterval) * time.Minute
}
