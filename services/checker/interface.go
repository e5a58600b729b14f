// Package checker runs one polling cycle of an automation: search every course,
// persist and filter what was found, book and notify, then reschedule.
package checker

import (
	"context"
	"strings"

	"teemarker/models"
)

// FallbackPolicy decides what happens when a course search fails remotely.
type FallbackPolicy string

const (
	// FallbackSynthetic notifies placeholder slots built from the automation window.
	FallbackSynthetic FallbackPolicy = "synthetic"
	// FallbackNone only logs the failure.
	FallbackNone FallbackPolicy = "none"
)

// ParseFallbackPolicy maps configuration values, defaulting to synthetic.
func ParseFallbackPolicy(v string) FallbackPolicy {
	if FallbackPolicy(strings.ToLower(strings.TrimSpace(v))) == FallbackNone {
		return FallbackNone
	}
	return FallbackSynthetic
}

// Dispatcher is the part of the adapter registry the checker drives.
type Dispatcher interface {
	SearchTeeTimes(ctx context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error)
	BookTeeTime(ctx context.Context, course models.Course, teeTime models.TeeTime, params models.BookingParams) (*models.Booking, error)
}

// CheckService is invoked by the scheduler once per due automation.
type CheckService interface {
	CheckAutomation(ctx context.Context, automationID string) (*Report, error)
}

type Options struct {
	Fallback          FallbackPolicy
	RecheckBeforeBook bool
}

// Skip reasons reported when a cycle, or one course of it, stops before searching.
const (
	SkipInactive        = "inactive"
	SkipNotScheduled    = "not scheduled today"
	SkipNoActiveCourses = "no active courses"
)

// Report summarizes a cycle.
type Report struct {
	AutomationID string         `json:"automationId"`
	Skipped      string         `json:"skipped,omitempty"`
	Courses      []CourseResult `json:"courses,omitempty"`
}

// CourseResult is the outcome of one course within a cycle.
type CourseResult struct {
	CourseID  string `json:"courseId"`
	Skipped   string `json:"skipped,omitempty"`
	Found     int    `json:"found"`
	Matches   int    `json:"matches"`
	Fallback  bool   `json:"fallback"`
	Notified  bool   `json:"notified"`
	BookingID string `json:"bookingId,omitempty"`
	Err       error  `json:"-"`
}
