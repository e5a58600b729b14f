// Package adapters implements the per-platform tee time protocols and the
// registry that dispatches course calls to them.
package adapters

import (
	"context"
	"strings"

	"teemarker/models"
)

// Adapter is the capability every booking platform must support.
type Adapter interface {
	// SearchTeeTimes returns slots with at least params.PlayerCount() seats.
	SearchTeeTimes(ctx context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error)
	// BookTeeTime returns a confirmed booking or fails; it never returns a failed booking.
	BookTeeTime(ctx context.Context, course models.Course, teeTime models.TeeTime, params models.BookingParams) (*models.Booking, error)
}

// TokenRefresher re-establishes platform authentication.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, course models.Course) error
}

// AuthChecker reports whether the adapter currently holds usable credentials.
type AuthChecker interface {
	IsAuthenticated(ctx context.Context, course models.Course) bool
}

// CourseInfoProvider describes the facility behind a course.
type CourseInfoProvider interface {
	GetCourseInfo(ctx context.Context, course models.Course) (CourseInfo, error)
}

type CourseInfo map[string]any

// Capabilities records which optional interfaces an adapter implements. It is
// computed once when the adapter is constructed.
type Capabilities struct {
	Refresh    bool `json:"refresh"`
	AuthCheck  bool `json:"authCheck"`
	CourseInfo bool `json:"courseInfo"`
}

func capabilitiesOf(a Adapter) Capabilities {
	_, refresh := a.(TokenRefresher)
	_, check := a.(AuthChecker)
	_, info := a.(CourseInfoProvider)
	return Capabilities{Refresh: refresh, AuthCheck: check, CourseInfo: info}
}

func (c Capabilities) String() string {
	var parts []string
	if c.Refresh {
		parts = append(parts, "refresh")
	}
	if c.AuthCheck {
		parts = append(parts, "auth-check")
	}
	if c.CourseInfo {
		parts = append(parts, "course-info")
	}
	if len(parts) == 0 {
		return "basic"
	}
	return strings.Join(parts, "+")
}
