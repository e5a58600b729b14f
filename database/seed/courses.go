// Package seed loads the sample course catalogue.
package seed

import (
	"context"

	courseRepo "teemarker/database/repository/course"
	"teemarker/models"

	"github.com/cockroachdb/errors"
)

// SampleCourses returns the built-in course catalogue. Credentials reference
// the process environment and are expanded when an adapter reads them.
func SampleCourses() []models.Course {
	return []models.Course{
		{
			Name:     "Francis A. Byrne Golf Course",
			Platform: "francisbyrne",
			APIConfig: models.APIConfig{
				BaseURL: "https://foreupsoftware.com",
				Endpoints: models.Endpoints{
					Search: "/index.php/api/booking/times",
					Book:   "/index.php/api/booking/reservations",
				},
				Auth: models.AuthConfig{
					Type: models.AuthTypeToken,
					Credentials: models.Credentials{
						"username": "${FRANCIS_BYRNE_USERNAME}",
						"password": "${FRANCIS_BYRNE_PASSWORD}",
					},
				},
			},
			BookingWindow: models.BookingWindow{AdvanceDays: 7, StartTime: "06:00"},
			Timezone:      "America/New_York",
			IsActive:      true,
		},
		{
			Name:     "GolfNow Example Course",
			Platform: "rest",
			APIConfig: models.APIConfig{
				BaseURL: "https://api.golfnow.com",
				Endpoints: models.Endpoints{
					Search: "/tee-times/search",
					Book:   "/tee-times/book",
				},
				Auth: models.AuthConfig{
					Type:        models.AuthTypeAPIKey,
					Credentials: models.Credentials{"apiKey": "${GOLFNOW_API_KEY}"},
				},
			},
			BookingWindow: models.BookingWindow{AdvanceDays: 14, StartTime: "06:00"},
			Timezone:      "America/New_York",
			IsActive:      true,
		},
		{
			Name:     "TeeOff Example Course",
			Platform: "rest",
			APIConfig: models.APIConfig{
				BaseURL: "https://api.teeoff.com",
				Endpoints: models.Endpoints{
					Search: "/tee-times/search",
					Book:   "/tee-times/book",
				},
				Auth: models.AuthConfig{
					Type:            models.AuthTypeOAuth,
					TokenRefreshURL: "/auth/refresh",
					Credentials: models.Credentials{
						"accessToken":  "${TEEOFF_ACCESS_TOKEN}",
						"refreshToken": "${TEEOFF_REFRESH_TOKEN}",
					},
				},
			},
			BookingWindow: models.BookingWindow{AdvanceDays: 10, StartTime: "06:00"},
			Timezone:      "America/New_York",
			IsActive:      true,
		},
	}
}

// Courses inserts every sample course whose name is not stored yet and returns
// how many were created.
func Courses(ctx context.Context, repo courseRepo.CourseRepository) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list courses")
	}
	names := make(map[string]bool, len(existing))
	for _, c := range existing {
		names[c.Name] = true
	}

	created := 0
	for _, course := range SampleCourses() {
		if names[course.Name] {
			continue
		}
		if err := repo.Create(ctx, &course); err != nil {
			return created, errors.Wrapf(err, "create course %q", course.Name)
		}
		created++
	}
	return created, nil
}
