package checker

import (
	"fmt"
	"math/rand/v2"
	"time"

	"teemarker/models"
	"teemarker/services/normalize"
)

const defaultAdvanceDays = 7

// placeholderHours are the clock times offered by synthetic data.
var placeholderHours = []string{"08:00", "09:00", "10:00", "11:00"}

func (s *DefaultCheckService) intn(n int) int {
	if s.Intn != nil {
		return s.Intn(n)
	}
	return rand.IntN(n)
}

// syntheticSlots builds placeholder availability for every scheduled day of
// the course booking window. The slots are demonstration data only: they are
// flagged, never stored and never booked.
func (s *DefaultCheckService) syntheticSlots(automation models.Automation, course models.Course, now time.Time) []models.TeeTime {
	days := course.BookingWindow.AdvanceDays
	if days <= 0 {
		days = defaultAdvanceDays
	}

	today := now.In(course.Location())
	var slots []models.TeeTime
	for i := 0; i <= days; i++ {
		day := today.AddDate(0, 0, i)
		if !automation.RunsOn(day.Weekday()) {
			continue
		}
		date := day.Format(normalize.DateLayout)
		for _, clock := range placeholderHours {
			if !normalize.IsTimeInRange(clock, &automation.TimeRange) {
				continue
			}
			price := float64(30 + s.intn(50))
			id := fmt.Sprintf("placeholder_%s_%s_%s", course.ID, date, clock)
			slots = append(slots, models.TeeTime{
				ID:             id,
				CourseID:       course.ID,
				Date:           date,
				Time:           clock,
				AvailableSpots: 1 + s.intn(4),
				Price:          &price,
				PlatformID:     id,
				Placeholder:    true,
				LastChecked:    now,
				CreatedAt:      now,
			})
		}
	}
	return slots
}
