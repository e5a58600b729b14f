package checker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"teemarker/database"
	"teemarker/database/repository"
	"teemarker/database/repository/memory"
	"teemarker/models"
	"teemarker/services/adapters"
	"teemarker/services/notification"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// 2026-03-17 is a Tuesday.
var tuesday = time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)

type scriptedAdapter struct {
	mu       sync.Mutex
	results  [][]models.TeeTime // one per search; the last one repeats
	searches []models.SearchParams
	booked   []string
	bookErr  error
	panics   bool
}

func (a *scriptedAdapter) SearchTeeTimes(_ context.Context, _ models.Course, params models.SearchParams) ([]models.TeeTime, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.panics {
		panic("unexpected payload")
	}
	a.searches = append(a.searches, params)
	i := min(len(a.searches), len(a.results)) - 1
	if i < 0 {
		return nil, nil
	}
	return slices.Clone(a.results[i]), nil
}

func (a *scriptedAdapter) BookTeeTime(_ context.Context, course models.Course, tt models.TeeTime, params models.BookingParams) (*models.Booking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.booked = append(a.booked, params.TeeTimeID)
	if a.bookErr != nil {
		return nil, a.bookErr
	}
	return &models.Booking{
		ID:       "remote-1",
		CourseID: course.ID,
		Status:   models.BookingStatusConfirmed,
		Details:  models.BookingDetails{Date: tt.Date, Time: tt.Time, Players: params.Players},
	}, nil
}

func (a *scriptedAdapter) searchCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.searches)
}

type downAdapter struct{}

func (downAdapter) SearchTeeTimes(context.Context, models.Course, models.SearchParams) ([]models.TeeTime, error) {
	return nil, adapters.NewError(adapters.ErrRemoteCall, "down", "502 Bad Gateway", nil)
}

func (downAdapter) BookTeeTime(context.Context, models.Course, models.TeeTime, models.BookingParams) (*models.Booking, error) {
	return nil, errors.New("not reachable")
}

// lockedAdapter never holds a session and its login is refused.
type lockedAdapter struct {
	refreshes atomic.Int32
	searches  atomic.Int32
}

func (a *lockedAdapter) SearchTeeTimes(context.Context, models.Course, models.SearchParams) ([]models.TeeTime, error) {
	a.searches.Add(1)
	return nil, nil
}

func (a *lockedAdapter) BookTeeTime(context.Context, models.Course, models.TeeTime, models.BookingParams) (*models.Booking, error) {
	return nil, errors.New("not reachable")
}

func (a *lockedAdapter) IsAuthenticated(context.Context, models.Course) bool { return false }

func (a *lockedAdapter) RefreshToken(context.Context, models.Course) error {
	a.refreshes.Add(1)
	return adapters.NewError(adapters.ErrAuthentication, "locked", "401 Unauthorized", nil)
}

func slot(id, clock string, spots int) models.TeeTime {
	return models.TeeTime{ID: id, PlatformID: id, CourseID: "live-course", Date: "2026-03-17", Time: clock, AvailableSpots: spots}
}

var liveSlots = []models.TeeTime{
	slot("p1", "08:10", 4),
	slot("p2", "08:20", 2),
	slot("p3", "09:30", 1),
	slot("p4", "11:00", 4),
	slot("p5", "09:40", 0),
}

type fixture struct {
	svc           *DefaultCheckService
	live          *scriptedAdapter
	locked        *lockedAdapter
	automations   repository.AutomationRepository
	courses       repository.CourseRepository
	teeTimes      *memory.TeeTimes
	bookings      *memory.Bookings
	notifications *memory.Notifications
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := t.Context()
	logger := zaptest.NewLogger(t)

	f := &fixture{
		live:          &scriptedAdapter{results: [][]models.TeeTime{liveSlots}},
		locked:        &lockedAdapter{},
		automations:   memory.NewAutomations(),
		courses:       memory.NewCourses(),
		teeTimes:      memory.NewTeeTimes(),
		bookings:      memory.NewBookings(),
		notifications: memory.NewNotifications(),
	}

	registry := adapters.NewRegistry(adapters.Deps{Logger: logger}, adapters.Settings{CallTimeout: time.Second})
	registry.Register("live", func(adapters.Deps) adapters.Adapter { return f.live })
	registry.Register("down", func(adapters.Deps) adapters.Adapter { return downAdapter{} })
	registry.Register("locked", func(adapters.Deps) adapters.Adapter { return f.locked })

	users := memory.NewUsers()
	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Email: "pat@example.com", Name: "Pat"}))

	for _, c := range []models.Course{
		{ID: "live-course", Name: "Live Course", Platform: "live", IsActive: true, Timezone: "UTC", BookingWindow: models.BookingWindow{AdvanceDays: 2}},
		{ID: "down-course", Name: "Down Course", Platform: "down", IsActive: true, BookingWindow: models.BookingWindow{AdvanceDays: 2}},
		{ID: "unknown-course", Name: "Unknown Course", Platform: "teeitup", IsActive: true},
		{ID: "locked-course", Name: "Locked Course", Platform: "locked", IsActive: true, BookingWindow: models.BookingWindow{AdvanceDays: 2}},
		{ID: "closed-course", Name: "Closed Course", Platform: "live", IsActive: false},
	} {
		require.NoError(t, f.courses.Create(ctx, &c))
	}

	notifier, err := notification.NewDefaultNotificationService(f.notifications, logger)
	require.NoError(t, err)

	f.svc = &DefaultCheckService{
		Automations: f.automations,
		Courses:     f.courses,
		TeeTimes:    f.teeTimes,
		Bookings:    f.bookings,
		Users:       users,
		Notifier:    notifier,
		Dispatcher:  registry,
		Options:     opts,
		Logger:      logger,
		Now:         func() time.Time { return tuesday },
		Intn:        func(int) int { return 0 },
	}
	return f
}

func (f *fixture) addAutomation(t *testing.T, mutate func(a *models.Automation)) string {
	t.Helper()
	a := &models.Automation{
		ID:            "auto-1",
		UserID:        "u1",
		Name:          "Weekday mornings",
		Courses:       []string{"live-course"},
		TimeRange:     models.TimeRange{Start: "08:00", End: "10:00"},
		DaysOfWeek:    []int{2},
		CheckInterval: 30,
		IsActive:      true,
		BookingAction: models.BookingActionNotify,
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(t, f.automations.Create(t.Context(), a))
	return a.ID
}

func (f *fixture) assertRescheduled(t *testing.T, id string) {
	t.Helper()
	a, err := f.automations.GetByID(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, a.LastChecked)
	require.NotNil(t, a.NextCheck)
	assert.True(t, a.LastChecked.Equal(tuesday))
	assert.True(t, a.NextCheck.Equal(tuesday.Add(30*time.Minute)))
}

func (f *fixture) assertNotRescheduled(t *testing.T, id string) {
	t.Helper()
	a, err := f.automations.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Nil(t, a.LastChecked)
	assert.Nil(t, a.NextCheck)
}

func TestCheckAutomationNotifiesMatches(t *testing.T) {
	f := newFixture(t, Options{Fallback: FallbackSynthetic})
	id := f.addAutomation(t, nil)

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)

	result := report.Courses[0]
	assert.NoError(t, result.Err)
	assert.Equal(t, 5, result.Found)
	assert.Equal(t, 3, result.Matches)
	assert.True(t, result.Notified)
	assert.False(t, result.Fallback)

	require.Len(t, f.live.searches, 1)
	assert.Equal(t, "2026-03-17", f.live.searches[0].Date)
	assert.Equal(t, 1, f.live.searches[0].Players)

	assert.Len(t, f.teeTimes.All(), 5)
	assert.Empty(t, f.bookings.All())

	notes := f.notifications.All()
	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, models.NotificationTypeTeeTimeFound, n.Type)
	assert.Equal(t, "Tee Times Available!", n.Title)
	assert.Equal(t, "Found 3 tee times matching your criteria at Live Course", n.Message)
	assert.Equal(t, "auto-1", n.Data.AutomationID)
	assert.False(t, n.Data.Placeholder)
	var times []string
	for _, tt := range n.Data.TeeTimes {
		times = append(times, tt.Time)
	}
	assert.Equal(t, []string{"08:10", "08:20", "09:30"}, times)

	f.assertRescheduled(t, id)
}

func TestCheckAutomationRepeatedCyclesDoNotDuplicateSlots(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.addAutomation(t, nil)

	for range 3 {
		_, err := f.svc.CheckAutomation(t.Context(), id)
		require.NoError(t, err)
	}
	assert.Len(t, f.teeTimes.All(), 5)
	assert.Len(t, f.notifications.All(), 3)
}

func TestCheckAutomationSkipsUnscheduledDay(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.addAutomation(t, func(a *models.Automation) { a.DaysOfWeek = []int{1, 3, 5} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, SkipNotScheduled, report.Skipped)
	assert.Zero(t, f.live.searchCount())
	f.assertNotRescheduled(t, id)
}

func TestCheckAutomationSkipsInactive(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.addAutomation(t, func(a *models.Automation) { a.IsActive = false })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, SkipInactive, report.Skipped)
	assert.Zero(t, f.live.searchCount())
	f.assertNotRescheduled(t, id)
}

func TestCheckAutomationWithoutActiveCourses(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.addAutomation(t, func(a *models.Automation) { a.Courses = []string{"closed-course", "deleted-course"} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, SkipNoActiveCourses, report.Skipped)
	f.assertNotRescheduled(t, id)
}

func TestCheckAutomationMissing(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.CheckAutomation(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestRemoteFailureFallsBackAndContinues(t *testing.T) {
	f := newFixture(t, Options{Fallback: FallbackSynthetic})
	id := f.addAutomation(t, func(a *models.Automation) { a.Courses = []string{"down-course", "live-course"} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 2)

	down := report.Courses[0]
	assert.Equal(t, "down-course", down.CourseID)
	assert.True(t, errors.Is(down.Err, adapters.ErrRemoteCall))
	assert.True(t, down.Fallback)
	assert.True(t, down.Notified)
	// Tuesday only within the three day window, 08:00 to 10:00
	assert.Equal(t, 3, down.Matches)

	live := report.Courses[1]
	assert.NoError(t, live.Err)
	assert.True(t, live.Notified)

	notes := f.notifications.All()
	require.Len(t, notes, 2)
	assert.True(t, notes[0].Data.Placeholder)
	assert.Equal(t, "down-course", notes[0].Data.CourseID)
	require.Len(t, notes[0].Data.TeeTimes, 3)
	assert.Equal(t, 1, notes[0].Data.TeeTimes[0].AvailableSpots)
	assert.InDelta(t, 30.0, *notes[0].Data.TeeTimes[0].Price, 0.001)
	assert.False(t, notes[1].Data.Placeholder)

	// placeholders are never stored
	for _, tt := range f.teeTimes.All() {
		assert.Equal(t, "live-course", tt.CourseID)
	}
	f.assertRescheduled(t, id)
}

func TestFallbackNoneOnlyLogs(t *testing.T) {
	f := newFixture(t, Options{Fallback: FallbackNone})
	id := f.addAutomation(t, func(a *models.Automation) { a.Courses = []string{"down-course"} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)
	assert.False(t, report.Courses[0].Fallback)
	assert.Empty(t, f.notifications.All())
	f.assertRescheduled(t, id)
}

func TestUnsupportedPlatformDoesNotBlockOtherCourses(t *testing.T) {
	f := newFixture(t, Options{Fallback: FallbackSynthetic})
	id := f.addAutomation(t, func(a *models.Automation) { a.Courses = []string{"unknown-course", "live-course"} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 2)

	assert.True(t, errors.Is(report.Courses[0].Err, adapters.ErrUnsupportedPlatform))
	assert.False(t, report.Courses[0].Fallback)
	assert.True(t, report.Courses[1].Notified)

	notes := f.notifications.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "live-course", notes[0].Data.CourseID)
}

func TestAuthenticationFailureEndsCourseWithoutFallback(t *testing.T) {
	f := newFixture(t, Options{Fallback: FallbackSynthetic})
	id := f.addAutomation(t, func(a *models.Automation) { a.Courses = []string{"locked-course", "live-course"} })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 2)

	locked := report.Courses[0]
	assert.Equal(t, "locked-course", locked.CourseID)
	assert.True(t, errors.Is(locked.Err, adapters.ErrAuthentication), locked.Err)
	assert.False(t, locked.Fallback)
	assert.False(t, locked.Notified)
	assert.Zero(t, locked.Matches)
	assert.EqualValues(t, 1, f.locked.refreshes.Load(), "one refresh attempt")
	assert.Zero(t, f.locked.searches.Load())

	live := report.Courses[1]
	assert.NoError(t, live.Err)
	assert.True(t, live.Notified)
	assert.Equal(t, 1, f.live.searchCount())

	notes := f.notifications.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "live-course", notes[0].Data.CourseID)
	assert.False(t, notes[0].Data.Placeholder)
	f.assertRescheduled(t, id)
}

func TestCourseSearchesItsOwnLocalDay(t *testing.T) {
	// Tuesday 02:00 UTC is still Monday evening in New York
	lateNight := time.Date(2026, 3, 17, 2, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		days        []int
		wantSkipped string
		wantDate    string
	}{
		{name: "local day not scheduled", days: []int{2}, wantSkipped: SkipNotScheduled},
		{name: "local day scheduled", days: []int{1, 2}, wantDate: "2026-03-16"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Fallback: FallbackSynthetic})
			f.svc.Now = func() time.Time { return lateNight }
			eastern := &models.Course{ID: "eastern-course", Name: "Eastern Course", Platform: "live", IsActive: true, Timezone: "America/New_York"}
			require.NoError(t, f.courses.Create(t.Context(), eastern))
			id := f.addAutomation(t, func(a *models.Automation) {
				a.Courses = []string{"eastern-course"}
				a.DaysOfWeek = tc.days
			})

			report, err := f.svc.CheckAutomation(t.Context(), id)
			require.NoError(t, err)
			require.Len(t, report.Courses, 1)
			assert.Equal(t, tc.wantSkipped, report.Courses[0].Skipped)
			assert.NoError(t, report.Courses[0].Err)

			if tc.wantSkipped != "" {
				assert.Zero(t, f.live.searchCount())
				assert.Empty(t, f.notifications.All())
			} else {
				require.Equal(t, 1, f.live.searchCount())
				assert.Equal(t, tc.wantDate, f.live.searches[0].Date)
			}

			a, err := f.automations.GetByID(t.Context(), id)
			require.NoError(t, err)
			require.NotNil(t, a.LastChecked)
			assert.True(t, a.LastChecked.Equal(lateNight))
		})
	}
}

func TestAutoBookBooksOnlyTheFirstMatch(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.addAutomation(t, func(a *models.Automation) { a.BookingAction = models.BookingActionAutoBook })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, f.live.booked)

	bookings := f.bookings.All()
	require.Len(t, bookings, 1)
	b := bookings[0]
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, "auto-1", b.AutomationID)
	assert.Equal(t, "live-course", b.CourseID)
	assert.Equal(t, "remote-1", b.PlatformRef)
	assert.Equal(t, b.ID, report.Courses[0].BookingID)

	stored, err := f.teeTimes.GetByID(t.Context(), b.TeeTimeID)
	require.NoError(t, err)
	assert.Equal(t, "p1", stored.PlatformID)
	assert.Equal(t, 3, stored.AvailableSpots)

	assert.Len(t, f.notifications.All(), 1)
	f.assertRescheduled(t, id)
}

func TestAutoBookRejectedStoresNoBooking(t *testing.T) {
	f := newFixture(t, Options{})
	f.live.bookErr = adapters.NewError(adapters.ErrBookingRejected, "live", "Slot taken", nil)
	id := f.addAutomation(t, func(a *models.Automation) { a.BookingAction = models.BookingActionAutoBook })

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, f.live.booked)
	assert.Empty(t, f.bookings.All())
	assert.Empty(t, report.Courses[0].BookingID)
	assert.True(t, report.Courses[0].Notified)
	f.assertRescheduled(t, id)
}

func TestAutoBookRechecksBeforeBooking(t *testing.T) {
	t.Run("slot gone", func(t *testing.T) {
		f := newFixture(t, Options{RecheckBeforeBook: true})
		f.live.results = [][]models.TeeTime{liveSlots, {slot("p2", "08:20", 2)}}
		id := f.addAutomation(t, func(a *models.Automation) { a.BookingAction = models.BookingActionAutoBook })

		_, err := f.svc.CheckAutomation(t.Context(), id)
		require.NoError(t, err)
		assert.Equal(t, 2, f.live.searchCount())
		assert.Empty(t, f.live.booked)
		assert.Empty(t, f.bookings.All())
		assert.Len(t, f.notifications.All(), 1)
	})

	t.Run("slot still open", func(t *testing.T) {
		f := newFixture(t, Options{RecheckBeforeBook: true})
		id := f.addAutomation(t, func(a *models.Automation) { a.BookingAction = models.BookingActionAutoBook })

		_, err := f.svc.CheckAutomation(t.Context(), id)
		require.NoError(t, err)
		assert.Equal(t, 2, f.live.searchCount())
		assert.Equal(t, []string{"p1"}, f.live.booked)
		assert.Len(t, f.bookings.All(), 1)
	})
}

func TestCourseCheckPanicIsContained(t *testing.T) {
	f := newFixture(t, Options{})
	f.live.panics = true
	id := f.addAutomation(t, nil)

	report, err := f.svc.CheckAutomation(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)
	require.Error(t, report.Courses[0].Err)
	assert.Contains(t, report.Courses[0].Err.Error(), "panic")
	f.assertRescheduled(t, id)
}

func TestParseFallbackPolicy(t *testing.T) {
	assert.Equal(t, FallbackNone, ParseFallbackPolicy(" NONE "))
	assert.Equal(t, FallbackSynthetic, ParseFallbackPolicy("synthetic"))
	assert.Equal(t, FallbackSynthetic, ParseFallbackPolicy(""))
}
