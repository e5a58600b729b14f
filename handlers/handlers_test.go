package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"
	"time"

	"teemarker/database/repository"
	"teemarker/database/repository/memory"
	"teemarker/handlers"
	"teemarker/models"
	"teemarker/routes"
	"teemarker/services/adapters"
	"teemarker/services/notification"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

const testSecret = "handler-secret"

type fakePlatforms struct {
	teeTimes  []models.TeeTime
	searchErr error
	bookErr   error
	searches  []models.SearchParams
	booked    []models.BookingParams
}

func (f *fakePlatforms) SupportedPlatforms() []string { return []string{"francisbyrne", "rest"} }

func (f *fakePlatforms) IsPlatformSupported(p string) bool {
	return slices.Contains(f.SupportedPlatforms(), p)
}

func (f *fakePlatforms) TestConnection(_ context.Context, course models.Course) bool {
	return course.Platform == "francisbyrne"
}

func (f *fakePlatforms) GetCourseInfo(_ context.Context, course models.Course) (adapters.CourseInfo, error) {
	if course.Platform != "francisbyrne" {
		return nil, nil
	}
	return adapters.CourseInfo{"name": course.Name, "holes": 18}, nil
}

func (f *fakePlatforms) SearchTeeTimes(_ context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error) {
	f.searches = append(f.searches, params)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := slices.Clone(f.teeTimes)
	for i := range out {
		out[i].CourseID = course.ID
	}
	return out, nil
}

func (f *fakePlatforms) BookTeeTime(_ context.Context, course models.Course, tt models.TeeTime, params models.BookingParams) (*models.Booking, error) {
	f.booked = append(f.booked, params)
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &models.Booking{
		ID:        "remote-77",
		CourseID:  course.ID,
		TeeTimeID: tt.ID,
		Status:    models.BookingStatusConfirmed,
		Details:   models.BookingDetails{Date: tt.Date, Time: tt.Time, Players: params.Players},
	}, nil
}

type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	repos     repository.Repositories
	bookings  *memory.Bookings
	teeTimes  *memory.TeeTimes
	platforms *fakePlatforms
	token     string
	other     string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	utils.Logger = zaptest.NewLogger(s.T())

	s.bookings = memory.NewBookings()
	s.teeTimes = memory.NewTeeTimes()
	s.repos = memory.NewRepositories()
	s.repos.Bookings = s.bookings
	s.repos.TeeTimes = s.teeTimes
	s.platforms = &fakePlatforms{
		teeTimes: []models.TeeTime{
			{Date: "2026-03-20", Time: "08:10", AvailableSpots: 4, PlatformID: "11078_0810"},
			{Date: "2026-03-20", Time: "09:30", AvailableSpots: 2, PlatformID: "11078_0930"},
		},
	}

	notifier, err := notification.NewDefaultNotificationService(s.repos.Notifications, utils.Logger)
	s.Require().NoError(err)

	s.router = gin.New()
	s.router.Use(utils.ErrorHandler())
	routes.RegisterRoutes(s.router, handlers.NewHandlerBundle(testSecret, s.repos, s.platforms, notifier), nil)

	s.token, err = utils.GenerateToken(testSecret, "u1", "pat@example.com", "Pat", time.Hour)
	s.Require().NoError(err)
	s.other, err = utils.GenerateToken(testSecret, "u2", "sam@example.com", "Sam", time.Hour)
	s.Require().NoError(err)
}

func (s *HandlerTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// data decodes the "data" field of a success envelope into out.
func (s *HandlerTestSuite) data(rec *httptest.ResponseRecorder, out any) {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	s.Require().True(env.Success, rec.Body.String())
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

func (s *HandlerTestSuite) createCourse(platform string) models.Course {
	rec := s.do(http.MethodPost, "/api/courses", s.token, map[string]any{
		"name":      "Francis A. Byrne",
		"platform":  platform,
		"apiConfig": map[string]any{"baseUrl": "https://foreupsoftware.com"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var course models.Course
	s.data(rec, &course)
	return course
}

func (s *HandlerTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestAuthRequired() {
	for _, path := range []string{"/api/courses", "/api/automations", "/api/tee-times/bookings", "/api/auth/profile", "/api/notifications"} {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code, path)
		s.JSONEq(`{"success":false,"error":"Access token required"}`, rec.Body.String())
	}
}

func (s *HandlerTestSuite) TestCourseLifecycle() {
	course := s.createCourse("francisbyrne")
	s.True(course.IsActive)
	s.NotEmpty(course.ID)

	s.Run("missing fields", func() {
		rec := s.do(http.MethodPost, "/api/courses", s.token, map[string]any{"name": "No platform"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("explicitly inactive", func() {
		rec := s.do(http.MethodPost, "/api/courses", s.token, map[string]any{
			"name": "Closed", "platform": "rest", "apiConfig": map[string]any{}, "isActive": false,
		})
		s.Require().Equal(http.StatusCreated, rec.Code)
		var c models.Course
		s.data(rec, &c)
		s.False(c.IsActive)
	})

	s.Run("partial update", func() {
		rec := s.do(http.MethodPut, "/api/courses/"+course.ID, s.token, map[string]any{"name": "FAB"})
		s.Require().Equal(http.StatusOK, rec.Code)
		var c models.Course
		s.data(rec, &c)
		s.Equal("FAB", c.Name)
		s.Equal("francisbyrne", c.Platform)
	})

	s.Run("test connection", func() {
		rec := s.do(http.MethodPost, "/api/courses/"+course.ID+"/test-connection", s.token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"success":true,"data":{"courseId":"`+course.ID+`","isConnected":true}}`, rec.Body.String())
	})

	s.Run("supported platforms", func() {
		rec := s.do(http.MethodGet, "/api/courses/platforms/supported", s.token, nil)
		s.JSONEq(`{"success":true,"data":["francisbyrne","rest"]}`, rec.Body.String())
	})

	s.Run("course info", func() {
		rec := s.do(http.MethodGet, "/api/courses/"+course.ID+"/info", s.token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var info map[string]any
		s.data(rec, &info)
		s.Equal(float64(18), info["holes"])
	})

	s.Run("delete", func() {
		s.Equal(http.StatusOK, s.do(http.MethodDelete, "/api/courses/"+course.ID, s.token, nil).Code)
		s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/courses/"+course.ID, s.token, nil).Code)
		s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/api/courses/"+course.ID, s.token, nil).Code)
	})
}

func (s *HandlerTestSuite) TestCourseCredentialsAreMasked() {
	rec := s.do(http.MethodPost, "/api/courses", s.token, map[string]any{
		"name":     "Francis A. Byrne",
		"platform": "francisbyrne",
		"apiConfig": map[string]any{
			"auth": map[string]any{"type": "token", "credentials": map[string]string{"username": "pat", "password": "pa$$w0rd"}},
		},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.NotContains(rec.Body.String(), "pa$$w0rd")
	var created models.Course
	s.data(rec, &created)
	s.Equal(models.RedactedValue, created.APIConfig.Auth.Credentials["password"])

	for _, path := range []string{"/api/courses", "/api/courses/" + created.ID} {
		rec := s.do(http.MethodGet, path, s.token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.NotContains(rec.Body.String(), "pa$$w0rd", path)
		s.NotContains(rec.Body.String(), `"pat"`, path)
	}

	// writing back what was read keeps the stored secrets
	rec = s.do(http.MethodPut, "/api/courses/"+created.ID, s.token, map[string]any{"apiConfig": created.APIConfig})
	s.Require().Equal(http.StatusOK, rec.Code)
	stored, err := s.repos.Courses.GetByID(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal("pa$$w0rd", stored.APIConfig.Auth.Credentials.Get("password"))
	s.Equal("pat", stored.APIConfig.Auth.Credentials.Get("username"))
}

func (s *HandlerTestSuite) TestAutomationLifecycle() {
	body := map[string]any{
		"name":          "Weekend mornings",
		"courses":       []string{"c1"},
		"timeRange":     map[string]string{"start": "7:30 AM", "end": "10:00"},
		"daysOfWeek":    []int{6, 0, 6},
		"checkInterval": 15,
		"bookingAction": "notify",
	}
	rec := s.do(http.MethodPost, "/api/automations", s.token, body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Automation
	s.data(rec, &created)
	s.False(created.IsActive, "notify automations start paused")
	s.Equal("u1", created.UserID)
	s.Equal(models.TimeRange{Start: "07:30", End: "10:00"}, created.TimeRange)
	s.Equal([]int{0, 6}, created.DaysOfWeek)

	s.Run("auto-book starts active", func() {
		body := map[string]any{
			"name": "Book it", "courses": []string{"c1"},
			"timeRange": map[string]string{"start": "08:00", "end": "09:00"}, "bookingAction": "auto-book",
		}
		rec := s.do(http.MethodPost, "/api/automations", s.token, body)
		s.Require().Equal(http.StatusCreated, rec.Code)
		var a models.Automation
		s.data(rec, &a)
		s.True(a.IsActive)
		s.Equal(30, a.CheckInterval)
	})

	s.Run("validation", func() {
		bad := []map[string]any{
			{"name": "x", "courses": []string{}, "timeRange": map[string]string{"start": "08:00", "end": "09:00"}},
			{"name": "x", "courses": []string{"c1"}, "timeRange": map[string]string{"start": "10:00", "end": "09:00"}},
			{"name": "x", "courses": []string{"c1"}, "timeRange": map[string]string{"start": "08:00", "end": "09:00"}, "daysOfWeek": []int{7}},
			{"name": "x", "courses": []string{"c1"}, "timeRange": map[string]string{"start": "08:00", "end": "09:00"}, "bookingAction": "call"},
		}
		for _, b := range bad {
			s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/automations", s.token, b).Code, b)
		}
	})

	s.Run("ownership", func() {
		path := "/api/automations/" + created.ID
		s.Equal(http.StatusForbidden, s.do(http.MethodGet, path, s.other, nil).Code)
		s.Equal(http.StatusForbidden, s.do(http.MethodPut, path, s.other, map[string]any{"name": "mine"}).Code)
		s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, s.other, nil).Code)
		s.Equal(http.StatusForbidden, s.do(http.MethodPatch, path+"/toggle", s.other, nil).Code)
	})

	s.Run("list only own", func() {
		var mine, theirs []models.Automation
		s.data(s.do(http.MethodGet, "/api/automations", s.token, nil), &mine)
		s.data(s.do(http.MethodGet, "/api/automations", s.other, nil), &theirs)
		s.Len(mine, 2)
		s.Empty(theirs)
	})

	s.Run("toggle", func() {
		rec := s.do(http.MethodPatch, "/api/automations/"+created.ID+"/toggle", s.token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"success":true,"data":{"id":"`+created.ID+`","isActive":true}}`, rec.Body.String())
	})

	s.Run("update", func() {
		rec := s.do(http.MethodPut, "/api/automations/"+created.ID, s.token, map[string]any{"checkInterval": 45})
		s.Require().Equal(http.StatusOK, rec.Code)
		var a models.Automation
		s.data(rec, &a)
		s.Equal(45, a.CheckInterval)
		s.Equal("Weekend mornings", a.Name)
		s.True(a.IsActive)
	})

	s.Run("delete", func() {
		s.Equal(http.StatusOK, s.do(http.MethodDelete, "/api/automations/"+created.ID, s.token, nil).Code)
		s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/automations/"+created.ID, s.token, nil).Code)
	})
}

func (s *HandlerTestSuite) TestSearchStoresResults() {
	course := s.createCourse("francisbyrne")

	query := url.Values{
		"courseId":  {course.ID},
		"date":      {"03/20/2026"},
		"players":   {"2"},
		"timeRange": {`{"start":"08:00","end":"09:00"}`},
	}
	rec := s.do(http.MethodGet, "/api/tee-times/search?"+query.Encode(), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var found []models.TeeTime
	s.data(rec, &found)
	s.Len(found, 2)

	s.Require().Len(s.platforms.searches, 1)
	params := s.platforms.searches[0]
	s.Equal("2026-03-20", params.Date)
	s.Equal(2, params.Players)
	s.Equal(&models.TimeRange{Start: "08:00", End: "09:00"}, params.TimeRange)

	// a second search refreshes the same records
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID+"&date=2026-03-20", "", nil).Code)
	s.Len(s.teeTimes.All(), 2)

	rec = s.do(http.MethodGet, "/api/tee-times/course/"+course.ID+"?limit=1", "", nil)
	var listed []models.TeeTime
	s.data(rec, &listed)
	s.Len(listed, 1)
}

func (s *HandlerTestSuite) TestSearchErrors() {
	course := s.createCourse("francisbyrne")

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID, "", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID+"&date=2026-03-20&timeRange=nope", "", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/tee-times/search?courseId=missing&date=2026-03-20", "", nil).Code)

	s.platforms.searchErr = adapters.NewError(adapters.ErrRemoteCall, "francisbyrne", "503 Service Unavailable", nil)
	rec := s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID+"&date=2026-03-20", "", nil)
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "503 Service Unavailable")
}

func (s *HandlerTestSuite) TestBookTeeTime() {
	course := s.createCourse("francisbyrne")
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID+"&date=2026-03-20", "", nil).Code)
	slot := s.teeTimes.All()[0]

	rec := s.do(http.MethodPost, "/api/tee-times/book", s.token, map[string]any{
		"teeTimeId":      slot.ID,
		"bookingDetails": map[string]any{"players": 2, "phone": "555-0100"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	s.Require().Len(s.platforms.booked, 1)
	s.Equal(models.BookingParams{
		TeeTimeID: "11078_0810",
		Players:   2,
		UserInfo:  models.UserInfo{Name: "Pat", Email: "pat@example.com", Phone: "555-0100"},
	}, s.platforms.booked[0])

	stored := s.bookings.All()
	s.Require().Len(stored, 1)
	s.Equal("u1", stored[0].UserID)
	s.Equal(slot.ID, stored[0].TeeTimeID)
	s.Equal("remote-77", stored[0].PlatformRef)

	updated, err := s.teeTimes.GetByID(context.Background(), slot.ID)
	s.Require().NoError(err)
	s.Equal(2, updated.AvailableSpots)

	var mine []models.Booking
	s.data(s.do(http.MethodGet, "/api/tee-times/bookings", s.token, nil), &mine)
	s.Len(mine, 1)
}

func (s *HandlerTestSuite) TestBookTeeTimeFailures() {
	course := s.createCourse("francisbyrne")
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/tee-times/search?courseId="+course.ID+"&date=2026-03-20", "", nil).Code)
	slot := s.teeTimes.All()[1]

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/tee-times/book", s.token, map[string]any{"teeTimeId": slot.ID}).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/tee-times/book", s.token, map[string]any{
		"teeTimeId": "missing", "bookingDetails": map[string]any{"players": 1},
	}).Code)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/api/tee-times/book", s.token, map[string]any{
		"teeTimeId": slot.ID, "bookingDetails": map[string]any{"players": 3},
	}).Code)

	s.platforms.bookErr = adapters.NewError(adapters.ErrBookingRejected, "francisbyrne", "Time no longer available", nil)
	rec := s.do(http.MethodPost, "/api/tee-times/book", s.token, map[string]any{
		"teeTimeId": slot.ID, "bookingDetails": map[string]any{"players": 1},
	})
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "Time no longer available")
	s.Empty(s.bookings.All())
}

func (s *HandlerTestSuite) TestProfile() {
	rec := s.do(http.MethodGet, "/api/auth/profile", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var profile models.User
	s.data(rec, &profile)
	s.Equal("u1", profile.ID)
	s.Equal("America/New_York", profile.Preferences.Timezone)
	s.True(profile.Preferences.Notifications.Email)

	rec = s.do(http.MethodPut, "/api/auth/profile", s.token, map[string]any{"name": "Patricia", "phone": "555-0101"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.data(rec, &profile)
	s.Equal("Patricia", profile.Name)
	s.Equal("555-0101", profile.Phone)
	s.True(profile.Preferences.Notifications.Push)

	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/api/auth/profile", s.other, map[string]any{"name": "x"}).Code)
}

func (s *HandlerTestSuite) TestVerifyToken() {
	rec := s.do(http.MethodPost, "/api/auth/verify", "", map[string]string{"token": s.token})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"data":{"uid":"u1","email":"pat@example.com","name":"Pat"}}`, rec.Body.String())

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/auth/verify", "", map[string]string{}).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/verify", "", map[string]string{"token": "x"}).Code)
}

func (s *HandlerTestSuite) TestNotifications() {
	n := models.Notification{UserID: "u1", Type: models.NotificationTypeTeeTimeFound, Title: "Tee Times Available!"}
	s.Require().NoError(s.repos.Notifications.Create(context.Background(), &n))

	var list []models.Notification
	s.data(s.do(http.MethodGet, "/api/notifications", s.token, nil), &list)
	s.Require().Len(list, 1)
	s.False(list[0].IsRead)

	s.Equal(http.StatusNotFound, s.do(http.MethodPatch, "/api/notifications/"+n.ID+"/read", s.other, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPatch, "/api/notifications/"+n.ID+"/read", s.token, nil).Code)

	s.data(s.do(http.MethodGet, "/api/notifications", s.token, nil), &list)
	s.True(list[0].IsRead)
}
