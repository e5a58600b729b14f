package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"teemarker/database/repository"
	"teemarker/models"
	"teemarker/services/checker"
	"teemarker/services/normalize"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTeeTimeLimit = 10

type TeeTimeHandler struct {
	Courses    repository.CourseRepository
	TeeTimes   repository.TeeTimeRepository
	Bookings   repository.BookingRepository
	Users      repository.UserRepository
	Dispatcher checker.Dispatcher
	Now        func() time.Time
}

func NewTeeTimeHandler(repos repository.Repositories, dispatcher checker.Dispatcher) *TeeTimeHandler {
	return &TeeTimeHandler{
		Courses:    repos.Courses,
		TeeTimes:   repos.TeeTimes,
		Bookings:   repos.Bookings,
		Users:      repos.Users,
		Dispatcher: dispatcher,
		Now:        time.Now,
	}
}

// SearchTeeTimesHandler runs a live search and stores what it finds.
// Query: courseId, date (required), timeRange (JSON), players.
func (h *TeeTimeHandler) SearchTeeTimesHandler(c *gin.Context) {
	courseID, date := c.Query("courseId"), c.Query("date")
	if courseID == "" || date == "" {
		utils.JSONError(c, http.StatusBadRequest, "Course ID and date are required", "")
		return
	}

	params := models.SearchParams{Date: normalize.ParseDate(date)}
	if raw := c.Query("timeRange"); raw != "" {
		var tr models.TimeRange
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid timeRange", err.Error())
			return
		}
		params.TimeRange = &tr
	}
	if raw := c.Query("players"); raw != "" {
		players, err := strconv.Atoi(raw)
		if err != nil || players < 1 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid players", raw)
			return
		}
		params.Players = players
	}

	ctx := c.Request.Context()
	course, err := h.Courses.GetByID(ctx, courseID)
	if err != nil {
		storeError(c, err, "Course not found", "Failed to search tee times")
		return
	}

	teeTimes, err := h.Dispatcher.SearchTeeTimes(ctx, *course, params)
	if err != nil {
		platformError(c, err, "Failed to search tee times")
		return
	}

	now := h.Now()
	for i := range teeTimes {
		teeTimes[i].CourseID = course.ID
		teeTimes[i].LastChecked = now
		if err := h.TeeTimes.Upsert(ctx, &teeTimes[i]); err != nil {
			getLogger(c).Warn("Failed to store tee time",
				zap.String("courseId", course.ID),
				zap.String("platformId", teeTimes[i].PlatformID),
				zap.Error(err),
			)
		}
	}
	if teeTimes == nil {
		teeTimes = []models.TeeTime{}
	}
	ok(c, http.StatusOK, teeTimes)
}

// CourseTeeTimesHandler lists the most recently seen slots of a course.
func (h *TeeTimeHandler) CourseTeeTimesHandler(c *gin.Context) {
	limit := int64(defaultTeeTimeLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = n
	}
	teeTimes, err := h.TeeTimes.ListByCourse(c.Request.Context(), c.Param("courseId"), limit)
	if err != nil {
		storeError(c, err, "", "Failed to fetch course tee times")
		return
	}
	ok(c, http.StatusOK, teeTimes)
}

type bookTeeTimeInput struct {
	TeeTimeID      string `json:"teeTimeId"`
	BookingDetails *struct {
		Players int    `json:"players"`
		Phone   string `json:"phone"`
	} `json:"bookingDetails"`
}

// BookTeeTimeHandler books a stored slot for the caller.
func (h *TeeTimeHandler) BookTeeTimeHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	var in bookTeeTimeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if in.TeeTimeID == "" || in.BookingDetails == nil {
		utils.JSONError(c, http.StatusBadRequest, "Tee time ID and booking details are required", "")
		return
	}
	players := in.BookingDetails.Players
	if players < 1 {
		utils.JSONError(c, http.StatusBadRequest, "Invalid players", "players must be at least 1")
		return
	}

	ctx := c.Request.Context()
	teeTime, err := h.TeeTimes.GetByID(ctx, in.TeeTimeID)
	if err != nil {
		storeError(c, err, "Tee time not found", "Failed to book tee time")
		return
	}
	if teeTime.AvailableSpots < players {
		utils.JSONError(c, http.StatusConflict, "Not enough available spots", "")
		return
	}
	course, err := h.Courses.GetByID(ctx, teeTime.CourseID)
	if err != nil {
		storeError(c, err, "Course not found", "Failed to book tee time")
		return
	}

	info := models.UserInfo{Name: user.Name, Email: user.Email}
	if profile, err := h.Users.GetByID(ctx, user.ID); err == nil {
		info = profile.ContactInfo()
	}
	if info.Name == "" {
		info.Name = "User"
	}
	if in.BookingDetails.Phone != "" {
		info.Phone = in.BookingDetails.Phone
	}

	platformID := teeTime.PlatformID
	if platformID == "" {
		platformID = teeTime.ID
	}
	booking, err := h.Dispatcher.BookTeeTime(ctx, *course, *teeTime, models.BookingParams{
		TeeTimeID: platformID,
		Players:   players,
		UserInfo:  info,
	})
	if err != nil {
		platformError(c, err, "Failed to book tee time")
		return
	}

	booking.UserID = user.ID
	booking.CourseID = course.ID
	booking.TeeTimeID = teeTime.ID
	if err := h.Bookings.Create(ctx, booking); err != nil {
		storeError(c, err, "", "Failed to store booking")
		return
	}
	if err := h.TeeTimes.DecrementSpots(ctx, teeTime.ID, players); err != nil {
		getLogger(c).Warn("Failed to update tee time availability", zap.String("teeTimeId", teeTime.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    booking,
		"message": "Booking created successfully",
	})
}

func (h *TeeTimeHandler) ListBookingsHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	bookings, err := h.Bookings.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		storeError(c, err, "", "Failed to fetch bookings")
		return
	}
	ok(c, http.StatusOK, bookings)
}
