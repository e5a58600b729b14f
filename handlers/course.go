package handlers

import (
	"context"
	"net/http"
	"time"

	courseRepo "teemarker/database/repository/course"
	"teemarker/models"
	"teemarker/services/adapters"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlatformDirectory is the part of the adapter registry the course endpoints use.
type PlatformDirectory interface {
	SupportedPlatforms() []string
	IsPlatformSupported(platform string) bool
	TestConnection(ctx context.Context, course models.Course) bool
	GetCourseInfo(ctx context.Context, course models.Course) (adapters.CourseInfo, error)
}

type CourseHandler struct {
	Courses   courseRepo.CourseRepository
	Platforms PlatformDirectory
}

func NewCourseHandler(courses courseRepo.CourseRepository, platforms PlatformDirectory) *CourseHandler {
	return &CourseHandler{Courses: courses, Platforms: platforms}
}

type courseInput struct {
	Name          *string               `json:"name"`
	Platform      *string               `json:"platform"`
	APIConfig     *models.APIConfig     `json:"apiConfig"`
	BookingWindow *models.BookingWindow `json:"bookingWindow"`
	Timezone      *string               `json:"timezone"`
	IsActive      *bool                 `json:"isActive"`
}

func (in courseInput) validTimezone() bool {
	if in.Timezone == nil || *in.Timezone == "" {
		return true
	}
	_, err := time.LoadLocation(*in.Timezone)
	return err == nil
}

func (in courseInput) apply(course *models.Course) {
	if in.Name != nil {
		course.Name = *in.Name
	}
	if in.Platform != nil {
		course.Platform = *in.Platform
	}
	if in.APIConfig != nil {
		previous := course.APIConfig.Auth.Credentials
		course.APIConfig = *in.APIConfig
		// a masked value echoed back from a read keeps the stored secret
		for k, v := range course.APIConfig.Auth.Credentials {
			if v == models.RedactedValue {
				course.APIConfig.Auth.Credentials[k] = previous[k]
			}
		}
	}
	if in.BookingWindow != nil {
		course.BookingWindow = *in.BookingWindow
	}
	if in.Timezone != nil {
		course.Timezone = *in.Timezone
	}
	if in.IsActive != nil {
		course.IsActive = *in.IsActive
	}
}

func (h *CourseHandler) ListCoursesHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	courses, err := h.Courses.List(c.Request.Context())
	if err != nil {
		storeError(c, err, "", "Failed to fetch courses")
		return
	}
	redacted := make([]models.Course, len(courses))
	for i, course := range courses {
		redacted[i] = course.Redacted()
	}
	ok(c, http.StatusOK, redacted)
}

func (h *CourseHandler) GetCourseHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	course, err := h.Courses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Course not found", "Failed to fetch course")
		return
	}
	ok(c, http.StatusOK, course.Redacted())
}

func (h *CourseHandler) CreateCourseHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	var in courseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if in.Name == nil || *in.Name == "" || in.Platform == nil || *in.Platform == "" || in.APIConfig == nil {
		utils.JSONError(c, http.StatusBadRequest, "Missing required fields", "name, platform and apiConfig are required")
		return
	}
	if !in.validTimezone() {
		utils.JSONError(c, http.StatusBadRequest, "Invalid timezone", *in.Timezone)
		return
	}

	course := models.Course{IsActive: true}
	in.apply(&course)
	if !h.Platforms.IsPlatformSupported(course.Platform) {
		getLogger(c).Warn("Course created for unsupported platform", zap.String("platform", course.Platform))
	}
	if err := h.Courses.Create(c.Request.Context(), &course); err != nil {
		storeError(c, err, "", "Failed to create course")
		return
	}
	ok(c, http.StatusCreated, course.Redacted())
}

func (h *CourseHandler) UpdateCourseHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	var in courseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if !in.validTimezone() {
		utils.JSONError(c, http.StatusBadRequest, "Invalid timezone", *in.Timezone)
		return
	}

	ctx := c.Request.Context()
	course, err := h.Courses.GetByID(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "Course not found", "Failed to update course")
		return
	}
	in.apply(course)
	if err := h.Courses.Update(ctx, course); err != nil {
		storeError(c, err, "Course not found", "Failed to update course")
		return
	}
	ok(c, http.StatusOK, course.Redacted())
}

func (h *CourseHandler) DeleteCourseHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	if err := h.Courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Course not found", "Failed to delete course")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course deleted successfully"})
}

func (h *CourseHandler) TestConnectionHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	ctx := c.Request.Context()
	course, err := h.Courses.GetByID(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "Course not found", "Failed to test course connection")
		return
	}
	connected := h.Platforms.TestConnection(ctx, *course)
	ok(c, http.StatusOK, gin.H{"courseId": course.ID, "isConnected": connected})
}

// CourseInfoHandler returns platform-provided course details, or null when the
// platform has none.
func (h *CourseHandler) CourseInfoHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	ctx := c.Request.Context()
	course, err := h.Courses.GetByID(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "Course not found", "Failed to fetch course info")
		return
	}
	info, err := h.Platforms.GetCourseInfo(ctx, *course)
	if err != nil {
		platformError(c, err, "Failed to fetch course info")
		return
	}
	ok(c, http.StatusOK, info)
}

func (h *CourseHandler) SupportedPlatformsHandler(c *gin.Context) {
	if _, found := requireUser(c); !found {
		return
	}
	ok(c, http.StatusOK, h.Platforms.SupportedPlatforms())
}
