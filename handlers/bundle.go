package handlers

import (
	"teemarker/database/repository"
	"teemarker/services/checker"
	"teemarker/services/notification"

	"github.com/gin-gonic/gin"
)

// HandlerBundle collects every endpoint the router registers.
type HandlerBundle struct {
	JWTSecret string

	// Health
	HealthHandler gin.HandlerFunc

	// Auth / profile endpoints
	GetProfileHandler    gin.HandlerFunc
	UpdateProfileHandler gin.HandlerFunc
	VerifyTokenHandler   gin.HandlerFunc

	// Course endpoints
	ListCoursesHandler        gin.HandlerFunc
	GetCourseHandler          gin.HandlerFunc
	CreateCourseHandler       gin.HandlerFunc
	UpdateCourseHandler       gin.HandlerFunc
	DeleteCourseHandler       gin.HandlerFunc
	TestConnectionHandler     gin.HandlerFunc
	CourseInfoHandler         gin.HandlerFunc
	SupportedPlatformsHandler gin.HandlerFunc

	// Automation endpoints
	ListAutomationsHandler  gin.HandlerFunc
	GetAutomationHandler    gin.HandlerFunc
	CreateAutomationHandler gin.HandlerFunc
	UpdateAutomationHandler gin.HandlerFunc
	DeleteAutomationHandler gin.HandlerFunc
	ToggleAutomationHandler gin.HandlerFunc

	// Tee time endpoints
	SearchTeeTimesHandler gin.HandlerFunc
	CourseTeeTimesHandler gin.HandlerFunc
	BookTeeTimeHandler    gin.HandlerFunc
	ListBookingsHandler   gin.HandlerFunc

	// Notification endpoints
	ListNotificationsHandler gin.HandlerFunc
	MarkNotificationHandler  gin.HandlerFunc
}

// Platforms is the adapter registry as seen by the handlers.
type Platforms interface {
	PlatformDirectory
	checker.Dispatcher
}

// NewHandlerBundle wires every handler to its repositories and services.
func NewHandlerBundle(jwtSecret string, repos repository.Repositories, platforms Platforms, notifications notification.NotificationService) *HandlerBundle {
	courseHandler := NewCourseHandler(repos.Courses, platforms)
	automationHandler := NewAutomationHandler(repos.Automations)
	teeTimeHandler := NewTeeTimeHandler(repos, platforms)
	profileHandler := NewProfileHandler(repos.Users, jwtSecret)
	notificationHandler := NewNotificationHandler(notifications)

	return &HandlerBundle{
		JWTSecret: jwtSecret,

		HealthHandler: HealthHandler,

		GetProfileHandler:    profileHandler.GetProfileHandler,
		UpdateProfileHandler: profileHandler.UpdateProfileHandler,
		VerifyTokenHandler:   profileHandler.VerifyTokenHandler,

		ListCoursesHandler:        courseHandler.ListCoursesHandler,
		GetCourseHandler:          courseHandler.GetCourseHandler,
		CreateCourseHandler:       courseHandler.CreateCourseHandler,
		UpdateCourseHandler:       courseHandler.UpdateCourseHandler,
		DeleteCourseHandler:       courseHandler.DeleteCourseHandler,
		TestConnectionHandler:     courseHandler.TestConnectionHandler,
		CourseInfoHandler:         courseHandler.CourseInfoHandler,
		SupportedPlatformsHandler: courseHandler.SupportedPlatformsHandler,

		ListAutomationsHandler:  automationHandler.ListAutomationsHandler,
		GetAutomationHandler:    automationHandler.GetAutomationHandler,
		CreateAutomationHandler: automationHandler.CreateAutomationHandler,
		UpdateAutomationHandler: automationHandler.UpdateAutomationHandler,
		DeleteAutomationHandler: automationHandler.DeleteAutomationHandler,
		ToggleAutomationHandler: automationHandler.ToggleAutomationHandler,

		SearchTeeTimesHandler: teeTimeHandler.SearchTeeTimesHandler,
		CourseTeeTimesHandler: teeTimeHandler.CourseTeeTimesHandler,
		BookTeeTimeHandler:    teeTimeHandler.BookTeeTimeHandler,
		ListBookingsHandler:   teeTimeHandler.ListBookingsHandler,

		ListNotificationsHandler: notificationHandler.ListNotificationsHandler,
		MarkNotificationHandler:  notificationHandler.MarkNotificationHandler,
	}
}
