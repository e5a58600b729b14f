package routes

import (
	"slices"
	"time"

	"teemarker/handlers"
	"teemarker/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers profile endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/verify", hb.VerifyTokenHandler)

		// Protected routes (Require Authentication)
		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		protected.GET("/profile", hb.GetProfileHandler)
		protected.PUT("/profile", hb.UpdateProfileHandler)
	}
}

// RegisterCourseRoutes registers course management endpoints.
func RegisterCourseRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/courses")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		api.GET("", hb.ListCoursesHandler)
		api.GET("/platforms/supported", hb.SupportedPlatformsHandler)
		api.GET("/:id", hb.GetCourseHandler)
		api.GET("/:id/info", hb.CourseInfoHandler)
		api.POST("", hb.CreateCourseHandler)
		api.PUT("/:id", hb.UpdateCourseHandler)
		api.DELETE("/:id", hb.DeleteCourseHandler)
		api.POST("/:id/test-connection", hb.TestConnectionHandler)
	}
}

// RegisterAutomationRoutes registers the user's automation endpoints.
func RegisterAutomationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/automations")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		api.GET("", hb.ListAutomationsHandler)
		api.GET("/:id", hb.GetAutomationHandler)
		api.POST("", hb.CreateAutomationHandler)
		api.PUT("/:id", hb.UpdateAutomationHandler)
		api.DELETE("/:id", hb.DeleteAutomationHandler)
		api.PATCH("/:id/toggle", hb.ToggleAutomationHandler)
	}
}

// RegisterTeeTimeRoutes registers search and booking endpoints.
func RegisterTeeTimeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/tee-times")
	{
		// Searching works anonymously; a valid token only identifies the caller.
		public := api.Group("")
		public.Use(middleware.OptionalAuthMiddleware(hb.JWTSecret))
		public.GET("/search", hb.SearchTeeTimesHandler)
		public.GET("/course/:courseId", hb.CourseTeeTimesHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		protected.POST("/book", hb.BookTeeTimeHandler)
		protected.GET("/bookings", hb.ListBookingsHandler)
	}
}

// RegisterNotificationRoutes registers the notification inbox.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		api.GET("", hb.ListNotificationsHandler)
		api.PATCH("/:id/read", hb.MarkNotificationHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins []string) {
	r.Use(cors.New(corsConfig(allowedOrigins)))

	RegisterHealthRoute(r, hb)
	RegisterAuthRoutes(r, hb)
	RegisterCourseRoutes(r, hb)
	RegisterAutomationRoutes(r, hb)
	RegisterTeeTimeRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}
