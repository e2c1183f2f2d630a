package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/handler"
	"github.com/rollcall/rollcall-backend/internal/middleware"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/response"
	"github.com/rollcall/rollcall-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Teacher    *handler.TeacherHandler
	Attendance *handler.AttendanceHandler
	Admin      *handler.AdminHandler
	Course     *handler.CourseHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public course list — consumed by the registration/login screens.
	router.GET("/api/v1/courses", handlers.Course.ListCourses)

	// Rate limiter for login (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// Teacher session lifecycle.
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleTeacher),
	)
	{
		teacherAPI.POST("/sessions", handlers.Teacher.IssueSession)
		teacherAPI.GET("/sessions/current", handlers.Teacher.CurrentSession)
		teacherAPI.POST("/no-class", handlers.Teacher.NoClass)
		teacherAPI.GET("/courses", handlers.Teacher.MyCourses)
	}

	// Attendance: students scan, both roles read.
	attendanceAPI := router.Group("/api/v1/attendance")
	attendanceAPI.Use(middleware.RequireAuth(authService))
	{
		attendanceAPI.POST("/scan",
			middleware.RequireRole(model.RoleStudent),
			handlers.Attendance.Scan,
		)
		attendanceAPI.GET("/today",
			middleware.RequireRole(model.RoleStudent, model.RoleTeacher),
			handlers.Attendance.Today,
		)
		attendanceAPI.GET("/month",
			middleware.RequireRole(model.RoleStudent, model.RoleTeacher),
			handlers.Attendance.Month,
		)
	}

	// WebSocket live attendance feed (query-param auth — browsers cannot set
	// headers on the upgrade request).
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.RequireRole(model.RoleTeacher),
	)
	{
		ws.GET("/teacher/courses/:code/feed", handlers.WS.AttendanceFeed)
	}

	// Admin directory and course registry.
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		adminAPI.POST("/students", handlers.Admin.CreateStudent)
		adminAPI.GET("/students", handlers.Admin.ListStudents)
		adminAPI.DELETE("/students/:username", handlers.Admin.DeleteStudent)

		adminAPI.POST("/teachers", handlers.Admin.CreateTeacher)
		adminAPI.GET("/teachers", handlers.Admin.ListTeachers)
		adminAPI.DELETE("/teachers/:username", handlers.Admin.DeleteTeacher)

		adminAPI.PATCH("/users/:username", handlers.Admin.UpdateUser)

		adminAPI.POST("/courses", handlers.Course.CreateCourse)
		adminAPI.DELETE("/courses/:code", handlers.Course.DeleteCourse)
		adminAPI.POST("/courses/:code/students", handlers.Admin.EnrollStudents)
	}

	return router
}
