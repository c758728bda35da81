// internal/server/server.go

// Package server assembles the HTTP API.
package server

import (
	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/config"
	"ermakplan-back/internal/handlers"
	"ermakplan-back/internal/middleware"
	"ermakplan-back/internal/realtime"
	"ermakplan-back/internal/storage"
	"ermakplan-back/pkg/email"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Sessions *auth.SessionManager
	Hub      *realtime.Hub
	Mailer   email.Mailer
	Store    storage.ObjectStore
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	handlers.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(d.Config.Server.AllowedOrigins))

	cookie := handlers.SessionCookie{
		Name:   d.Config.Session.CookieName,
		Secure: d.Config.IsProduction(),
		TTL:    d.Sessions.TTL(),
	}
	db := d.DB
	hub := d.Hub

	r.GET("/healthz", handlers.Healthz(db))

	// Public routes
	public := r.Group("/api/auth")
	{
		public.POST("/login", handlers.Login(db, d.Sessions, cookie))
		public.POST("/register", handlers.Register(db, d.Sessions, cookie))
		public.POST("/logout", handlers.Logout(d.Sessions, cookie))
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Sessions, cookie.Name))
	{
		api.GET("/auth/me", handlers.GetCurrentUser(db))
		api.GET("/users", handlers.ListUsers(db))
		api.GET("/dashboard/stats", handlers.GetDashboardStats(db))
		api.GET("/ws", hub.ServeWS)

		tasks := api.Group("/tasks")
		tasks.GET("", handlers.ListTasks(db))
		tasks.POST("", handlers.CreateTask(db))
		tasks.GET("/assigned", handlers.ListAssignedTasks(db))
		tasks.GET("/:id", handlers.GetTask(db))
		tasks.PATCH("/:id", handlers.UpdateTask(db))
		tasks.DELETE("/:id", handlers.DeleteTask(db))
		tasks.GET("/:id/assignments", handlers.ListTaskAssignments(db))
		tasks.POST("/:id/assignments", handlers.AssignUsersToTask(db, hub))
		tasks.GET("/:id/users", handlers.ListTaskAssignments(db))
		tasks.POST("/:id/users", handlers.AssignUsersToTask(db, hub))
		tasks.DELETE("/:id/users/:userId", handlers.UnassignUserFromTask(db))
		tasks.PATCH("/:id/status", handlers.UpdateAssignmentStatus(db))
		tasks.GET("/:id/reminders", handlers.ListTaskReminders(db))

		projects := api.Group("/projects")
		projects.GET("", handlers.ListProjects(db))
		projects.POST("", handlers.CreateProject(db))
		projects.GET("/:id", handlers.GetProject(db))
		projects.PATCH("/:id", handlers.UpdateProject(db))
		projects.DELETE("/:id", handlers.DeleteProject(db))

		reports := api.Group("/reports")
		reports.GET("", handlers.ListReports(db))
		reports.POST("", handlers.CreateReport(db))
		reports.GET("/:id", handlers.GetReport(db))
		reports.PATCH("/:id", handlers.UpdateReport(db))
		reports.DELETE("/:id", handlers.DeleteReport(db))
		reports.POST("/:id/send", handlers.SendReport(db, d.Mailer))

		parts := api.Group("/parts")
		parts.GET("", handlers.ListParts(db))
		parts.POST("", handlers.CreatePart(db))
		parts.GET("/:id", handlers.GetPart(db))
		parts.PUT("/:id", handlers.UpdatePart(db))
		parts.DELETE("/:id", handlers.DeletePart(db))
		parts.GET("/:id/qr", handlers.GetPartQR(db))

		plans := api.Group("/plans")
		plans.GET("", handlers.ListPlans(db))
		plans.POST("", handlers.CreatePlan(db))
		plans.GET("/assigned", handlers.ListAssignedPlans(db))
		plans.GET("/:id", handlers.GetPlan(db))
		plans.PUT("/:id", handlers.UpdatePlan(db))
		plans.DELETE("/:id", handlers.DeletePlan(db))
		plans.GET("/:id/users", handlers.ListPlanUsers(db))
		plans.POST("/:id/users", handlers.AssignPlanUsers(db, hub))
		plans.DELETE("/:id/users/:userId", handlers.UnassignPlanUser(db))

		reminders := api.Group("/reminders")
		reminders.GET("", handlers.ListReminders(db))
		reminders.POST("", handlers.CreateReminder(db, hub))
		reminders.PATCH("/:id", handlers.UpdateReminder(db, hub))
		reminders.DELETE("/:id", handlers.DeleteReminder(db, hub))

		notifications := api.Group("/notifications")
		notifications.GET("", handlers.ListNotifications(db))
		notifications.GET("/unread", handlers.ListUnreadNotifications(db))
		notifications.POST("", handlers.CreateNotification(db, hub))
		notifications.PATCH("/read-all", handlers.MarkAllNotificationsRead(db))
		notifications.PATCH("/:id/read", handlers.MarkNotificationRead(db))
		notifications.DELETE("/:id", handlers.DeleteNotification(db))

		locations := api.Group("/location-reports")
		locations.GET("", handlers.ListLocationReports(db))
		locations.POST("", handlers.CreateLocationReport(db, hub))
		locations.GET("/today", handlers.GetTodayLocationReport(db))
		locations.PUT("/:id", handlers.UpdateLocationReport(db, hub))
		locations.DELETE("/:id", handlers.DeleteLocationReport(db, hub))

		api.GET("/admin/location-reports", middleware.RequireRoot(), handlers.ListAllLocationReports(db))

		api.POST("/uploads", handlers.UploadFile(d.Store))
		api.GET("/files/*object", handlers.ServeFile(d.Store))
		api.DELETE("/files/*object", handlers.DeleteFile(d.Store))
	}

	return r
}
