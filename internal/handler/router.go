package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/middleware"
	"github.com/unidesk/uniportal-api/internal/models"
	"github.com/unidesk/uniportal-api/internal/repository"
)

// Handlers bundles every HTTP handler plus the middleware each route group
// needs.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Departments   *DepartmentHandler
	Programs      *ProgramHandler
	Subjects      *SubjectHandler
	Rooms         *RoomHandler
	Schedules     *ScheduleHandler
	Notifications *NotificationHandler
	FacultyLoads  *FacultyLoadHandler
	Metrics       *MetricsHandler

	JWT         gin.HandlerFunc
	AccountGate gin.HandlerFunc
	AuditRepo   *repository.UserRepository

	ExportEnabled bool
}

// RegisterRoutes mounts the API surface under the given prefix. Route-level
// role filters are coarse; the services apply the per-resource policies.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)

	secured := api.Group("")
	secured.Use(h.JWT, h.AccountGate)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/deactivated", h.Auth.Deactivated)
	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	admin := models.RoleAdmin
	deptHead := models.RoleDepartmentHead
	progHead := models.RoleProgramHead

	// No role filter here: any account may view or update itself, and
	// program heads reach same-program users. UserPolicy decides per request.
	users := secured.Group("/users")
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("", middleware.Audit(h.AuditRepo, "CREATE_USER", "users"), h.Users.Create)
	users.PUT("/:id", middleware.Audit(h.AuditRepo, "UPDATE_USER", "users"), h.Users.Update)
	users.DELETE("/:id", middleware.Audit(h.AuditRepo, "DELETE_USER", "users"), h.Users.Delete)
	users.PUT("/:id/role", middleware.Audit(h.AuditRepo, "ASSIGN_ROLE", "users"), h.Users.AssignRole)
	users.PUT("/:id/organization", middleware.Audit(h.AuditRepo, "ASSIGN_ORGANIZATION", "users"), h.Users.AssignOrganization)

	departments := secured.Group("/departments")
	departments.GET("", h.Departments.List)
	departments.GET("/:id", h.Departments.Get)
	departments.PUT("/:id", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "UPDATE_DEPARTMENT", "departments"), h.Departments.Update)

	programs := secured.Group("/programs")
	programs.GET("", h.Programs.List)
	programs.GET("/:id", h.Programs.Get)
	programs.POST("", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "CREATE_PROGRAM", "programs"), h.Programs.Create)
	programs.PUT("/:id", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "UPDATE_PROGRAM", "programs"), h.Programs.Update)
	programs.DELETE("/:id", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "DELETE_PROGRAM", "programs"), h.Programs.Delete)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.POST("", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "CREATE_SUBJECT", "subjects"), h.Subjects.Create)
	subjects.PUT("/:id", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "UPDATE_SUBJECT", "subjects"), h.Subjects.Update)
	subjects.DELETE("/:id", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "DELETE_SUBJECT", "subjects"), h.Subjects.Delete)

	rooms := secured.Group("/rooms")
	rooms.GET("", h.Rooms.List)
	rooms.GET("/:id", h.Rooms.Get)
	rooms.POST("", middleware.RequireRoles(admin), middleware.Audit(h.AuditRepo, "CREATE_ROOM", "rooms"), h.Rooms.Create)
	rooms.PUT("/:id", middleware.RequireRoles(admin), middleware.Audit(h.AuditRepo, "UPDATE_ROOM", "rooms"), h.Rooms.Update)
	rooms.DELETE("/:id", middleware.RequireRoles(admin), middleware.Audit(h.AuditRepo, "DELETE_ROOM", "rooms"), h.Rooms.Delete)

	schedules := secured.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.GET("/:id", h.Schedules.Get)
	if h.ExportEnabled {
		schedules.GET("/:id/export", h.Schedules.Export)
	}
	schedules.POST("", middleware.RequireRoles(progHead), middleware.Audit(h.AuditRepo, "CREATE_SCHEDULE", "schedules"), h.Schedules.Create)
	schedules.PUT("/:id", middleware.RequireRoles(progHead), middleware.Audit(h.AuditRepo, "UPDATE_SCHEDULE", "schedules"), h.Schedules.Update)
	schedules.DELETE("/:id", middleware.RequireRoles(progHead), middleware.Audit(h.AuditRepo, "DELETE_SCHEDULE", "schedules"), h.Schedules.Delete)
	schedules.POST("/:id/submit", middleware.RequireRoles(progHead), middleware.Audit(h.AuditRepo, "SUBMIT_SCHEDULE", "schedules"), h.Schedules.Submit)
	schedules.POST("/:id/review", middleware.RequireRoles(deptHead), middleware.Audit(h.AuditRepo, "REVIEW_SCHEDULE", "schedules"), h.Schedules.Review)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.GET("/unread-count", h.Notifications.UnreadCount)
	notifications.POST("/:id/read", h.Notifications.MarkRead)
	notifications.POST("/read-all", h.Notifications.MarkAllRead)

	facultyLoads := secured.Group("/faculty-loads")
	facultyLoads.GET("", h.FacultyLoads.List)
	facultyLoads.POST("", middleware.RequireRoles(admin, deptHead), middleware.Audit(h.AuditRepo, "CREATE_FACULTY_LOAD", "faculty_loads"), h.FacultyLoads.Create)
	facultyLoads.DELETE("/:id", middleware.RequireRoles(admin, deptHead), middleware.Audit(h.AuditRepo, "DELETE_FACULTY_LOAD", "faculty_loads"), h.FacultyLoads.Delete)

	adminGroup := secured.Group("/admin", middleware.RequireRoles(admin))
	adminGroup.GET("/metrics", h.Metrics.Snapshot)
}
