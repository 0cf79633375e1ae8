package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accommodation-portal/config"
	"accommodation-portal/internal/api/handler"
	"accommodation-portal/internal/api/middleware"
	"accommodation-portal/internal/model"
	"accommodation-portal/pkg/jwt"
)

// Deps optional Redis-backed collaborators; nil disables the feature
type Deps struct {
	Revocations middleware.RevocationChecker
	Limiter     middleware.RateLimiter
}

// Setup builds the gin engine
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── Global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	r.Use(middleware.ClientInfo())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	superAdmin := middleware.RoleAuth(model.RoleSuperAdmin)
	admins := middleware.RoleAuth(model.RoleSuperAdmin, model.RoleServiceUnitAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.RateLimit(deps.Limiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow),
				h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, deps.Revocations))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			users := authorized.Group("/users")
			{
				users.GET("", admins, h.User.ListUsers)
				users.POST("", admins, h.User.CreateUser)
				users.POST("/import", admins, h.User.ImportUsers)
				users.GET("/:id", h.User.GetUser)    // self or admin, checked in service
				users.PUT("/:id", h.User.UpdateUser) // self or admin, checked in service
				users.DELETE("/:id", superAdmin, h.User.DeleteUser)
				users.PUT("/:id/role", superAdmin, h.User.AssignRole)
				users.POST("/:id/reset-password", admins, h.User.ResetPassword)
			}

			units := authorized.Group("/service-units")
			{
				units.GET("", h.ServiceUnit.List)
				units.GET("/:id", h.ServiceUnit.GetByID)
				units.POST("", superAdmin, h.ServiceUnit.Create)
				units.PUT("/:id", superAdmin, h.ServiceUnit.Update)
				units.DELETE("/:id", superAdmin, h.ServiceUnit.Delete)
				units.GET("/:id/members", admins, h.ServiceUnit.ListMembers)
				units.POST("/:id/members", admins, h.ServiceUnit.AddMember)
				units.DELETE("/:id/members/:user_id", admins, h.ServiceUnit.RemoveMember)
			}

			buildings := authorized.Group("/buildings")
			{
				buildings.GET("", h.Building.ListBuildings)
				buildings.GET("/:id", h.Building.GetBuilding)
				buildings.POST("", superAdmin, h.Building.CreateBuilding)
				buildings.PUT("/:id", superAdmin, h.Building.UpdateBuilding)
				buildings.DELETE("/:id", superAdmin, h.Building.DeleteBuilding)
			}

			rooms := authorized.Group("/rooms")
			{
				rooms.GET("", h.Building.ListRooms)
				rooms.GET("/:id", h.Building.GetRoom)
				rooms.POST("", superAdmin, h.Building.CreateRoom)
				rooms.PUT("/:id", superAdmin, h.Building.UpdateRoom)
				rooms.DELETE("/:id", superAdmin, h.Building.DeleteRoom)
			}

			allocations := authorized.Group("/allocations")
			{
				allocations.GET("", h.Allocation.List)
				allocations.GET("/mine", h.Allocation.ListMine)
				allocations.GET("/available-rooms", h.Allocation.AvailableRooms)
				allocations.POST("", admins, h.Allocation.Create)
				allocations.POST("/reconcile", superAdmin, h.Allocation.ReconcileRooms)
				allocations.GET("/:id", h.Allocation.GetByID)
				allocations.POST("/:id/deactivate", admins, h.Allocation.Deactivate)
				allocations.POST("/:id/activate", admins, h.Allocation.Reactivate)
			}

			requests := authorized.Group("/allocation-requests")
			{
				requests.POST("", h.AllocationRequest.Submit)
				requests.GET("", h.AllocationRequest.List)
				requests.GET("/pending", admins, h.AllocationRequest.ListPending)
				requests.GET("/mine", h.AllocationRequest.ListMine)
				requests.GET("/:id", h.AllocationRequest.GetByID)
				requests.PUT("/:id", h.AllocationRequest.Update)
				requests.POST("/:id/approve", admins, h.AllocationRequest.Approve)
				requests.POST("/:id/reject", admins, h.AllocationRequest.Reject)
				requests.POST("/:id/cancel", h.AllocationRequest.Cancel) // requester only, checked in service
			}

			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			authorized.GET("/analytics/events", superAdmin, h.Analytics.ListEvents)
		}
	}

	return r
}
