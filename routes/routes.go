package routes

import (
	"recovery-service/controllers"
	"recovery-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRecoveryRoutes sets up all recovery-related routes.
func RegisterRecoveryRoutes(r *gin.Engine, rc *controllers.RecoveryController) {
	// Admin surface, behind gateway identity.
	admin := r.Group("/recovery")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())

	admin.POST("/scan", rc.TriggerScan)
	admin.GET("/scan/last", rc.LastScan)
	admin.GET("/stats", rc.GetStats)
	admin.GET("/carts", rc.ListCarts)
	admin.POST("/carts/:id/message", rc.SendMessage)

	// Public recovery link followed from messages; rate-limited, no auth.
	r.GET("/r/:cart_id", middleware.RateLimitMiddleware(), rc.Recover)
}
