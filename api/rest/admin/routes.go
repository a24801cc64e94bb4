package admin

import (
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, coord *coordinator.Coordinator) {
	admin := router.Group("/admin")
	admin.Use(auth.AuthMiddleware(), auth.AdminMiddleware())

	admin.PUT("/users/:id/subscription", SetSubscription(coord))
	admin.POST("/users/:id/usage/reset", ResetUsage(coord))
}
