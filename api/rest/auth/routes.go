package auth

import (
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"github.com/gin-gonic/gin"
)

// registers all authentication routes
func RegisterRoutes(router *gin.RouterGroup, deps Deps, coord *coordinator.Coordinator, guestLimit int64) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", RegisterHandler(deps))
		authGroup.POST("/confirm", ConfirmHandler(deps))
		authGroup.POST("/login", LoginHandler(deps))
		authGroup.POST("/guest", GuestHandler(deps, guestLimit))
		authGroup.GET("/google", BeginAuthHandler())
		authGroup.GET("/google/callback", CallbackHandler(deps))
		authGroup.POST("/logout", LogoutHandler())
		authGroup.GET("/me", auth.AuthMiddleware(), GetCurrentUserHandler(coord))
	}
}
