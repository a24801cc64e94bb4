package profile

import (
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, coord *coordinator.Coordinator) {
	rg.GET("/profile", auth.AuthMiddleware(), GetProfile(coord))
	rg.GET("/models", ListModels(coord))
}
