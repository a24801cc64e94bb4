package chats

import (
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"github.com/gin-gonic/gin"
)

// registers chat routes; guests and registered users alike
func RegisterRoutes(router *gin.RouterGroup, coord *coordinator.Coordinator) {
	chatsGroup := router.Group("/chats")
	chatsGroup.Use(auth.AuthMiddleware())
	{
		chatsGroup.GET("", ListChatsHandler(coord))
		chatsGroup.POST("", CreateChatHandler(coord))
		chatsGroup.GET("/active", ActiveChatHandler(coord))
		chatsGroup.POST("/active/finish", FinishChatHandler(coord))
		chatsGroup.PUT("/active/model", ChangeModelHandler(coord))
		chatsGroup.POST("/messages", SendMessageHandler(coord))
		chatsGroup.POST("/images", SendImageHandler(coord))
		chatsGroup.PUT("/:id/select", SelectChatHandler(coord))
		chatsGroup.PUT("/:id/title", RenameChatHandler(coord))
		chatsGroup.DELETE("/:id", DeleteChatHandler(coord))
		chatsGroup.GET("/:id/messages", MessagesHandler(coord))
	}
}
