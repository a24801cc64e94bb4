package chats

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/luchgpt/server/api/rest/pagination"
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"github.com/gin-gonic/gin"
)

// ListChatsHandler godoc
// @Summary List chats
// @Description Chats of the caller, most recently used first
// @Tags chats
// @Produce json
// @Param limit query int false "Max chats (default 20, max 100)"
// @Success 200 {object} ChatsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/chats [get]
// @Security BearerAuth
func ListChatsHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		list, err := coord.ListChats(c.Request.Context(), caller, pagination.Limit(c, chats.DefaultListLimit, 100))
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatsResponse{Chats: list})
	}
}

// CreateChatHandler godoc
// @Summary Create chat
// @Description Opens a new active chat. Fails with chat_limit_reached when the tier's chat count is used up
// @Tags chats
// @Accept json
// @Produce json
// @Param request body CreateChatRequest false "Model key (defaults to the user's default model)"
// @Success 201 {object} ChatResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/chats [post]
// @Security BearerAuth
func CreateChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		var req CreateChatRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				errors.ValidationError(c, err)
				return
			}
		}

		chat, err := coord.CreateChat(c.Request.Context(), caller, strings.TrimSpace(req.ModelKey))
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, ChatResponse{Chat: chat})
	}
}

// ActiveChatHandler godoc
// @Summary Active chat
// @Tags chats
// @Produce json
// @Success 200 {object} ChatResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/chats/active [get]
// @Security BearerAuth
func ActiveChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		chat, err := coord.ActiveChat(c.Request.Context(), caller)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatResponse{Chat: chat})
	}
}

// SelectChatHandler godoc
// @Summary Select chat
// @Description Makes the chat the caller's single active chat
// @Tags chats
// @Produce json
// @Param id path int true "Chat ID"
// @Success 200 {object} ChatResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/chats/{id}/select [put]
// @Security BearerAuth
func SelectChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		chatID, ok := errors.ValidatePathID(c, "id", "chat")
		if !ok {
			return
		}

		chat, err := coord.SelectChat(c.Request.Context(), caller, chatID)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatResponse{Chat: chat})
	}
}

// FinishChatHandler godoc
// @Summary Finish active chat
// @Tags chats
// @Accept json
// @Produce json
// @Param request body FinishChatRequest false "Optional title"
// @Success 200 {object} ChatResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/chats/active/finish [post]
// @Security BearerAuth
func FinishChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		var req FinishChatRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				errors.ValidationError(c, err)
				return
			}
		}

		chat, err := coord.FinishChat(c.Request.Context(), caller, req.Title)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatResponse{Chat: chat})
	}
}

// RenameChatHandler godoc
// @Summary Rename chat
// @Tags chats
// @Accept json
// @Produce json
// @Param id path int true "Chat ID"
// @Param request body RenameChatRequest true "New title, cut to 28 characters"
// @Success 200 {object} ChatResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/chats/{id}/title [put]
// @Security BearerAuth
func RenameChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		chatID, ok := errors.ValidatePathID(c, "id", "chat")
		if !ok {
			return
		}

		var req RenameChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		chat, err := coord.RenameChat(c.Request.Context(), caller, chatID, req.Title)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatResponse{Chat: chat})
	}
}

// DeleteChatHandler godoc
// @Summary Delete chat
// @Description Deletes the chat and its messages
// @Tags chats
// @Param id path int true "Chat ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/chats/{id} [delete]
// @Security BearerAuth
func DeleteChatHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		chatID, ok := errors.ValidatePathID(c, "id", "chat")
		if !ok {
			return
		}

		if err := coord.DeleteChat(c.Request.Context(), caller, chatID); err != nil {
			errors.Respond(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// MessagesHandler godoc
// @Summary Chat history
// @Tags chats
// @Produce json
// @Param id path int true "Chat ID"
// @Param limit query int false "Max messages (default 100, max 500)"
// @Success 200 {object} MessagesResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/chats/{id}/messages [get]
// @Security BearerAuth
func MessagesHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		chatID, ok := errors.ValidatePathID(c, "id", "chat")
		if !ok {
			return
		}

		messages, err := coord.History(c.Request.Context(), caller, chatID, pagination.Limit(c, 100, 500))
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, MessagesResponse{ChatID: chatID, Messages: messages})
	}
}

// ChangeModelHandler godoc
// @Summary Change model of the active chat
// @Tags chats
// @Accept json
// @Produce json
// @Param request body ChangeModelRequest true "Model key"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/chats/active/model [put]
// @Security BearerAuth
func ChangeModelHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		var req ChangeModelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		chat, err := coord.ChangeModel(c.Request.Context(), caller, strings.TrimSpace(req.ModelKey))
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, ChatResponse{Chat: chat})
	}
}

// SendMessageHandler godoc
// @Summary Send message
// @Description Sends a message to the active chat (or chat_id, which is activated first) and returns the model reply
// @Tags chats
// @Accept json
// @Produce json
// @Param request body SendMessageRequest true "Message"
// @Success 200 {object} coordinator.Reply
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /api/v1/chats/messages [post]
// @Security BearerAuth
func SendMessageHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		reply, err := coord.Send(c.Request.Context(), coordinator.SendRequest{
			Caller: caller,
			ChatID: req.ChatID,
			Text:   req.Content,
		})
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}

// SendImageHandler godoc
// @Summary Send image
// @Description Sends an image (max 5 MiB) with an optional prompt to a vision-capable active chat
// @Tags chats
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Param prompt formData string false "Caption or question"
// @Param chat_id formData int false "Chat to activate first"
// @Success 200 {object} coordinator.Reply
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/chats/images [post]
// @Security BearerAuth
func SendImageHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageBytes+1<<20)

		header, err := c.FormFile("file")
		if err != nil {
			errors.BadRequest(c, "image file required", err)
			return
		}

		if header.Size > MaxImageBytes {
			errors.BadRequest(c, "image larger than 5 MiB", nil)
			return
		}

		file, err := header.Open()
		if err != nil {
			errors.BadRequest(c, "unreadable image", err)
			return
		}
		defer file.Close() //nolint:errcheck // read-only upload

		data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
		if err != nil {
			errors.BadRequest(c, "unreadable image", err)
			return
		}

		if len(data) > MaxImageBytes {
			errors.BadRequest(c, "image larger than 5 MiB", nil)
			return
		}

		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			errors.BadRequest(c, "file is not an image", nil)
			return
		}

		req := coordinator.SendRequest{
			Caller:   caller,
			Text:     c.PostForm("prompt"),
			ImageURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		}

		if raw := c.PostForm("chat_id"); raw != "" {
			chatID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				errors.BadRequest(c, "invalid chat_id", err)
				return
			}

			req.ChatID = &chatID
		}

		reply, err := coord.Send(c.Request.Context(), req)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}
