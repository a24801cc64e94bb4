package chats

import "codeberg.org/luchgpt/server/luchgpt/chats"

// largest accepted image upload
const MaxImageBytes = 5 << 20

type ChatResponse struct {
	Chat *chats.Chat `json:"chat"`
}

type ChatsResponse struct {
	Chats []*chats.Chat `json:"chats"`
}

type MessagesResponse struct {
	ChatID   int64            `json:"chat_id"`
	Messages []*chats.Message `json:"messages"`
}

type CreateChatRequest struct {
	ModelKey string `json:"model_key" binding:"max=32"`
}

type FinishChatRequest struct {
	Title *string `json:"title" binding:"omitempty,max=200"`
}

type RenameChatRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

type ChangeModelRequest struct {
	ModelKey string `json:"model_key" binding:"required,max=32"`
}

type SendMessageRequest struct {
	ChatID  *int64 `json:"chat_id"`
	Content string `json:"content" binding:"required,max=16000"`
}
