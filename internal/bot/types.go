package bot

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// telegram rejects longer texts
	maxMessageRunes = 4096

	// largest photo forwarded to the model
	maxPhotoBytes = 5 << 20

	// updates handled at once
	defaultWorkers = 16

	// chats listed in /chats
	chatListLimit = 20
)

// callback data prefixes carried by inline buttons
const (
	actionNew     = "new"
	actionChats   = "chats"
	actionProfile = "profile"
	actionEnd     = "end"
	actionModels  = "models"
	actionSelect  = "select:"
	actionDelete  = "delete:"
	actionModel   = "model:"
)

// the part of the Bot API client the handlers use
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// HTTPClient downloads photos from the Telegram file API
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
