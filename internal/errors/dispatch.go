package errors

import (
	"errors"
	"fmt"
	"net/http"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/quota"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"codeberg.org/luchgpt/server/luchgpt/guests"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/gin-gonic/gin"
)

const genericMessage = "something went wrong, please try again later"

// maps a domain error to its client-facing outcome; unknown errors become a 500
func Dispatch(err error) Outcome {
	var (
		exceeded   *quota.ExceededError
		capacity   *coordinator.ChatCapacityError
		chatLimit  *coordinator.ChatLimitError
		guestLimit *coordinator.GuestLimitError
	)

	switch {
	case errors.As(err, &exceeded):
		return Outcome{
			Code:    CodeQuotaExceeded,
			Status:  http.StatusTooManyRequests,
			Message: fmt.Sprintf("daily limit of %d requests for the %s model reached, try again tomorrow", exceeded.Limit, exceeded.ModelKey),
			Details: gin.H{"limit": exceeded.Limit, "used": exceeded.Used, "model_key": exceeded.ModelKey, "tier": exceeded.Tier},
		}

	case errors.Is(err, quota.ErrQuotaExceeded):
		return Outcome{Code: CodeQuotaExceeded, Status: http.StatusTooManyRequests, Message: "daily request limit reached, try again tomorrow"}

	case errors.Is(err, coordinator.ErrNoActiveChat):
		return Outcome{Code: CodeNoActiveChat, Status: http.StatusConflict, Message: "no active chat, create or select one first"}

	case errors.As(err, &capacity):
		return Outcome{
			Code:    CodeChatCapacityExceeded,
			Status:  http.StatusConflict,
			Message: fmt.Sprintf("this chat reached %d messages and was closed, start a new one", capacity.Limit),
			Details: gin.H{"chat_id": capacity.ChatID, "limit": capacity.Limit},
		}

	case errors.Is(err, coordinator.ErrChatCapacityExceeded):
		return Outcome{Code: CodeChatCapacityExceeded, Status: http.StatusConflict, Message: "this chat is full, start a new one"}

	case errors.As(err, &chatLimit):
		return Outcome{
			Code:    CodeChatLimitReached,
			Status:  http.StatusConflict,
			Message: fmt.Sprintf("you already have %d chats, delete one to start another", chatLimit.Limit),
			Details: gin.H{"limit": chatLimit.Limit, "chats": chatLimit.Existing},
		}

	case errors.Is(err, coordinator.ErrChatLimitReached):
		return Outcome{Code: CodeChatLimitReached, Status: http.StatusConflict, Message: "chat limit reached, delete a chat to start another"}

	case errors.Is(err, chats.ErrNotFound):
		return Outcome{Code: CodeNotFound, Status: http.StatusNotFound, Message: "chat not found"}

	case errors.Is(err, users.ErrNotFound):
		return Outcome{Code: CodeNotFound, Status: http.StatusNotFound, Message: "user not found"}

	case errors.Is(err, guests.ErrNotFound):
		return Outcome{Code: CodeNotFound, Status: http.StatusNotFound, Message: "guest session not found"}

	case errors.As(err, &guestLimit):
		return Outcome{
			Code:    CodeGuestLimitExceeded,
			Status:  http.StatusForbidden,
			Message: fmt.Sprintf("guests can send %d requests, register to keep chatting", guestLimit.Limit),
			Details: gin.H{"limit": guestLimit.Limit},
		}

	case errors.Is(err, coordinator.ErrGuestLimitExceeded):
		return Outcome{Code: CodeGuestLimitExceeded, Status: http.StatusForbidden, Message: "guest limit reached, register to keep chatting"}

	case errors.Is(err, coordinator.ErrModelLocked):
		return Outcome{Code: CodeForbidden, Status: http.StatusForbidden, Message: "this model requires a premium subscription"}

	case errors.Is(err, coordinator.ErrAccountLimitReached):
		return Outcome{Code: CodeForbidden, Status: http.StatusForbidden, Message: "too many accounts are linked to this user"}

	case errors.Is(err, coordinator.ErrInvalidCaller):
		return Outcome{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "authentication required"}

	case errors.Is(err, coordinator.ErrUnknownModel):
		return Outcome{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "unknown model"}

	case errors.Is(err, coordinator.ErrImageUnsupported):
		return Outcome{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "the current model does not accept images, switch to a vision model"}

	case errors.Is(err, coordinator.ErrEmptyMessage):
		return Outcome{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "message is empty"}

	case errors.Is(err, confirmations.ErrNotFound):
		return Outcome{Code: CodeNotFound, Status: http.StatusNotFound, Message: "no pending confirmation for this email"}

	case errors.Is(err, confirmations.ErrInvalidCode):
		return Outcome{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "invalid confirmation code"}

	case errors.Is(err, confirmations.ErrCodeExpired):
		return Outcome{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "confirmation code expired, register again to get a new one"}

	case errors.Is(err, confirmations.ErrTooManyAttempts):
		return Outcome{Code: CodeTooManyRequests, Status: http.StatusTooManyRequests, Message: "too many attempts, register again to get a new code"}

	case errors.Is(err, users.ErrEmailTaken):
		return Outcome{Code: CodeConflict, Status: http.StatusConflict, Message: "email already registered"}
	}

	return Outcome{Code: CodeServerError, Status: http.StatusInternalServerError, Message: genericMessage}
}

// writes the dispatched outcome; server errors are logged here and nowhere else
func Respond(c *gin.Context, err error) {
	outcome := Dispatch(err)

	if outcome.Status == http.StatusInternalServerError {
		InternalError(c, outcome.Message, err)
		return
	}

	c.JSON(outcome.Status, ErrorResponse{
		Error:   outcome.Code,
		Message: outcome.Message,
		Details: outcome.Details,
	})
}
