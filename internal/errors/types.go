package errors

// represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "unauthorized", "not_found")
	Message string `json:"message"`           // user-friendly message
	Details any    `json:"details,omitempty"` // optional details (sanitized in production)
}

// how an error is presented to a client, shared by the HTTP API and the bot
type Outcome struct {
	Code    string
	Status  int
	Message string
	Details any
}

type ErrorInfo struct {
	category  string
	sanitized string
}

// standard error codes
const (
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeNotFound             = "not_found"
	CodeValidationError      = "validation_error"
	CodeServerError          = "server_error"
	CodeBadRequest           = "bad_request"
	CodeConflict             = "conflict"
	CodeTooManyRequests      = "too_many_requests"
	CodeQuotaExceeded        = "quota_exceeded"
	CodeNoActiveChat         = "no_active_chat"
	CodeChatCapacityExceeded = "chat_capacity_exceeded"
	CodeChatLimitReached     = "chat_limit_reached"
	CodeGuestLimitExceeded   = "guest_limit_exceeded"
)
