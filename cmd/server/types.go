package main

import (
	"codeberg.org/luchgpt/server/internal/app"
	"codeberg.org/luchgpt/server/internal/mailer"
	"codeberg.org/luchgpt/server/internal/ratelimit"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"github.com/gin-gonic/gin"
)

// holds all dependencies and state for the API server
type Server struct {
	app            *app.App
	mailer         mailer.Sender
	limiter        *ratelimit.Limiter
	cleanupService *confirmations.CleanupService
	router         *gin.Engine
}
