package main

import (
	"context"

	"codeberg.org/luchgpt/server/api/rest/admin"
	"codeberg.org/luchgpt/server/api/rest/auth"
	"codeberg.org/luchgpt/server/api/rest/chats"
	"codeberg.org/luchgpt/server/api/rest/health"
	"codeberg.org/luchgpt/server/api/rest/profile"
	"codeberg.org/luchgpt/server/internal/metrics"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(gin.Recovery(), RequestIDMiddleware(), metrics.Middleware(), CORSMiddleware(server.app.Config.AllowedOrigins))
	router.Use(server.limiter.Middleware())

	router.GET("/health", health.Handler(server.healthChecks()))
	router.GET("/metrics", metrics.Handler())

	coord := server.app.Coordinator

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		auth.RegisterRoutes(v1, auth.Deps{
			Users:         server.app.Users,
			Guests:        server.app.Guests,
			Confirmations: server.app.Confirmations,
			Mailer:        server.mailer,
		}, coord, server.app.Config.Limits.GuestTotalLimit)
		chats.RegisterRoutes(v1, coord)
		profile.RegisterRoutes(v1, coord)
		admin.RegisterRoutes(v1, coord)
	}
}

func (s *Server) healthChecks() map[string]health.Checker {
	checks := make(map[string]health.Checker)

	if s.app.DB != nil {
		checks["postgres"] = s.app.DB.Ping
	}

	if s.app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.app.Redis.Ping(ctx).Err()
		}
	}

	return checks
}
