package profile

import (
	"net/http"

	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/models"
	"github.com/gin-gonic/gin"
)

// GetProfile godoc
// @Summary Get profile
// @Description Tier, subscription expiry, guest allowance, today's usage per model, chat count and chat limit
// @Tags profile
// @Produce json
// @Success 200 {object} coordinator.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/profile [get]
// @Security BearerAuth
func GetProfile(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		profile, err := coord.Profile(c.Request.Context(), caller)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, profile)
	}
}

// ListModels godoc
// @Summary List models
// @Description Models that chats can use, with their premium daily limits
// @Tags profile
// @Produce json
// @Success 200 {object} ModelsResponse
// @Router /api/v1/models [get]
func ListModels(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog := coord.Catalog()

		list := make([]models.Model, 0, len(catalog.Keys()))
		for _, key := range catalog.Keys() {
			m, _ := catalog.Get(key)
			list = append(list, m)
		}

		c.JSON(http.StatusOK, ModelsResponse{Models: list})
	}
}
