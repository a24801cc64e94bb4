package admin

import (
	"net/http"
	"time"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/luchgpt/usage"
	"github.com/gin-gonic/gin"
)

// SetSubscription godoc
// @Summary Set a user's subscription
// @Description Admin-only endpoint granting or revoking premium. A missing expires_at never expires
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body SetSubscriptionRequest true "Tier and expiry"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/admin/users/{id}/subscription [put]
// @Security BearerAuth
func SetSubscription(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := errors.ValidatePathID(c, "id", "user")
		if !ok {
			return
		}

		var req SetSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		user, err := coord.SetSubscription(c.Request.Context(), userID, req.Tier, req.ExpiresAt)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		logger.FromContext(c.Request.Context()).Info("subscription changed",
			"target_user_id", userID,
			"tier", user.Tier,
			"expires_at", user.SubscriptionExpiresAt,
		)

		c.JSON(http.StatusOK, UserResponse{User: user})
	}
}

// ResetUsage godoc
// @Summary Reset a user's daily usage
// @Description Admin-only endpoint deleting the usage counters of one day (today by default)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body ResetUsageRequest false "Day to reset"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/admin/users/{id}/usage/reset [post]
// @Security BearerAuth
func ResetUsage(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := errors.ValidatePathID(c, "id", "user")
		if !ok {
			return
		}

		var req ResetUsageRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				errors.ValidationError(c, err)
				return
			}
		}

		var day *time.Time
		if req.Date != "" {
			parsed, err := time.Parse(usage.DateLayout, req.Date)
			if err != nil {
				errors.BadRequest(c, "date must look like 2006-01-02", err)
				return
			}

			day = &parsed
		}

		if err := coord.ResetUsage(c.Request.Context(), userID, day); err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "usage reset"})
	}
}
