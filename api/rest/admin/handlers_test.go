package admin

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"codeberg.org/luchgpt/server/api/rest/resttest"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *resttest.Env {
	t.Helper()

	env := resttest.New(t)
	RegisterRoutes(env.API, env.Coord)

	return env
}

func TestAdminRoutes_RejectRegularUsers(t *testing.T) {
	env := setup(t)
	target, token := env.Member(t, "user@example.com", false)

	w := env.Do(t, http.MethodPut, subscriptionPath(target.ID), token, SetSubscriptionRequest{Tier: users.TierPremium})
	resttest.RequireError(t, w, http.StatusForbidden, "forbidden")

	w = env.Do(t, http.MethodPut, subscriptionPath(target.ID), env.Guest(t, "web:x"), SetSubscriptionRequest{Tier: users.TierPremium})
	resttest.RequireError(t, w, http.StatusForbidden, "forbidden")
}

func TestSetSubscription(t *testing.T) {
	env := setup(t)
	_, admin := env.Member(t, "admin@example.com", true)
	target, _ := env.Member(t, "user@example.com", false)

	expires := env.Now.Add(30 * 24 * time.Hour)

	w := env.Do(t, http.MethodPut, subscriptionPath(target.ID), admin, SetSubscriptionRequest{
		Tier:      users.TierPremium,
		ExpiresAt: &expires,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UserResponse
	resttest.Decode(t, w, &resp)
	assert.Equal(t, users.TierPremium, resp.User.Tier)
	require.NotNil(t, resp.User.SubscriptionExpiresAt)
	assert.True(t, expires.Equal(*resp.User.SubscriptionExpiresAt))

	w = env.Do(t, http.MethodPut, subscriptionPath(target.ID), admin, SetSubscriptionRequest{Tier: users.TierFree, ExpiresAt: &expires})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resttest.Decode(t, w, &resp)
	assert.Equal(t, users.TierFree, resp.User.Tier)
	assert.Nil(t, resp.User.SubscriptionExpiresAt)
}

func TestSetSubscription_Validation(t *testing.T) {
	env := setup(t)
	_, admin := env.Member(t, "admin@example.com", true)

	w := env.Do(t, http.MethodPut, subscriptionPath(1), admin, map[string]string{"tier": "gold"})
	resttest.RequireError(t, w, http.StatusBadRequest, "validation_error")

	w = env.Do(t, http.MethodPut, subscriptionPath(9999), admin, SetSubscriptionRequest{Tier: users.TierPremium})
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")

	w = env.Do(t, http.MethodPut, "/api/v1/admin/users/abc/subscription", admin, SetSubscriptionRequest{Tier: users.TierPremium})
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")
}

func TestResetUsage(t *testing.T) {
	env := setup(t)
	_, admin := env.Member(t, "admin@example.com", true)
	target, _ := env.Member(t, "user@example.com", false)

	ctx := context.Background()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := env.Ledger.IncrementUsage(ctx, target.ID, day, "fast")
	require.NoError(t, err)

	w := env.Do(t, http.MethodPost, resetPath(target.ID), admin, ResetUsageRequest{Date: "10.06.2025"})
	resttest.RequireError(t, w, http.StatusBadRequest, "bad_request")

	w = env.Do(t, http.MethodPost, resetPath(target.ID), admin, ResetUsageRequest{Date: "2025-06-10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	used, err := env.Ledger.GetTotalUsageForDay(ctx, target.ID, day)
	require.NoError(t, err)
	assert.Zero(t, used)

	w = env.Do(t, http.MethodPost, resetPath(9999), admin, nil)
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")
}

func subscriptionPath(userID int64) string {
	return "/api/v1/admin/users/" + strconv.FormatInt(userID, 10) + "/subscription"
}

func resetPath(userID int64) string {
	return "/api/v1/admin/users/" + strconv.FormatInt(userID, 10) + "/usage/reset"
}
