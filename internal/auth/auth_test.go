package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func TestGenerateJWT_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT(123, "test@example.com", false)

	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "JWT should have 3 parts")
}

func TestGenerateJWT_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := GenerateJWT(123, "test@example.com", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET not set")
}

func TestValidateJWT_ValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT(123, "test@example.com", true)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)

	require.NoError(t, err)
	assert.Equal(t, int64(123), claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Empty(t, claims.GuestToken)
}

func TestValidateJWT_GuestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateGuestJWT("abc123")
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.GuestToken)
	assert.Zero(t, claims.UserID)

	_, err = GenerateGuestJWT("")
	assert.Error(t, err)
}

func TestValidateJWT_ExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	claims := Claims{
		UserID: 123,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateJWT(tokenString)
	assert.Error(t, err, "expired token should be rejected")
}

func TestValidateJWT_TamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT(123, "test@example.com", false)
	require.NoError(t, err)

	_, err = ValidateJWT(token[:len(token)-5] + "XXXXX")
	assert.Error(t, err, "tampered token should be rejected")
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT(123, "test@example.com", false)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "different-secret-key")

	_, err = ValidateJWT(token)
	assert.Error(t, err, "token signed with different secret should be rejected")
}

func TestValidateJWT_AlgorithmConfusionAttack(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	claims := Claims{
		UserID:  1,
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType) //nolint:errcheck // test code

	_, err := ValidateJWT(tokenString)
	assert.Error(t, err, "token with 'none' algorithm should be rejected")
}

func TestValidateJWT_RequiresSubject(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := sign(Claims{Email: "nobody@example.com"}, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWT_MalformedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	for _, token := range []string{"", "not.a.jwt", "only.two", "<script>alert('xss')</script>"} {
		_, err := ValidateJWT(token)
		assert.Error(t, err, "malformed token '%s' should be rejected", token)
	}
}

func TestJWT_TokenExpiration(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT(123, "test@example.com", false)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)

	diff := claims.ExpiresAt.Time.Sub(time.Now().Add(7 * 24 * time.Hour)).Abs()
	assert.Less(t, diff, 5*time.Second, "expiration should be 7 days from now")
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
	assert.False(t, CheckPassword("", "anything"))
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()

	router.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		caller, ok := GetCaller(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "user_id": caller.UserID, "provider": caller.Provider, "external_id": caller.ExternalID})
	})

	router.GET("/admin", AuthMiddleware(), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return router
}

func request(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	router := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, request(router, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, "/me", "garbage").Code)

	token, err := GenerateJWT(42, "a@example.com", false)
	require.NoError(t, err)

	w := request(router, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
}

func TestGetCaller_Guest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextGuestToken, "tok")

	caller, ok := GetCaller(c)
	require.True(t, ok)
	assert.Equal(t, coordinator.AccountCaller(users.ProviderGuest, "tok"), caller)
}

func TestAdminMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	router := newAuthRouter()

	member, err := GenerateJWT(1, "m@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(router, "/admin", member).Code)

	guest, err := GenerateGuestJWT("tok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(router, "/admin", guest).Code)

	admin, err := GenerateJWT(2, "root@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, request(router, "/admin", admin).Code)
}
