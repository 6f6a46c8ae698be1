package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func testAuth(t *testing.T, expiry time.Duration) *service.AuthService {
	t.Helper()
	auth, err := service.NewAuthService(&config.Config{
		JWTSecret:             "mw-secret",
		JWTExpiry:             expiry,
		BcryptCost:            bcrypt.MinCost,
		SandboxCandidateEmail: "c@example.com",
		SandboxAccessCode:     "code1234",
	})
	require.NoError(t, err)
	return auth
}

func guarded(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/x", mw, func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).CandidateID)
	})
	return r
}

func get(r http.Handler, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireCandidateJWT(t *testing.T) {
	auth := testAuth(t, time.Hour)
	r := guarded(RequireCandidateJWT(auth))
	token, err := auth.GenerateCandidateToken("cand-7")
	require.NoError(t, err)

	w := get(r, "/x", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cand-7", w.Body.String())

	w = get(r, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REQUIRED")

	// Query tokens are only for WebSocket upgrades.
	w = get(r, "/x?token="+token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireCandidateJWTExpired(t *testing.T) {
	auth := testAuth(t, -time.Minute)
	token, err := auth.GenerateCandidateToken("cand-7")
	require.NoError(t, err)

	w := get(guarded(RequireCandidateJWT(auth)), "/x", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireCandidateJWTRejectsOtherTokenTypes(t *testing.T) {
	auth := testAuth(t, time.Hour)
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TokenType:        "admin",
		CandidateID:      "cand-7",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("mw-secret"))
	require.NoError(t, err)

	w := get(guarded(RequireCandidateJWT(auth)), "/x", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestRequireCandidateWSAuthReadsQueryToken(t *testing.T) {
	auth := testAuth(t, time.Hour)
	r := guarded(RequireCandidateWSAuth(auth))
	token, err := auth.GenerateCandidateToken("cand-9")
	require.NoError(t, err)

	w := get(r, "/x?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cand-9", w.Body.String())

	w = get(r, "/x", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}
