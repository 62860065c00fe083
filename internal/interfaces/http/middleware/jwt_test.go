package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/infrastructure/auth"
	"github.com/bizsuite/backend/internal/infrastructure/config"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-long-enough",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
		Issuer:                 "bizsuite-test",
		MaxRefreshCount:        10,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, input auth.GenerateTokenInput) string {
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	return pair.AccessToken
}

func authRouter(svc *auth.JWTService, blacklist auth.TokenBlacklist) (*gin.Engine, *identity.Principal, *int64) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService:     svc,
		TokenBlacklist: blacklist,
	}))

	var captured identity.Principal
	var capturedOrg int64
	router.GET("/protected", func(c *gin.Context) {
		captured = GetPrincipal(c)
		capturedOrg = logger.GetOrganizationID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router, &captured, &capturedOrg
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := newJWTService()
	userID := uuid.New()
	groupID := uuid.New()

	t.Run("valid token binds principal and tenancy", func(t *testing.T) {
		router, principal, orgID := authRouter(svc, nil)
		token := issueToken(t, svc, auth.GenerateTokenInput{
			UserID:         userID,
			Username:       "alice",
			OrganizationID: 42,
			PartnerID:      7,
			GroupIDs:       []uuid.UUID{groupID},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID, principal.UserID)
		assert.Equal(t, int64(42), principal.OrganizationID)
		assert.Equal(t, int64(7), principal.PartnerID)
		assert.Equal(t, []uuid.UUID{groupID}, principal.GroupIDs)
		assert.Equal(t, int64(42), *orgID)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		router, _, _ := authRouter(svc, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		router, _, _ := authRouter(svc, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+"not-a-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		router, _, _ := authRouter(svc, blacklist)
		token := issueToken(t, svc, auth.GenerateTokenInput{
			UserID:         userID,
			Username:       "alice",
			OrganizationID: 42,
		})

		claims, err := svc.ValidateAccessToken(token)
		require.NoError(t, err)
		require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
	})

	t.Run("skip paths pass without a token", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(JWTAuthMiddleware(svc))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetPrincipalUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	principal := GetPrincipal(c)
	assert.True(t, principal.IsAnonymous())
	assert.True(t, principal.TenantContext().IsZero())
}
