package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizsuite/backend/internal/infrastructure/config"
)

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "bizsuite-test",
		MaxRefreshCount:        3,
	})
}

func testInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID:         uuid.New(),
		Username:       "alice",
		OrganizationID: 42,
		PartnerID:      7,
		GroupIDs:       []uuid.UUID{uuid.New(), uuid.New()},
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := newTestService()
	input := testInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, int64(42), claims.OrganizationID)
	assert.Equal(t, int64(7), claims.PartnerID)
	assert.False(t, claims.IsPlatformAdmin)
	assert.Len(t, claims.GroupIDs, 2)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestValidateRejectsWrongTokenType(t *testing.T) {
	svc := newTestService()

	pair, err := svc.GenerateTokenPair(testInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := newTestService()

	pair, err := svc.GenerateTokenPair(testInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  -1 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "bizsuite-test",
		MaxRefreshCount:        3,
	})

	pair, err := svc.GenerateTokenPair(testInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshTokenPair(t *testing.T) {
	svc := newTestService()
	input := testInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokenPair(pair.RefreshToken, RefreshInput{
		Username:       input.Username,
		OrganizationID: input.OrganizationID,
		PartnerID:      input.PartnerID,
		GroupIDs:       input.GroupIDs,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.OrganizationID, claims.OrganizationID)

	refreshClaims, err := svc.ValidateRefreshToken(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshClaims.RefreshCount)
}

func TestRefreshCountLimit(t *testing.T) {
	svc := newTestService()
	input := testInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	refreshInput := RefreshInput{Username: input.Username, OrganizationID: input.OrganizationID}
	token := pair.RefreshToken
	for i := 0; i < 3; i++ {
		refreshed, err := svc.RefreshTokenPair(token, refreshInput)
		require.NoError(t, err)
		token = refreshed.RefreshToken
	}

	_, err = svc.RefreshTokenPair(token, refreshInput)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
}

func TestClaimsPrincipal(t *testing.T) {
	svc := newTestService()
	input := testInput()
	input.IsPlatformAdmin = true

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	p, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, p.UserID)
	assert.Equal(t, input.OrganizationID, p.OrganizationID)
	assert.Equal(t, input.PartnerID, p.PartnerID)
	assert.True(t, p.IsPlatformAdmin)
	assert.ElementsMatch(t, input.GroupIDs, p.GroupIDs)
}

func TestPlatformAdminWithoutAffiliation(t *testing.T) {
	svc := newTestService()
	input := GenerateTokenInput{
		UserID:          uuid.New(),
		Username:        "root",
		IsPlatformAdmin: true,
	}

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(0), claims.OrganizationID)
	assert.Equal(t, int64(0), claims.PartnerID)
	assert.True(t, claims.IsPlatformAdmin)
}
