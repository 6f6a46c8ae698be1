package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret",
		JWTExpiry:             time.Hour,
		BcryptCost:            bcrypt.MinCost,
		SandboxCandidateEmail: "Candidate@Example.com",
		SandboxAccessCode:     "sandbox123",
	}
}

func TestLoginIssuesCandidateToken(t *testing.T) {
	auth, err := NewAuthService(testAuthConfig())
	require.NoError(t, err)

	token, candidateID, err := auth.Login("candidate@example.com", "sandbox123")
	require.NoError(t, err)
	assert.Equal(t, CandidateID("CANDIDATE@example.com"), candidateID)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeCandidate, claims.TokenType)
	assert.Equal(t, candidateID, claims.CandidateID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, err := NewAuthService(testAuthConfig())
	require.NoError(t, err)

	_, _, err = auth.Login("candidate@example.com", "wrong-code")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login("someone@example.com", "sandbox123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute
	auth, err := NewAuthService(cfg)
	require.NoError(t, err)

	token, err := auth.GenerateCandidateToken("cand-1")
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)

	other := testAuthConfig()
	other.JWTSecret = "another-secret"
	foreign, err := NewAuthService(other)
	require.NoError(t, err)
	token, err = foreign.GenerateCandidateToken("cand-1")
	require.NoError(t, err)

	fresh, err := NewAuthService(testAuthConfig())
	require.NoError(t, err)
	_, err = fresh.ValidateToken(token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}
