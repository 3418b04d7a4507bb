package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-signing-key", "ppuk", "ppuk-api")
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "ppuk", "ppuk-api")

	token, err := svc.GenerateAccessToken(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_WrongKey(t *testing.T) {
	issuer := NewJWTService("key-a", "ppuk", "ppuk-api")
	verifier := NewJWTService("key-b", "ppuk", "ppuk-api")

	token, err := issuer.GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_Garbage(t *testing.T) {
	svc := NewJWTService("test-signing-key", "ppuk", "ppuk-api")
	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
