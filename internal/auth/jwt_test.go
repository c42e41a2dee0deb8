package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	id := Identity{TenantID: uuid.New(), UserID: uuid.New(), Role: RoleStaff}

	token, err := GenerateToken(id, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
}

func TestParseTokenRejects(t *testing.T) {
	valid := Identity{TenantID: uuid.New(), UserID: uuid.New(), Role: RoleAdmin}

	expired, err := GenerateToken(valid, secret, -time.Minute)
	require.NoError(t, err)

	wrongKey, err := GenerateToken(valid, "other-secret", time.Hour)
	require.NoError(t, err)

	badRole, err := GenerateToken(Identity{TenantID: valid.TenantID, UserID: valid.UserID, Role: "root"}, secret, time.Hour)
	require.NoError(t, err)

	noTenant, err := GenerateToken(Identity{UserID: valid.UserID, Role: RoleAdmin}, secret, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: valid.UserID, TenantID: valid.TenantID, Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"bad role":  badRole,
		"no tenant": noTenant,
		"alg none":  unsigned,
		"garbage":   "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token, secret)
			assert.Error(t, err)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := Identity{TenantID: uuid.New(), UserID: uuid.New(), Role: RoleDoctor}
	got, ok := FromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, got.Is(RoleAdmin, RoleDoctor))
	assert.False(t, got.Is(RoleAdmin, RoleStaff))
}
