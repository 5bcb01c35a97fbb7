package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtec/maintenance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	entrepriseID := "e1"
	profile := &domain.Profile{
		ID:           "profile-1",
		Role:         domain.RoleTechnicien,
		EntrepriseID: &entrepriseID,
	}

	token, expiresAt, err := tm.GenerateToken(profile)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.ProfileID)
	assert.Equal(t, domain.RoleTechnicien, claims.Role)
	require.NotNil(t, claims.EntrepriseID)
	assert.Equal(t, "e1", *claims.EntrepriseID)
	assert.Nil(t, claims.RegieID)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 60)
	other := NewTokenManager("secret-b", 60)

	token, _, err := tm.GenerateToken(&domain.Profile{ID: "p1", Role: domain.RoleRegie})
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashAndCompare(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, ComparePassword(hash, "correct horse battery staple"))
	assert.Error(t, ComparePassword(hash, "wrong password"))
}
