package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresIn, err := GenerateAccessToken(cfg, "acme", "node-a")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, int64(cfg.AccessTokenTTL.Seconds()), expiresIn)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.TenantID)
	assert.Equal(t, "node-a", claims.ClientID)
	assert.Equal(t, "driftsync", claims.Issuer)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := GenerateAccessToken(cfg, "acme", "node-a")
	require.NoError(t, err)

	other := JWTConfig{Secret: []byte("different-secret"), AccessTokenTTL: time.Minute}
	_, err = ValidateAccessToken(other, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	cfg := JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: -time.Minute,
	}

	token, _, err := GenerateAccessToken(cfg, "acme", "node-a")
	require.NoError(t, err)

	_, err = ValidateAccessToken(testJWTConfig(), token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	_, err := ValidateAccessToken(testJWTConfig(), "not.a.token")
	assert.Error(t, err)
}
