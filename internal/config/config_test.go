package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ServerDefaultsAndCORS(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("CORS_ORIGINS", "https://app.jaladhar.in,https://admin.jaladhar.in")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://app.jaladhar.in,https://admin.jaladhar.in", cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.IsProduction())
}

func TestIsProduction_AcceptsAllProdAliases(t *testing.T) {
	for _, env := range []string{"prod", "production", "release"} {
		assert.True(t, ServerConfig{AppEnv: env}.IsProduction(), env)
	}
	for _, env := range []string{"dev", "staging", "test", ""} {
		assert.False(t, ServerConfig{AppEnv: env}.IsProduction(), env)
	}
}

func TestLoad_ProductionRejectsDefaultSecretAndFakePayments(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "long-production-secret")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_live_secret")
	t.Setenv("RAZORPAY_ALLOW_FAKE", "true")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("RAZORPAY_ALLOW_FAKE", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())
}
