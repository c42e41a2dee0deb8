package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.SlotGranularity)
	assert.Equal(t, 14, cfg.HorizonDays)
	assert.Equal(t, "@every 5m", cfg.ReconcileCron)
	assert.Equal(t, "UTC", cfg.Timezone.String())
	assert.Equal(t, devSecret, cfg.JWTSecret)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SLOT_GRANULARITY_MINUTES", "15")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Kolkata")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.SlotGranularity)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone.String())
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"non-numeric granularity", "SLOT_GRANULARITY_MINUTES", "half-hour"},
		{"zero granularity", "SLOT_GRANULARITY_MINUTES", "0"},
		{"negative horizon", "AVAILABILITY_HORIZON_DAYS", "-1"},
		{"unknown timezone", "SCHEDULE_TIMEZONE", "Mars/Olympus"},
		{"bad rps", "RATE_LIMIT_RPS", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}
