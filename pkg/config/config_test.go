package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "triage", cfg.Database.Database)
	assert.Equal(t, "rules", cfg.Triage.Provider)
	assert.Equal(t, time.Hour, cfg.Approval.TTL)
	assert.Equal(t, []string{"billing"}, cfg.Approval.Categories)
	assert.InDelta(t, 0.85, cfg.Approval.AutoThreshold, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.Dedup.TTL)
	assert.Equal(t, 256, cfg.Audit.QueueSize)
	assert.Equal(t, "strip", cfg.Guard.URLBehavior)
	assert.True(t, cfg.Guard.OutputGuardEnabled)
	assert.Contains(t, cfg.Guard.InjectionSignatures, "ignore previous instructions")
	assert.Equal(t, 30, cfg.Security.RateLimitRPM)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("TRIAGE_PROVIDER", "anthropic")
	t.Setenv("APPROVAL_CATEGORIES", "billing, account_access")
	t.Setenv("AUTO_APPROVE_THRESHOLD", "0.7")
	t.Setenv("GUARD_URL_BEHAVIOR", "reject")
	t.Setenv("APPROVAL_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Triage.Provider)
	assert.Equal(t, []string{"billing", "account_access"}, cfg.Approval.Categories)
	assert.InDelta(t, 0.7, cfg.Approval.AutoThreshold, 1e-9)
	assert.Equal(t, "reject", cfg.Guard.URLBehavior)
	assert.Equal(t, 30*time.Minute, cfg.Approval.TTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "SERVER_PORT", "70000"},
		{"bad provider", "TRIAGE_PROVIDER", "oracle"},
		{"bad url behavior", "GUARD_URL_BEHAVIOR", "rewrite"},
		{"bad threshold", "AUTO_APPROVE_THRESHOLD", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Database: "triage",
		SSLMode:  "require",
	}}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=triage sslmode=require",
		cfg.DatabaseDSN(),
	)
}

func TestRedisAddr(t *testing.T) {
	cfg := &Config{Redis: RedisConfig{Host: "cache.internal", Port: 6380}}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}

func TestGetEnvAsSliceTrimsAndFallsBack(t *testing.T) {
	t.Setenv("SLICE_KEY", " a , b ,, c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("SLICE_KEY", nil))

	t.Setenv("SLICE_KEY", " , ,")
	assert.Equal(t, []string{"fallback"}, getEnvAsSlice("SLICE_KEY", []string{"fallback"}))
}
