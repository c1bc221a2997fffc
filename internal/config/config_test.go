package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webnav-ai/webnav/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	clearWebnavEnv(t)

	cfg := config.Load()

	assert.Equal(t, "anthropic", cfg.ModelProvider)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 25, cfg.MaxSteps)
	assert.Equal(t, "default", cfg.Session)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearWebnavEnv(t)
	t.Setenv("WEBNAV_MODEL_PROVIDER", "OpenAI")
	t.Setenv("WEBNAV_HEADLESS", "false")
	t.Setenv("WEBNAV_MAX_STEPS", "10")
	t.Setenv("WEBNAV_SESSION", "ci-run")

	cfg := config.Load()

	assert.Equal(t, "openai", cfg.ModelProvider)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 10, cfg.MaxSteps)
	assert.Equal(t, "ci-run", cfg.Session)
}

func TestLoad_InvalidMaxStepsFallsBackToDefault(t *testing.T) {
	clearWebnavEnv(t)
	t.Setenv("WEBNAV_MAX_STEPS", "not-a-number")

	cfg := config.Load()

	assert.Equal(t, 25, cfg.MaxSteps)
}

func clearWebnavEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WEBNAV_MODEL_PROVIDER", "WEBNAV_HEADLESS", "WEBNAV_MAX_STEPS",
		"WEBNAV_SESSION", "WEBNAV_USER_DATA_DIR", "WEBNAV_LOCALE", "WEBNAV_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}
