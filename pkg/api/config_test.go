package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DEV_MODE", "GITHUB_TOKEN", "GITHUB_REPO", "GITHUB_API_URL",
		"UPSTREAM_RETRIES", "CACHE_DIR", "CACHE_TTL", "DEFAULT_DAYS", "MAX_RUNS", "WORKFLOWS_FILE",
		"SLACK_WEBHOOK_URL", "SLACK_CHANNEL", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfigFromEnv()
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Empty(t, cfg.GitHubToken)
	assert.Equal(t, "InferenceMAX/InferenceMAX", cfg.GitHubRepo)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPIURL)
	assert.Equal(t, 2, cfg.UpstreamRetries)
	assert.Equal(t, ".cache", cfg.CacheDir)
	assert.Equal(t, 10*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30, cfg.DefaultDays)
	assert.Equal(t, 30, cfg.MaxRuns)
	assert.Equal(t, "*", cfg.CORSOrigins)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("MAX_RUNS", "not-a-number")
	t.Setenv("DEFAULT_DAYS", "7")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "ghp_x", cfg.GitHubToken)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30, cfg.MaxRuns, "invalid values fall back to the default")
	assert.Equal(t, 7, cfg.DefaultDays)
}
