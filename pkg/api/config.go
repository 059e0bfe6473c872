package api

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/github"
)

// Config holds server configuration
type Config struct {
	Port    int
	DevMode bool

	GitHubToken     string
	GitHubRepo      string
	GitHubAPIURL    string
	UpstreamRetries int

	CacheDir    string
	CacheTTL    time.Duration
	DefaultDays int
	MaxRuns     int

	// WorkflowsFile is an optional YAML workflow catalog; empty uses the built-in one.
	WorkflowsFile string

	SlackWebhookURL string
	SlackChannel    string

	CORSOrigins string
}

// LoadConfigFromEnv builds a Config from environment variables, falling back
// to defaults for anything unset or unparsable.
func LoadConfigFromEnv() Config {
	return Config{
		Port:            envInt("PORT", 8080),
		DevMode:         envBool("DEV_MODE"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		GitHubRepo:      envString("GITHUB_REPO", github.DefaultRepo),
		GitHubAPIURL:    envString("GITHUB_API_URL", github.DefaultAPIBase),
		UpstreamRetries: envInt("UPSTREAM_RETRIES", 2),
		CacheDir:        envString("CACHE_DIR", ".cache"),
		CacheTTL:        envDuration("CACHE_TTL", benchmarks.DefaultCacheTTL),
		DefaultDays:     envInt("DEFAULT_DAYS", benchmarks.DefaultDays),
		MaxRuns:         envInt("MAX_RUNS", benchmarks.DefaultOptions().MaxRuns),
		WorkflowsFile:   os.Getenv("WORKFLOWS_FILE"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SlackChannel:    os.Getenv("SLACK_CHANNEL"),
		CORSOrigins:     envString("CORS_ORIGINS", "*"),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] Ignoring invalid %s=%q: %v", key, v, err)
		return def
	}
	return n
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[Config] Ignoring invalid %s=%q", key, v)
		return def
	}
	return d
}
