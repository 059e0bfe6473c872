package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/models"
)

func TestGetBenchmarks_Success(t *testing.T) {
	env := setupTestEnv(t)
	age := 42
	env.Service.result = &benchmarks.Result{
		Data:      []models.BenchmarkRecord{{Model: "GPT-OSS", Concurrency: 9999}},
		Runs:      []models.WorkflowRun{{ID: 7}},
		Total:     1,
		RunsCount: 1,
		Workflow:  "full-sweep-1k8k-scheduler.yml",
		Cached:    true,
		CacheAge:  &age,
	}

	status, body := env.get(t, "/api/benchmarks?days=14&workflow=full-sweep-1k8k-scheduler.yml&refresh=true")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, 42.0, body["cacheAge"])
	assert.Equal(t, 1.0, body["total"])
	assert.Equal(t, 1.0, body["runsCount"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, 9999.0, data[0].(map[string]any)["concurrency"])

	require.Len(t, env.Service.requests, 1)
	assert.Equal(t, benchmarks.Request{Days: 14, Workflow: "full-sweep-1k8k-scheduler.yml", ForceRefresh: true}, env.Service.requests[0])
}

func TestGetBenchmarks_DefaultsLeftToService(t *testing.T) {
	env := setupTestEnv(t)

	status, body := env.get(t, "/api/benchmarks?refresh=1")
	assert.Equal(t, 200, status)
	_, hasAge := body["cacheAge"]
	assert.False(t, hasAge)

	require.Len(t, env.Service.requests, 1)
	assert.Equal(t, benchmarks.Request{}, env.Service.requests[0], "only refresh=true bypasses the cache")
}

func TestGetBenchmarks_InvalidDays(t *testing.T) {
	env := setupTestEnv(t)
	for _, days := range []string{"abc", "0", "-5", "1.5"} {
		status, body := env.get(t, "/api/benchmarks?days="+days)
		assert.Equal(t, 400, status, days)
		assert.Equal(t, "Invalid days", body["error"])
		assert.Equal(t, []any{}, body["data"])
		assert.Equal(t, []any{}, body["runs"])
	}
	assert.Empty(t, env.Service.requests)
}

func TestGetBenchmarks_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails any
	}{
		{
			name:       "unauthorized",
			err:        &benchmarks.RequestError{Kind: benchmarks.ErrKindUnauthorized, Message: "GITHUB_TOKEN not configured"},
			wantStatus: 401,
			wantError:  "GITHUB_TOKEN not configured",
		},
		{
			name:        "invalid workflow",
			err:         &benchmarks.RequestError{Kind: benchmarks.ErrKindInvalid, Message: "Invalid workflow", Details: "a/b"},
			wantStatus:  400,
			wantError:   "Invalid workflow",
			wantDetails: "a/b",
		},
		{
			name:        "fetch failure",
			err:         &benchmarks.RequestError{Kind: benchmarks.ErrKindFetch, Message: "Failed to fetch benchmark data", Details: "boom"},
			wantStatus:  500,
			wantError:   "Failed to fetch benchmark data",
			wantDetails: "boom",
		},
		{
			name:        "untyped error",
			err:         errors.New("surprise"),
			wantStatus:  500,
			wantError:   "Failed to fetch benchmark data",
			wantDetails: "surprise",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			env.Service.result, env.Service.err = nil, tt.err

			status, body := env.get(t, "/api/benchmarks")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantDetails, body["details"])
			assert.Equal(t, []any{}, body["data"])
			assert.Equal(t, []any{}, body["runs"])
		})
	}
}
