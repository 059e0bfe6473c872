package api

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/github"
	"github.com/inferencemax/dashboard/pkg/github/githubtest"
	"github.com/inferencemax/dashboard/pkg/models"
)

func testConfig(t *testing.T, upstream string) Config {
	return Config{
		Port:         0,
		GitHubToken:  "ghp_test",
		GitHubRepo:   github.DefaultRepo,
		GitHubAPIURL: upstream,
		CacheDir:     t.TempDir(),
		CacheTTL:     benchmarks.DefaultCacheTTL,
		DefaultDays:  30,
		CORSOrigins:  "*",
	}
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	opts := benchmarks.DefaultOptions()
	opts.RunDelay, opts.BatchDelay = 0, 0
	s, err := newServer(cfg, opts)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, path string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://127.0.0.1:1"))

	resp, body := do(t, s, "/health")
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = do(t, s, "/nope")
	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
}

func TestServer_NoToken(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.GitHubToken = ""
	s := newTestServer(t, cfg)

	resp, body := do(t, s, "/api/benchmarks")
	assert.Equal(t, 401, resp.StatusCode)
	assert.JSONEq(t, `{"error":"GITHUB_TOKEN not configured","data":[],"runs":[]}`, string(body))
}

func TestServer_BenchmarksEndToEnd(t *testing.T) {
	upstream := githubtest.NewServer(t)
	upstream.Runs = []models.WorkflowRun{githubtest.Run(1, time.Now().Add(-time.Hour))}
	upstream.Artifacts[1] = []github.Artifact{{ID: 11, Name: "results_all"}}
	upstream.Archives[11] = githubtest.Zip(t, githubtest.File{
		Name: "results.json",
		Body: `{"model":"Qwen/Qwen3-235B","hw":"mi355x","conc":64,"median_tpot":0.02}`,
	})

	s := newTestServer(t, testConfig(t, upstream.URL))

	resp, body := do(t, s, "/api/benchmarks?days=7&workflow=full-sweep-1k1k-scheduler.yml")
	require.Equal(t, 200, resp.StatusCode, string(body))

	var res benchmarks.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Cached)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Qwen", res.Data[0].Model)
	assert.Equal(t, "MI355X", res.Data[0].Hardware)
	assert.InDelta(t, 20.0, res.Data[0].TPOT, 1e-9)
	assert.Equal(t, 1, res.RunsCount)

	resp, body = do(t, s, "/api/benchmarks?days=7&workflow=full-sweep-1k1k-scheduler.yml")
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Cached)

	resp, body = do(t, s, "/metrics")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), `benchdash_upstream_requests_total{code="200",endpoint="runs"} 1`)
	assert.Contains(t, string(body), `benchdash_cache_lookups_total{result="hit",tier="memory"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer_BadRequests(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://127.0.0.1:1"))

	resp, _ := do(t, s, "/api/benchmarks?days=x")
	assert.Equal(t, 400, resp.StatusCode)

	resp, body := do(t, s, "/api/benchmarks?workflow=bad%2Fname")
	assert.Equal(t, 400, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid workflow")
}

func TestServer_Workflows(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://127.0.0.1:1"))

	resp, body := do(t, s, "/api/workflows")
	assert.Equal(t, 200, resp.StatusCode)
	var out struct {
		Workflows []map[string]any `json:"workflows"`
		Default   string           `json:"default"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Workflows, 3)
	assert.Equal(t, "full-sweep-1k1k-scheduler.yml", out.Default)
}
