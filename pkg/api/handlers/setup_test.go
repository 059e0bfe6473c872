package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/workflows"
)

// stubService records the requests it receives and answers with a canned result.
type stubService struct {
	mu       sync.Mutex
	requests []benchmarks.Request
	result   *benchmarks.Result
	err      error
}

func (s *stubService) Handle(_ context.Context, req benchmarks.Request) (*benchmarks.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result, s.err
}

type testEnv struct {
	App     *fiber.App
	Service *stubService
	Catalog *workflows.Catalog
}

// setupTestEnv creates a fresh Fiber app with the benchmark and workflow routes
// mounted on a stub service.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		App:     fiber.New(),
		Service: &stubService{result: &benchmarks.Result{Workflow: workflows.DefaultWorkflow}},
		Catalog: workflows.NewCatalog(),
	}
	env.App.Get("/api/benchmarks", NewBenchmarkHandlers(env.Service).GetBenchmarks)
	env.App.Get("/api/workflows", NewWorkflowHandlers(env.Catalog).ListWorkflows)
	return env
}

func (env *testEnv) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	resp, err := env.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}
