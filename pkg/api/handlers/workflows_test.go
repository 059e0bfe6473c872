package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWorkflows(t *testing.T) {
	env := setupTestEnv(t)

	status, body := env.get(t, "/api/workflows")
	assert.Equal(t, 200, status)
	assert.Equal(t, "full-sweep-1k1k-scheduler.yml", body["default"])

	list := body["workflows"].([]any)
	require.Len(t, list, 3)
	first := list[0].(map[string]any)
	assert.Equal(t, "full-sweep-1k1k-scheduler.yml", first["file"])
	assert.Equal(t, "1k/1k", first["label"])
	assert.Equal(t, 1024.0, first["isl"])
}
