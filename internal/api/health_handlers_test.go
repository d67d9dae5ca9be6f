package api

import (
	"net/http"
	"testing"

	json "github.com/go-json-experiment/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_AllComponentsHealthy(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[HealthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.Equal(t, "healthy", envelope.Data.Status)
	for _, name := range []string{"database", "cache", "search"} {
		component, ok := envelope.Data.Components[name]
		require.True(t, ok, "missing component %s", name)
		assert.Equal(t, "healthy", component.Status, "component %s", name)
	}
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
}
