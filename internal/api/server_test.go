package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deco-sites/bundler/internal/bundler"
	"github.com/deco-sites/bundler/internal/config"
)

func TestHealthEndpoint(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewServerFailsWhenCLIBackendUnavailable(t *testing.T) {
	if _, err := bundler.NewCLI("", time.Second); err == nil {
		t.Skip("esbuild binary installed, cli backend is available")
	}

	server, err := NewServer(&config.Config{
		Build: config.BuildConfig{
			Backend: config.BackendCLI,
			Timeout: 30 * time.Second,
		},
	})

	assert.Nil(t, server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cli backend")
}

func TestGetOnBuildPathIsNotFound(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("GET", "/build", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 404, resp.StatusCode)
}
