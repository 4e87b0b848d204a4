package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deco-sites/bundler/internal/bundler"
	"github.com/deco-sites/bundler/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:      8000,
			BodyLimit: 10 * 1024 * 1024,
		},
		Build: config.BuildConfig{
			Backend: config.BackendEngine,
			Timeout: 30 * time.Second,
		},
	}
	server, err := NewServer(cfg)
	require.NoError(t, err)
	return server
}

func postBuild(t *testing.T, server *Server, path string, body any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestHandleBuildSuccess(t *testing.T) {
	server := testServer(t)

	status, body := postBuild(t, server, "/", bundler.Request{
		Files: map[string]string{"index.ts": "export const x = 1;"},
	})

	require.Equal(t, 200, status)
	encoded, ok := body["base64"].(string)
	require.True(t, ok)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "1")
}

func TestHandleBuildAcceptsAnyPath(t *testing.T) {
	server := testServer(t)

	for _, path := range []string{"/", "/build", "/some/nested/path"} {
		status, _ := postBuild(t, server, path, bundler.Request{
			Files: map[string]string{"index.ts": "export const x = 1;"},
		})
		assert.Equal(t, 200, status, path)
	}
}

func TestHandleBuildMissingEntrypoint(t *testing.T) {
	server := testServer(t)

	status, body := postBuild(t, server, "/", bundler.Request{
		Files: map[string]string{"main.ts": "export const x = 1;"},
	})

	require.Equal(t, 500, status)
	errMsg, ok := body["error"].(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "entrypoint")
}

func TestHandleBuildEmptyFiles(t *testing.T) {
	server := testServer(t)

	status, body := postBuild(t, server, "/", bundler.Request{Files: map[string]string{}})

	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "files")
}

func TestHandleBuildInvalidBody(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleBuildEngineDiagnostics(t *testing.T) {
	server := testServer(t)

	status, body := postBuild(t, server, "/", bundler.Request{
		Files: map[string]string{"index.ts": `import "./nope.ts";`},
	})

	require.Equal(t, 500, status)
	errMsg, ok := body["error"].(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "nope.ts")
}
