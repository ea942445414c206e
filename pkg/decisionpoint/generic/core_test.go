//
//  Copyright © PageSentry Labs. All rights reserved.
//

package generic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginetest "github.com/pagesentry/permengine/internal/engine/test"
	"github.com/pagesentry/permengine/pkg/decisionpoint"
	"github.com/pagesentry/permengine/pkg/engine"
)

// findFreePort returns a port unlikely to collide with other tests.
func findFreePort(t *testing.T) int {
	return 18000 + (os.Getpid() % 1000)
}

func setupTestEngine(t *testing.T) engine.Engine {
	eng, _, err := enginetest.NewTestEngine()
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

// startServerInBackground starts a server and waits for it to be ready
func startServerInBackground(t *testing.T, eng engine.Engine, port int) decisionpoint.Server {
	server, err := CreateServer(eng, port, nil)
	require.NoError(t, err)
	require.NotNil(t, server)

	// Give server time to fully start and be ready to accept connections
	time.Sleep(300 * time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestAuthorizeEndpoint(t *testing.T) {
	eng := setupTestEngine(t)
	port := findFreePort(t)
	startServerInBackground(t, eng, port)

	base := fmt.Sprintf("http://localhost:%d", port)

	resp := postJSON(t, base+"/v1/authorize", AuthorizeRequest{
		PrincipalID:  "alice",
		ResourcePath: "/docs/guide",
		Action:       "read_pages",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result AuthorizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "allow", result.Effect)
	assert.Equal(t, "matched-rule:staff-docs", result.Reason)

	// bob hits the contractors deny under /internal.
	resp = postJSON(t, base+"/v1/authorize", AuthorizeRequest{
		PrincipalID:  "bob",
		ResourcePath: "/internal/payroll",
		Action:       "read_pages",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "deny", result.Effect)
	assert.Equal(t, "contractors-no-internal", result.MatchedRuleID)
}

func TestAuthorizeEndpointValidation(t *testing.T) {
	eng := setupTestEngine(t)
	port := findFreePort(t) + 1
	startServerInBackground(t, eng, port)

	base := fmt.Sprintf("http://localhost:%d", port)

	resp := postJSON(t, base+"/v1/authorize", AuthorizeRequest{
		PrincipalID:  "alice",
		ResourcePath: "/docs/guide",
		Action:       "launch_missiles",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"/v1/authorize", AuthorizeRequest{
		Action: "read_pages",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPermissionsEndpoint(t *testing.T) {
	eng := setupTestEngine(t)
	port := findFreePort(t) + 2
	startServerInBackground(t, eng, port)

	url := fmt.Sprintf("http://localhost:%d/v1/permissions?principal_id=alice&resource_path=/docs/guide", port)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result PermissionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "alice", result.PrincipalID)
	assert.Equal(t, "allow", result.Permissions["read_pages"])
	assert.Equal(t, "deny", result.Permissions["admin"])
}

func TestInvalidateEndpoint(t *testing.T) {
	eng := setupTestEngine(t)
	port := findFreePort(t) + 3
	startServerInBackground(t, eng, port)

	base := fmt.Sprintf("http://localhost:%d", port)

	resp := postJSON(t, base+"/v1/invalidate", InvalidateRequest{Scope: "user", ID: "alice"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, base+"/v1/invalidate", InvalidateRequest{Scope: "all"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, base+"/v1/invalidate", InvalidateRequest{Scope: "group"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"/v1/invalidate", InvalidateRequest{Scope: "bogus"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	eng := setupTestEngine(t)
	port := findFreePort(t) + 4
	startServerInBackground(t, eng, port)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/healthz", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
