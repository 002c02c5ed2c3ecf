//go:build e2e

package e2e_test

import (
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/items-api/internal/client"
)

// EnvServerURL names the running server under test.
const EnvServerURL = "E2E_SERVER_URL"

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultTimeout   = 15 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// e2eServerURL returns the base URL of the server under test.
func e2eServerURL() string {
	return strings.TrimSuffix(getEnvOrDefault(EnvServerURL, DefaultServerURL), "/")
}

// skipIfServerUnavailable checks whether the server is reachable
// and skips the test if it is not.
func skipIfServerUnavailable(t *testing.T) {
	t.Helper()

	base := e2eServerURL()
	c := &http.Client{Timeout: 3 * time.Second}
	resp, err := c.Get(base + "/health")
	if err != nil {
		t.Skipf("Server unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
}

// newAPIClient returns a typed client for the server under test.
func newAPIClient(t *testing.T) *client.Client {
	t.Helper()

	c, err := client.New(e2eServerURL(), client.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}))
	require.NoError(t, err)
	return c
}

// get performs a GET request and returns status code and body.
func get(t *testing.T, path string) (int, http.Header, []byte) {
	t.Helper()

	c := &http.Client{Timeout: DefaultTimeout}
	resp, err := c.Get(e2eServerURL() + path)
	require.NoError(t, err, "GET %s", path)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, body
}

// wsURL converts the server URL to its event stream URL.
func wsURL() string {
	base := e2eServerURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	default:
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/items"
}
