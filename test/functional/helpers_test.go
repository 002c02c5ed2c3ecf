//go:build functional

// Package functional runs end-to-end scenarios against a live server.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/events"
	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/server"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
)

// Default test configuration values.
const (
	DefaultTestHost         = "127.0.0.1"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
)

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Timeout        time.Duration
	MetricsEnabled bool
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:           DefaultTestHost,
		Timeout:        DefaultTestTimeout,
		MetricsEnabled: true,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}
	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}
	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	return cfg
}

// TestServer is a fully wired server listening on an ephemeral port.
type TestServer struct {
	Server   *server.Server
	Store    *store.MemoryStore
	Hub      *events.Hub
	BaseURL  string
	WSURL    string
	ProbeURL string
}

// StartTestServer starts a server and stops it when the test ends.
func StartTestServer(t *testing.T, mutate ...func(*config.Config)) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	cfg := config.Default()
	cfg.ShutdownTimeout = DefaultShutdownTimeout
	cfg.MetricsEnabled = testCfg.MetricsEnabled
	for _, m := range mutate {
		m(cfg)
	}

	apiLs, err := net.Listen("tcp", net.JoinHostPort(testCfg.Host, "0"))
	require.NoError(t, err)
	probeLs, err := net.Listen("tcp", net.JoinHostPort(testCfg.Host, "0"))
	require.NoError(t, err)

	logger := zap.NewNop()
	hub := events.NewHub(logger, events.DefaultBufferSize)
	itemStore := store.NewMemoryStore(store.WithNotifier(hub))
	srv := server.New(cfg, logger, itemStore, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, apiLs, probeLs)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Logf("server error: %v", err)
			}
		case <-time.After(testCfg.Timeout):
			t.Log("server did not stop within timeout")
		}
		hub.Close()
	})

	ts := &TestServer{
		Server:   srv,
		Store:    itemStore,
		Hub:      hub,
		BaseURL:  "http://" + apiLs.Addr().String(),
		WSURL:    "ws://" + apiLs.Addr().String(),
		ProbeURL: "http://" + probeLs.Addr().String(),
	}
	ts.waitForReady(t, testCfg.Timeout)
	return ts
}

// waitForReady polls /ready until the server answers 200.
func (ts *TestServer) waitForReady(t *testing.T, timeout time.Duration) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.BaseURL + "/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, timeout, 50*time.Millisecond, "server did not become ready")
}

// HTTPClient sends raw requests so tests can check exact wire behaviour.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		baseURL: baseURL,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes a request. A string or []byte body is sent verbatim, anything
// else is encoded as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var bodyReader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewBufferString(v)
	case []byte:
		bodyReader = bytes.NewBuffer(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// MustDo executes a request and fails the test on transport errors.
func (c *HTTPClient) MustDo(t *testing.T, method, path string, body any) *Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	resp, err := c.Do(ctx, method, path, body, nil)
	require.NoError(t, err)
	return resp
}

// ParseItem decodes a single item body.
func ParseItem(t *testing.T, resp *Response) model.Item {
	t.Helper()
	var item model.Item
	require.NoError(t, json.Unmarshal(resp.Body, &item), "body: %s", resp.Body)
	return item
}

// ParseItems decodes a list body.
func ParseItems(t *testing.T, resp *Response) []model.Item {
	t.Helper()
	var items []model.Item
	require.NoError(t, json.Unmarshal(resp.Body, &items), "body: %s", resp.Body)
	return items
}

// ParseError decodes an error body.
func ParseError(t *testing.T, resp *Response) model.ErrorResponse {
	t.Helper()
	var e model.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body, &e), "body: %s", resp.Body)
	return e
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
