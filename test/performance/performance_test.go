//go:build performance

package performance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/events"
	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/server"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// EnvServerURL points the benchmarks at an already running server.
const EnvServerURL = "PERF_SERVER_URL"

// DefaultTimeout bounds every benchmark request.
const DefaultTimeout = 10 * time.Second

var (
	serverOnce sync.Once
	serverURL  string
)

// getOrStartServer returns the base URL of the server to benchmark. Without
// PERF_SERVER_URL an in-process server is started once per run.
func getOrStartServer(b *testing.B) string {
	b.Helper()

	if url := os.Getenv(EnvServerURL); url != "" {
		return url
	}

	serverOnce.Do(func() {
		serverURL = startLocalServer(b)
	})
	return serverURL
}

func startLocalServer(b *testing.B) string {
	b.Helper()

	apiLs, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatalf("Failed to listen: %v", err)
	}

	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.FrontendEnabled = false

	logger := zap.NewNop()
	hub := events.NewHub(logger, events.DefaultBufferSize)
	itemStore := store.Instrumented(store.NewMemoryStore(store.WithNotifier(hub)))
	srv := server.New(cfg, logger, itemStore, hub)

	// The server lives for the whole benchmark binary.
	go func() {
		if srvErr := srv.Serve(context.Background(), apiLs, nil); srvErr != nil {
			b.Logf("Server error: %v", srvErr)
		}
	}()

	baseURL := "http://" + apiLs.Addr().String()

	deadline := time.Now().Add(DefaultTimeout)
	for time.Now().Before(deadline) {
		resp, reqErr := http.Get(baseURL + "/ready")
		if reqErr == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	b.Fatalf("Server did not become ready within timeout")
	return ""
}

func doRequest(client *http.Client, method, url string, body []byte) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

// BenchmarkHealthEndpoint measures the baseline latency of the
// health check endpoint.
func BenchmarkHealthEndpoint(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	b.ResetTimer()
	for b.Loop() {
		status, _, err := doRequest(client, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			b.Fatalf("Health request failed: %v", err)
		}
		if status != http.StatusOK {
			b.Fatalf("Health: expected 200, got %d", status)
		}
	}
}

// BenchmarkCRUDCreate measures item creation under parallel load.
func BenchmarkCRUDCreate(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := counter.Add(1)
			payload, _ := json.Marshal(map[string]string{"name": fmt.Sprintf("Bench Item %d", idx)})

			status, _, err := doRequest(client, http.MethodPost, baseURL+"/api/items", payload)
			if err != nil {
				b.Errorf("Create request failed: %v", err)
				return
			}
			if status != http.StatusCreated {
				b.Errorf("Create: expected 201, got %d", status)
				return
			}
		}
	})
}

// BenchmarkCRUDRead measures the latency of reading an item.
func BenchmarkCRUDRead(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	payload, _ := json.Marshal(map[string]string{"name": "Bench Read Item"})
	status, body, err := doRequest(client, http.MethodPost, baseURL+"/api/items", payload)
	if err != nil || status != http.StatusCreated {
		b.Fatalf("Setup create failed: status %d, err %v", status, err)
	}

	var created model.Item
	if err := json.Unmarshal(body, &created); err != nil {
		b.Fatalf("Failed to parse created item: %v", err)
	}
	itemURL := baseURL + "/api/items/" + created.ID

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			readStatus, _, readErr := doRequest(client, http.MethodGet, itemURL, nil)
			if readErr != nil {
				b.Errorf("Read request failed: %v", readErr)
				return
			}
			if readStatus != http.StatusOK {
				b.Errorf("Read: expected 200, got %d", readStatus)
				return
			}
		}
	})
}

// BenchmarkConcurrentRequests measures list throughput at several
// concurrency levels.
func BenchmarkConcurrentRequests(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	for _, concurrency := range []int{1, 5, 10, 25} {
		b.Run(fmt.Sprintf("concurrency_%d", concurrency), func(b *testing.B) {
			b.SetParallelism(concurrency)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, _, err := doRequest(client, http.MethodGet, baseURL+"/api/items", nil); err != nil {
						b.Errorf("Concurrent request failed: %v", err)
						return
					}
				}
			})
		})
	}
}
