package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imc-manager/internal/env"
)

/**
 * Test GET and POST against a mock backend
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - GET returns the body for a 2xx response
 * - POST always carries a JSON content type and forwards extra headers
 * - Non-2xx responses are returned with Error filled, not as a Go error
 */
func TestHTTPClientWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/test":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message": "test response"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/services/textproc/start":
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %q", ct)
			}
			if id := r.Header.Get("X-Request-ID"); id != "req-1" {
				t.Errorf("Expected request id header, got %q", id)
			}
			w.WriteHeader(http.StatusAccepted)
		case r.URL.Path == "/api/broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"code":"x","error":"backend exploded"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(&HTTPConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	defer client.Close()
	ctx := context.Background()

	// 测试GET请求
	resp, err := client.Get(ctx, "/api/test", nil)
	if err != nil {
		t.Fatalf("Failed to send GET request: %v", err)
	}
	if !resp.OK() {
		t.Errorf("Expected 2xx, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := resp.DecodeJSON(&body); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if body["message"] != "test response" {
		t.Errorf("Expected message 'test response', got %v", body["message"])
	}

	// 测试POST请求
	header := http.Header{}
	header.Set("X-Request-ID", "req-1")
	resp, err = client.Post(ctx, "/api/services/textproc/start", nil, header)
	if err != nil {
		t.Fatalf("Failed to send POST request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected status code %d, got %d", http.StatusAccepted, resp.StatusCode)
	}

	// 非2xx不返回error
	resp, err = client.Get(ctx, "/api/broken", nil)
	if err != nil {
		t.Fatalf("Expected response for non-2xx, got error %v", err)
	}
	if resp.OK() || resp.Error != "backend exploded" {
		t.Errorf("Expected parsed error body, got %d %q", resp.StatusCode, resp.Error)
	}
}

/**
 * Test query parameter handling
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Params map and an inline query string are merged
 */
func TestHTTPClientWithQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "10" || q.Get("name") != "test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewHTTPClient(&HTTPConfig{BaseURL: server.URL, Timeout: time.Second})
	resp, err := client.Get(context.Background(), "/api/search?limit=10", map[string]interface{}{"name": "test"})
	if err != nil {
		t.Fatalf("Failed to send GET request with params: %v", err)
	}
	if !resp.OK() {
		t.Errorf("Expected query params to be forwarded, got %d", resp.StatusCode)
	}
}

/**
 * Test that a hung backend is cut off by the per request timeout
 * @param {*testing.T} t - Testing framework instance
 */
func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(&HTTPConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), "/slow", nil)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

/**
 * Test basic auth and the streaming Open call
 * @param {*testing.T} t - Testing framework instance
 */
func TestHTTPClientOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {}\n\n")
	}))
	defer server.Close()

	client := NewHTTPClient(&HTTPConfig{BaseURL: server.URL, Username: "admin", Password: "secret"})
	resp, err := client.Open(context.Background(), "/stream", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "data: {}") {
		t.Errorf("unexpected body %q", data)
	}

	anon := NewHTTPClient(&HTTPConfig{BaseURL: server.URL})
	if _, err := anon.Open(context.Background(), "/stream", nil); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected HTTP 401 error, got %v", err)
	}
}

/**
 * Test the unix socket transport used by local CLI commands
 * @param {*testing.T} t - Testing framework instance
 */
func TestHTTPClientUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "imc.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unsupported: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"UP"}`))
	})}
	go srv.Serve(ln)
	defer srv.Close()

	client := NewHTTPClient(&HTTPConfig{Network: "unix", Address: sock, BaseURL: "http://localhost", Timeout: time.Second})
	resp, err := client.Get(context.Background(), "/healthz", nil)
	if err != nil {
		t.Fatalf("Get over unix socket: %v", err)
	}
	if !resp.OK() {
		t.Errorf("Expected 2xx, got %d", resp.StatusCode)
	}
}

/**
 * Test socket path generation functionality
 * @param {*testing.T} t - Testing framework instance
 */
func TestSocketPathGeneration(t *testing.T) {
	socketPath := GetSocketPath("test.sock", "")
	expectedPath := filepath.Join(env.RunDir(), "test.sock")
	if socketPath != expectedPath {
		t.Errorf("Expected socket path %s, got %s", expectedPath, socketPath)
	}

	customDir := "/tmp/custom"
	socketPath = GetSocketPath("test.sock", customDir)
	expectedPath = filepath.Join(customDir, "test.sock")
	if socketPath != expectedPath {
		t.Errorf("Expected socket path %s, got %s", expectedPath, socketPath)
	}
}

func TestBuildURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"http://host:8080", "/api/services", "http://host:8080/api/services"},
		{"http://host:8080/", "/stream", "http://host:8080/stream"},
		{"http://host/prefix", "/api/metrics", "http://host/prefix/api/metrics"},
		{"http://host", "/api/x?limit=5", "http://host/api/x?limit=5"},
	}
	for _, c := range cases {
		got, err := buildURL(c.base, c.path, nil)
		if err != nil {
			t.Fatalf("buildURL(%q,%q): %v", c.base, c.path, err)
		}
		if got != c.want {
			t.Errorf("buildURL(%q,%q) = %q, want %q", c.base, c.path, got, c.want)
		}
	}
}

/**
 * Benchmark HTTP client performance
 * @param {*testing.B} b - Benchmark testing framework instance
 */
func BenchmarkHTTPClient(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": "benchmark response"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(&HTTPConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := client.Get(ctx, "/api/benchmark", nil); err != nil {
				b.Fatalf("HTTP request failed: %v", err)
			}
		}
	})
}
