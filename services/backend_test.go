package services

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/rpc"
)

// fakeBackend 按路径返回固定响应的后端, 记录每个路径的请求次数
type fakeBackend struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	srv    *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t:      t,
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.hits[key]++
		h, ok := b.routes[key]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

// handle 注册路由, key形如 "GET /api/metrics"
func (b *fakeBackend) handle(key string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = h
}

// json 注册返回固定JSON的路由
func (b *fakeBackend) json(key string, status int, body string) {
	b.handle(key, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func (b *fakeBackend) client() rpc.HTTPClient {
	c := rpc.NewHTTPClient(&rpc.HTTPConfig{Network: "tcp", BaseURL: b.srv.URL, Timeout: 2 * time.Second})
	b.t.Cleanup(func() { c.Close() })
	return c
}

// testConfig 轮询周期足够长, 只有显式触发才会再次拉取
func testConfig(baseURL string) *config.AppConfig {
	return &config.AppConfig{
		Backend: config.BackendConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Stream: config.StreamConfig{
			Path:              "/stream",
			BufferSize:        50,
			ReconnectDelay:    10 * time.Millisecond,
			MaxReconnectDelay: 40 * time.Millisecond,
		},
		Polling: config.PollingConfig{
			Components: time.Hour,
			Overview:   time.Hour,
			Files:      time.Hour,
			Progress:   time.Hour,
			Telemetry:  time.Hour,
		},
		Commands: config.CommandsConfig{
			RefreshDelay:        20 * time.Millisecond,
			ServiceRefreshDelay: 10 * time.Millisecond,
		},
		Discovery: config.DiscoveryConfig{
			Service:     "imc-db-server",
			TTL:         time.Minute,
			FallbackURL: "http://fallback.invalid",
			Instance:    "db01",
		},
		Components: config.DefaultComponents(),
		Services:   config.DefaultServices(),
	}
}
