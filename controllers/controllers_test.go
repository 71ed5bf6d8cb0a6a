package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/models"
	"imc-manager/internal/sse"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newBackend 模拟平台后端, start接口对textproc返回500
func newBackend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	reply := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/api/services/rag-pipeline/overview", reply(200,
		`{"totalServices":3,"activeServices":2,"overallStatus":"DEGRADED","services":[{"name":"textproc","status":"STARTED"}]}`))
	mux.HandleFunc("/api/services/hdfswatcher/files", reply(200,
		`{"files":[{"name":"doc1.pdf","size":2048000,"state":"processed"}]}`))
	mux.HandleFunc("/api/services/hdfswatcher/start", reply(200, `{"status":"ok","message":"started"}`))
	mux.HandleFunc("/api/services/textproc/start", reply(500, `{"error":"cannot start"}`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, auth bool) (*services.Server, *gin.Engine) {
	backend := newBackend(t)
	cfg := &config.AppConfig{
		Backend: config.BackendConfig{BaseURL: backend.URL, Timeout: 2 * time.Second},
		Stream:  config.StreamConfig{Path: "/stream", BufferSize: 10, ReconnectDelay: time.Second, MaxReconnectDelay: time.Second},
		Polling: config.PollingConfig{Components: time.Hour, Overview: time.Hour, Files: time.Hour, Progress: time.Hour, Telemetry: time.Hour},
		Commands: config.CommandsConfig{
			RefreshDelay:        10 * time.Millisecond,
			ServiceRefreshDelay: 10 * time.Millisecond,
		},
		Discovery: config.DiscoveryConfig{
			Service:     "imc-db-server",
			TTL:         time.Minute,
			FallbackURL: backend.URL,
			Instance:    "db01",
		},
		Components: config.DefaultComponents(),
		Services:   config.DefaultServices(),
	}
	if auth {
		cfg.Auth = config.AuthConfig{Username: "ops", Password: "secret"}
	}
	server := services.NewServer(cfg)
	t.Cleanup(server.Stop)
	server.Aggregator().PollAll(context.Background())

	router, err := NewRouter(server)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return server, router
}

func do(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

/**
 * Test public health routes
 * @param {*testing.T} t - Testing framework instance
 */
func TestHealthRoutes(t *testing.T) {
	_, router := newTestServer(t, true)

	w := do(router, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", w.Code)
	}
	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if health.Status != "UP" || health.Metrics.TotalComponents != 3 {
		t.Errorf("health = %+v", health)
	}

	w = do(router, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"UP"`) {
		t.Errorf("/api/health = %d %s", w.Code, w.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	_, router := newTestServer(t, true)

	if w := do(router, http.MethodGet, "/imc/api/v1/dashboard"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated dashboard = %d, want 401", w.Code)
	}
	if w := do(router, http.MethodGet, "/"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated page = %d, want 401", w.Code)
	}

	if w := do(router, http.MethodGet, "/api/info"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /api/info = %d, want 401", w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/imc/api/v1/dashboard", nil)
	req.SetBasicAuth("ops", "secret")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated dashboard = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/info", nil)
	req.SetBasicAuth("ops", "secret")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "IMC Manager") {
		t.Errorf("authenticated /api/info = %d %s", w.Code, w.Body.String())
	}
}

/**
 * Test snapshot routes against a polled backend
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Overview counts are shown verbatim
 * - File rows carry formatted size and state label
 */
func TestSnapshotRoutes(t *testing.T) {
	_, router := newTestServer(t, false)

	w := do(router, http.MethodGet, "/imc/api/v1/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("/overview = %d", w.Code)
	}
	var overview struct {
		Summary struct {
			ActiveLabel string `json:"activeLabel"`
			TotalLabel  string `json:"totalLabel"`
			Badge       string `json:"badge"`
		} `json:"summary"`
	}
	json.Unmarshal(w.Body.Bytes(), &overview)
	if overview.Summary.ActiveLabel != "Active Components: 2" || overview.Summary.TotalLabel != "out of 3 total" ||
		overview.Summary.Badge != "DEGRADED" {
		t.Errorf("overview summary = %+v", overview.Summary)
	}

	w = do(router, http.MethodGet, "/imc/api/v1/files")
	var files struct {
		Files []models.FileRecord `json:"files"`
	}
	json.Unmarshal(w.Body.Bytes(), &files)
	if len(files.Files) != 1 {
		t.Fatalf("files = %s", w.Body.String())
	}
	if f := files.Files[0]; f.Name != "doc1.pdf" || f.Size != "2.0 MB" || f.Label != "Processed" {
		t.Errorf("file row = %+v", f)
	}

	w = do(router, http.MethodGet, "/imc/api/v1/components")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"badge":"ERROR"`) {
		t.Errorf("/components = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodGet, "/imc/api/v1/services/textproc")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"STARTED"`) {
		t.Errorf("/services/textproc = %d %s", w.Code, w.Body.String())
	}
	if w = do(router, http.MethodGet, "/imc/api/v1/services/nope"); w.Code != http.StatusNotFound {
		t.Errorf("/services/nope = %d, want 404", w.Code)
	}
}

func TestDiagramRoute(t *testing.T) {
	_, router := newTestServer(t, false)

	w := do(router, http.MethodGet, "/imc/api/v1/diagram/rag.svg")
	if w.Code != http.StatusOK {
		t.Fatalf("/diagram/rag.svg = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/svg+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `id="diagram-rag"`) {
		t.Error("svg root id missing")
	}

	w = do(router, http.MethodGet, "/imc/api/v1/diagram/telemetry?format=json")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"telemetry"`) {
		t.Errorf("scene json = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodGet, "/imc/api/v1/diagram/nope")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "diagram.notexist") {
		t.Errorf("unknown diagram = %d %s", w.Code, w.Body.String())
	}
}

/**
 * Test command status mapping
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Backend failure is answered with the upstream status and message
 * - Unknown services, actions and unsupported resets never reach the backend
 */
func TestServiceActionRoutes(t *testing.T) {
	_, router := newTestServer(t, false)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/imc/api/v1/services/hdfswatcher/start", http.StatusOK, `"message":"started"`},
		{"/imc/api/v1/services/textproc/start", http.StatusInternalServerError, "HTTP 500: cannot start"},
		{"/imc/api/v1/services/gemfire/start", http.StatusNotFound, "service.notexist"},
		{"/imc/api/v1/services/textproc/explode", http.StatusBadRequest, "command.unknown"},
		{"/imc/api/v1/services/embedproc/reset", http.StatusBadRequest, "service.not_resettable"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(router, http.MethodPost, tt.path)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body = %s, want %q", w.Body.String(), tt.contains)
			}
		})
	}
}

func TestCommandUpstreamStatus(t *testing.T) {
	_, router := newTestServer(t, false)
	// reprocess接口未注册, 后端返回404
	w := do(router, http.MethodPost, "/imc/api/v1/files/reprocess")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "command.failed") {
		t.Errorf("reprocess = %d %s", w.Code, w.Body.String())
	}
}

func TestPages(t *testing.T) {
	_, router := newTestServer(t, false)

	tests := []struct {
		path     string
		contains []string
	}{
		{"/", []string{"RAG Pipeline", `id="diagram-rag"`, "Recent Events"}},
		{"/services", []string{"Registered Services", "/imc/api/v1/services/textproc/reset", "Active Components: 2"}},
		{"/files", []string{"doc1.pdf", "2.0 MB"}},
		{"/telemetry?panel=fleet", []string{`id="diagram-telemetry"`, "Safe Driver Insights", "Sarah Johnson"}},
		{"/static/app.js", []string{"EventSource"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(router, http.MethodGet, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			for _, s := range tt.contains {
				if !strings.Contains(w.Body.String(), s) {
					t.Errorf("page missing %q", s)
				}
			}
		})
	}
}

/**
 * Test the browser event stream
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - The first event is the current status
 * - A refresh signal is forwarded as refresh-services
 */
func TestStreamRoute(t *testing.T) {
	server, router := newTestServer(t, false)
	ts := httptest.NewServer(router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/imc/api/v1/stream?diagram=rag", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	parser := sse.NewParser(resp.Body)
	ev, err := parser.Next()
	if err != nil || ev.Type != SSEStatus {
		t.Fatalf("first event = %+v, %v", ev, err)
	}
	if !strings.Contains(ev.Data, `"health"`) {
		t.Errorf("status data = %s", ev.Data)
	}

	server.Refresher().Publish(services.EventRefreshServices)
	ev, err = parser.Next()
	if err != nil || ev.Type != SSERefresh {
		t.Errorf("second event = %+v, %v", ev, err)
	}

	if w := do(router, http.MethodGet, "/imc/api/v1/stream?diagram=nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown diagram stream = %d, want 404", w.Code)
	}
}

/**
 * Test that POST /reload reaches the running server
 * @param {*testing.T} t - Testing framework instance
 */
func TestReloadAppliesToRunningServer(t *testing.T) {
	server, router := newTestServer(t, false)
	backend := server.Config().Backend.BaseURL

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "backend:\n  base_url: " + backend + "\nservices:\n  - name: beta\n    display_name: Beta\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	config.SetConfigFile(path)
	t.Cleanup(func() {
		config.SetConfigFile("")
		_ = config.ReloadConfig()
	})

	w := do(router, http.MethodPost, "/imc/api/v1/reload")
	if w.Code != http.StatusOK {
		t.Fatalf("reload = %d %s", w.Code, w.Body.String())
	}
	var resp models.ReloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode reload: %v", err)
	}
	if resp.Status != "success" || !slices.Contains(resp.RestartRequired, "server") {
		t.Errorf("reload response = %+v", resp)
	}

	w = do(router, http.MethodGet, "/imc/api/v1/services")
	var details []models.ServiceDetail
	if err := json.Unmarshal(w.Body.Bytes(), &details); err != nil {
		t.Fatalf("decode services: %v", err)
	}
	if len(details) != 1 || details[0].Name != "beta" {
		t.Errorf("services after reload = %+v", details)
	}
}
