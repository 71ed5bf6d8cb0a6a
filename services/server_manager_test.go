package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/diagram"
	"imc-manager/internal/models"
)

// healthyBackend 所有接口都正常的后端
func healthyBackend(t *testing.T) *fakeBackend {
	b := newFakeBackend(t)
	b.json(routeOverview, 200, `{"totalServices":3,"activeServices":3,"overallStatus":"HEALTHY",
		"services":[{"name":"hdfsWatcher","status":"STOPPED","url":"http://hdfs"}]}`)
	b.json(routeFiles, 200, `{"files":[{"name":"a.pdf","size":2048,"state":"processed"}]}`)
	b.json(routeTextProc, 200, `{"processedCount":1}`)
	b.json(routeEmbedProc, 200, `{"processedCount":1}`)
	b.json(routeMetrics, 200, `{"telematicsMessages":42}`)
	for _, name := range []string{"hdfsWatcher", "textProc", "embedProc"} {
		b.json("GET /api/proxy/"+name+"/api/processing/state", 200, `{"enabled":true}`)
	}
	b.handle("GET /stream", func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(w)
		writeEvent(w, "data: {\"app\":\"textproc\",\"status\":\"STARTED\"}\n\n")
		<-r.Context().Done()
	})
	return b
}

func TestServerCheckBeforeFirstPoll(t *testing.T) {
	b := newFakeBackend(t)
	cfg := testConfig(b.srv.URL)
	client := b.client()
	s := newServer(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)))

	res := s.Check()
	if res.TotalChecks != 4+len(cfg.Components) {
		t.Errorf("TotalChecks = %d", res.TotalChecks)
	}
	if res.PassedChecks != 0 || res.OverallStatus != "error" {
		t.Errorf("check = %+v", res)
	}
	for _, item := range res.Items {
		if item.Name == "component:textProc" && item.Detail != string(models.StateUnknown) {
			t.Errorf("unpolled component detail = %q, want UNKNOWN", item.Detail)
		}
	}
}

/**
 * Test checks and health against a fully healthy backend
 * @param {*testing.T} t - Testing framework instance
 */
func TestServerCheckHealthy(t *testing.T) {
	b := healthyBackend(t)
	cfg := testConfig(b.srv.URL)
	client := b.client()
	s := newServer(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)))
	s.Stream().Start(context.Background())
	defer s.Stream().Stop()

	s.Aggregator().PollAll(context.Background())
	waitFor(t, 2*time.Second, func() bool { return s.Stream().Connected() })

	res := s.Check()
	if res.OverallStatus != "healthy" || res.FailedChecks != 0 {
		t.Errorf("check = %+v", res)
	}

	health := s.GetHealthz()
	if health.Status != "UP" || health.Metrics.ActiveComponents != 3 || health.Metrics.TotalComponents != 3 {
		t.Errorf("health = %+v", health)
	}
	if !health.Metrics.StreamConnected {
		t.Error("health reports stream disconnected")
	}
}

func TestDashboardServiceScene(t *testing.T) {
	b := healthyBackend(t)
	cfg := testConfig(b.srv.URL)
	client := b.client()
	s := newServer(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)))
	s.Aggregator().PollAll(context.Background())

	states := ServiceStates(s.Aggregator().Snapshot())
	if got := states["hdfsWatcher"]; got.Status != "STARTED" || got.URL != "http://hdfs" {
		t.Errorf("merged state = %+v, component result should win over overview", got)
	}

	scene, err := s.Dashboard().Scene("RAG")
	if err != nil {
		t.Fatalf("Scene() error = %v", err)
	}
	if scene.Name != "rag" || len(scene.Nodes) == 0 {
		t.Errorf("scene = %s with %d nodes", scene.Name, len(scene.Nodes))
	}
	if _, err := s.Dashboard().Scene("nope"); err != diagram.ErrUnknownTopology {
		t.Errorf("unknown scene error = %v", err)
	}

	dash := s.Dashboard().Dashboard(10)
	if !dash.Overview.Loaded || len(dash.Files) != 1 {
		t.Errorf("dashboard overview = %+v, files = %v", dash.Overview, dash.Files)
	}
}

/**
 * Test that a reload swaps the components of a running server
 * @param {*testing.T} t - Testing framework instance
 */
func TestServerReloadAppliesNewConfig(t *testing.T) {
	b := healthyBackend(t)
	cfg := testConfig(b.srv.URL)
	cfg.Services = []config.ServiceConfig{{Name: "alpha", DisplayName: "Alpha"}}
	client := b.client()
	s := newServer(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)))
	s.Start(context.Background())
	defer s.Stop()

	oldAgg := s.Aggregator()
	next := testConfig(b.srv.URL)
	next.Services = []config.ServiceConfig{{Name: "beta", DisplayName: "Beta"}}
	next.Server.Address = ":9090"

	pending := s.Reload(next)
	if len(pending) != 1 || pending[0] != "server" {
		t.Errorf("restart required = %v, want [server]", pending)
	}
	if s.Config() != next || s.Aggregator() == oldAgg {
		t.Fatal("server still holds the components built from the old config")
	}
	if got := s.Dashboard().Services(); len(got) != 1 || got[0].Name != "beta" {
		t.Errorf("services after reload = %+v", got)
	}
	waitFor(t, 2*time.Second, func() bool { return s.Stream().Connected() })
}

func TestRestartRequired(t *testing.T) {
	old := testConfig("http://a")
	next := testConfig("http://b")
	next.Polling.Overview = time.Second
	if got := RestartRequired(old, next); len(got) != 0 {
		t.Errorf("backend and polling changes reported as restart only: %v", got)
	}
	next.Auth.Username = "ops"
	next.Log.Level = "debug"
	got := RestartRequired(old, next)
	if len(got) != 2 || got[0] != "auth" || got[1] != "log" {
		t.Errorf("RestartRequired() = %v", got)
	}
}
