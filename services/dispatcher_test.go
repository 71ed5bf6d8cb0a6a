package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"imc-manager/internal/rpc"
)

// countRefreshes 统计refresh-services广播次数
func countRefreshes(r *Refresher) *atomic.Int32 {
	var n atomic.Int32
	r.Subscribe(func(event string) {
		if event == EventRefreshServices {
			n.Add(1)
		}
	})
	return &n
}

/**
 * Test a successful service action
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - POSTs to /api/services/{name}/{action} with JSON content type and a request id
 * - Publishes exactly one refresh after the configured delay
 */
func TestDispatcherServiceActionSuccess(t *testing.T) {
	b := newFakeBackend(t)
	var reqID, contentType string
	b.handle("POST /api/services/hdfswatcher/start", func(w http.ResponseWriter, r *http.Request) {
		reqID = r.Header.Get("X-Request-ID")
		contentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"status":"ok","message":"started"}`))
	})
	refresher := NewRefresher()
	refreshes := countRefreshes(refresher)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), refresher)
	d.newID = func() string { return "req-42" }
	defer d.Close()

	res, err := d.Execute(context.Background(), CmdStart, "HDFSWatcher")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Service != "hdfswatcher" || res.Message != "started" || res.RequestID != "req-42" {
		t.Errorf("result = %+v", res)
	}
	if reqID != "req-42" || contentType != "application/json" {
		t.Errorf("headers: X-Request-ID=%q Content-Type=%q", reqID, contentType)
	}
	if refreshes.Load() != 0 {
		t.Error("refresh published before the delay")
	}
	waitFor(t, time.Second, func() bool { return refreshes.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestDispatcherFailureSkipsRefresh(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/textproc/stop", 500, `{"code":"x","error":"cannot stop"}`)
	refresher := NewRefresher()
	refreshes := countRefreshes(refresher)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), refresher)
	defer d.Close()

	_, err := d.Execute(context.Background(), CmdStop, "textproc")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if cmdErr.StatusCode != 500 || !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "cannot stop") {
		t.Errorf("error = %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	if refreshes.Load() != 0 {
		t.Error("refresh published after a failed command")
	}
}

func TestDispatcherTransportFailure(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	client := rpc.NewHTTPClient(rpc.BackendConfig(cfg))
	defer client.Close()
	d := NewDispatcher(cfg, client, nil)
	_, err := d.Reprocess(context.Background())
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.StatusCode != 0 || cmdErr.Err == nil {
		t.Errorf("error = %#v", err)
	}
}

func TestDispatcherReprocess(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/hdfswatcher/reprocess", 200, `{"clearedCount":7}`)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), nil)

	res, err := d.Execute(context.Background(), CmdReprocess, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ClearedCount != 7 || res.Message != "Cleared 7 processed files" {
		t.Errorf("result = %+v", res)
	}
}

func TestDispatcherEmptyBodyIsSuccess(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/embedproc/toggle", 204, ``)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), nil)
	res, err := d.Execute(context.Background(), CmdToggle, "embedproc")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.StatusCode != 204 {
		t.Errorf("StatusCode = %d", res.StatusCode)
	}
}

/**
 * Test that a 2xx reply carrying an error field still succeeds, with warnings
 * @param {*testing.T} t - Testing framework instance
 */
func TestDispatcherRestartPipelineWarnings(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/restart-pipeline", 200,
		`{"status":"partial","results":["hdfswatcher restarted","textproc restarted"],"errors":["embedproc: timeout"]}`)
	refresher := NewRefresher()
	refreshes := countRefreshes(refresher)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), refresher)
	defer d.Close()

	res, err := d.Execute(context.Background(), CmdRestart, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res.Results) != 2 || len(res.Warnings) != 1 || res.Warnings[0] != "embedproc: timeout" {
		t.Errorf("result = %+v", res)
	}
	waitFor(t, time.Second, func() bool { return refreshes.Load() == 1 })
}

func TestDispatcherReset(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/textproc/processing/reset", 200, `{"message":"reset"}`)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), nil)
	ctx := context.Background()

	res, err := d.Reset(ctx, "")
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if res.Service != "textproc" || res.Message != "reset" {
		t.Errorf("result = %+v", res)
	}
	if _, err := d.Reset(ctx, "embedproc"); !errors.Is(err, ErrNotResettable) {
		t.Errorf("Reset(embedproc) error = %v, want ErrNotResettable", err)
	}
	if b.count("POST /api/services/embedproc/processing/reset") != 0 {
		t.Error("request sent for a service without reset support")
	}
}

func TestDispatcherRejectsUnknownTargets(t *testing.T) {
	b := newFakeBackend(t)
	d := NewDispatcher(testConfig(b.srv.URL), b.client(), nil)
	ctx := context.Background()

	if _, err := d.Execute(ctx, CmdStart, "gemfire"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("unknown service error = %v", err)
	}
	if _, err := d.Execute(ctx, "explode", "textproc"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown command error = %v", err)
	}
	if _, err := d.ServiceAction(ctx, "textproc", CmdReprocess); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("invalid action error = %v", err)
	}
}

func TestDispatcherCloseCancelsRefresh(t *testing.T) {
	b := newFakeBackend(t)
	b.json("POST /api/services/textproc/start", 200, `{}`)
	cfg := testConfig(b.srv.URL)
	cfg.Commands.ServiceRefreshDelay = 100 * time.Millisecond
	refresher := NewRefresher()
	refreshes := countRefreshes(refresher)
	d := NewDispatcher(cfg, b.client(), refresher)

	if _, err := d.ServiceAction(context.Background(), "textproc", CmdStart); err != nil {
		t.Fatalf("ServiceAction() error = %v", err)
	}
	d.Close()
	time.Sleep(200 * time.Millisecond)
	if refreshes.Load() != 0 {
		t.Error("refresh fired after Close")
	}
}

/**
 * Test the command to poll path: a successful command leads to exactly one
 * extra overview fetch through the shared refresher
 * @param {*testing.T} t - Testing framework instance
 */
func TestCommandRefreshesOverviewOnce(t *testing.T) {
	b := newFakeBackend(t)
	b.json(routeOverview, 200, `{"totalServices":3,"activeServices":3,"overallStatus":"HEALTHY","services":[]}`)
	b.json("POST /api/services/textproc/start", 200, `{"status":"ok"}`)
	cfg := testConfig(b.srv.URL)
	client := b.client()
	refresher := NewRefresher()
	agg := NewAggregator(cfg, client, refresher)
	d := NewDispatcher(cfg, client, refresher)
	defer d.Close()

	agg.Start(context.Background())
	defer agg.Stop()
	waitFor(t, 2*time.Second, func() bool { return b.count(routeOverview) == 1 })

	if _, err := d.Execute(context.Background(), CmdStart, "textproc"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return b.count(routeOverview) == 2 })
	time.Sleep(100 * time.Millisecond)
	if got := b.count(routeOverview); got != 2 {
		t.Errorf("overview fetches = %d, want 2", got)
	}
}
