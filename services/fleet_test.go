package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"imc-manager/internal/rpc"
)

/**
 * Test service discovery caching
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - The first instance is resolved to scheme://host:port
 * - The URL is reused until the ttl expires or Invalidate is called
 */
func TestDiscoveryCacheResolve(t *testing.T) {
	b := newFakeBackend(t)
	const route = "GET /discovery/services/imc-db-server"
	b.json(route, 200, `[{"scheme":"https","host":"db.internal","port":8443},{"host":"other"}]`)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDiscoveryCache(b.client(), "imc-db-server", "http://fallback", time.Minute)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	u, discovered := d.Resolve(ctx)
	if u != "https://db.internal:8443" || !discovered {
		t.Errorf("Resolve() = %q, %v", u, discovered)
	}
	d.Resolve(ctx)
	if got := b.count(route); got != 1 {
		t.Errorf("registry hits = %d, want 1 while cached", got)
	}

	now = now.Add(2 * time.Minute)
	d.Resolve(ctx)
	if got := b.count(route); got != 2 {
		t.Errorf("registry hits = %d, want 2 after expiry", got)
	}

	d.Invalidate()
	d.Resolve(ctx)
	if got := b.count(route); got != 3 {
		t.Errorf("registry hits = %d, want 3 after Invalidate", got)
	}
}

func TestDiscoveryCacheFallback(t *testing.T) {
	b := newFakeBackend(t)
	const route = "GET /discovery/services/imc-db-server"
	b.json(route, 200, `[]`)
	d := NewDiscoveryCache(b.client(), "imc-db-server", "http://fallback", time.Minute)

	u, discovered := d.Resolve(context.Background())
	if u != "http://fallback" || discovered {
		t.Errorf("Resolve() = %q, %v, want fallback", u, discovered)
	}
	d.Resolve(context.Background())
	if got := b.count(route); got != 1 {
		t.Errorf("fallback not cached, registry hits = %d", got)
	}
}

// newTestFleet 注册中心与数据库服务都指向同一个假后端
func newTestFleet(t *testing.T, b *fakeBackend) *FleetService {
	cfg := testConfig(b.srv.URL)
	f := NewFleetService(cfg, b.client())
	f.newClient = func(baseURL string) rpc.HTTPClient {
		return rpc.NewHTTPClient(&rpc.HTTPConfig{Network: "tcp", BaseURL: b.srv.URL, Timeout: 2 * time.Second})
	}
	f.now = func() time.Time { return time.Date(2025, 8, 22, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestFleetReportFromDatabase(t *testing.T) {
	b := newFakeBackend(t)
	b.json("GET /discovery/services/imc-db-server", 200, `[{"host":"db.internal","port":9000}]`)
	b.json("GET /api/db01/fleet/summary", 200,
		`{"success":true,"data":{"averageSafetyScore":87.46,"totalDrivers":20,"highRiskCount":4},"total_telemetry_events":12345}`)
	b.handle("GET /api/db01/drivers/top-performers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("top performers limit = %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"success":true,"data":[{"driver_name":"Ann Lee","safety_score":"99.1","vehicle_id":"VH-100"}]}`))
	})
	b.json("GET /api/db01/drivers/high-risk", 200, `{"success":true,"data":[]}`)
	b.json("GET /api/db01/ml/model-info", 200,
		`{"success":true,"data":{"accuracy":91.25,"lastTrained":"2025-08-20T10:00:00Z","numIterations":30},"num_rows_processed":40}`)
	b.json("GET /api/db01/vehicle-events/high-gforce", 200,
		`{"success":true,"data":[{"vehicleId":"VH-200","gForce":3.5,"timestamp":"sometime"}]}`)

	report := newTestFleet(t, b).Report(context.Background())

	if report.DBServer != "http://db.internal:9000" {
		t.Errorf("DBServer = %q", report.DBServer)
	}
	if report.FleetScore != "87.5" || report.TotalDrivers != "20" || report.HighRiskCount != "4" || report.TotalEvents != "12.3K" {
		t.Errorf("summary = %s/%s/%s/%s", report.FleetScore, report.TotalDrivers, report.HighRiskCount, report.TotalEvents)
	}
	if len(report.TopPerformers) != 1 || report.TopPerformers[0].Name != "Ann Lee" ||
		report.TopPerformers[0].Detail != "Safety Score: 99.1" || report.TopPerformers[0].Vehicle != "VH-100" {
		t.Errorf("top performers = %+v", report.TopPerformers)
	}
	if len(report.HighRisk) != 3 || report.HighRisk[0].Name != "John Smith" {
		t.Errorf("empty high risk list should fall back to demo data: %+v", report.HighRisk)
	}
	if report.Model.Accuracy != "91.25%" || report.Model.TrainingDate != "Aug 20" ||
		report.Model.Iterations != "30" || report.Model.Drivers != "40" {
		t.Errorf("model = %+v", report.Model)
	}
	if len(report.Events) != 1 || report.Events[0].GForce != "3.5" || report.Events[0].Timestamp != "sometime" {
		t.Errorf("events = %+v", report.Events)
	}
	if len(report.Fallbacks) != 1 || report.Fallbacks[0] != FleetHighRisk {
		t.Errorf("fallbacks = %v", report.Fallbacks)
	}
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v", report.Errors)
	}
}

func TestFleetReportDemoFallbacks(t *testing.T) {
	b := newFakeBackend(t)
	b.json("GET /api/db01/fleet/summary", 500, `{"error":"db down"}`)
	b.json("GET /api/db01/ml/model-info", 200, `{"success":false,"error":"no model"}`)

	report := newTestFleet(t, b).Report(context.Background())

	if report.DBServer != "http://fallback.invalid" {
		t.Errorf("DBServer = %q, want fallback", report.DBServer)
	}
	if report.FleetScore != "83.2" || report.TotalDrivers != "15" || report.HighRiskCount != "3" || report.TotalEvents != "2.4K" {
		t.Errorf("summary demo = %s/%s/%s/%s", report.FleetScore, report.TotalDrivers, report.HighRiskCount, report.TotalEvents)
	}
	if report.Model.Accuracy != "94.3%" || report.Model.TrainingDate != "Aug 22" {
		t.Errorf("model demo = %+v", report.Model)
	}
	if len(report.TopPerformers) != 3 || report.TopPerformers[0].Vehicle != "VH-001" {
		t.Errorf("top performers demo = %+v", report.TopPerformers)
	}
	if len(report.Events) != 3 || report.Events[0].Vehicle != "VH-018" || report.Events[0].GForce != "3.2G" {
		t.Errorf("events demo = %+v", report.Events)
	}
	if len(report.Fallbacks) != 5 {
		t.Errorf("fallbacks = %v, want all five", report.Fallbacks)
	}
	if len(report.Errors) != 4 {
		t.Errorf("errors = %v, want one per failed request", report.Errors)
	}
}
