package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"
	"imc-manager/internal/view"

	"golang.org/x/sync/errgroup"
)

// 安全驾驶面板的数据来源
const (
	FleetSummary   = "fleet/summary"
	FleetTop       = "drivers/top-performers"
	FleetHighRisk  = "drivers/high-risk"
	FleetModel     = "ml/model-info"
	FleetHighForce = "vehicle-events/high-gforce"
)

// NotAvailable 接口返回了空值
const NotAvailable = "N/A"

/**
 * Safe driver panel data loader
 * @description
 * - Locates the database server through DiscoveryCache
 * - Reads five endpoints in parallel; each one that fails or returns no data
 *   is replaced by fixed demo values and listed in FleetReport.Fallbacks
 */
type FleetService struct {
	discovery *DiscoveryCache
	instance  string
	timeout   time.Duration
	newClient func(baseURL string) rpc.HTTPClient
	now       func() time.Time
}

/**
 * Create the fleet service
 * @param {*config.AppConfig} cfg - Discovery and backend settings
 * @param {rpc.HTTPClient} backend - Backend client hosting the discovery endpoint
 * @returns {*FleetService} Service with its own discovery cache
 */
func NewFleetService(cfg *config.AppConfig, backend rpc.HTTPClient) *FleetService {
	timeout := cfg.Backend.Timeout
	return &FleetService{
		discovery: NewDiscoveryCache(backend, cfg.Discovery.Service, cfg.Discovery.FallbackURL, cfg.Discovery.TTL),
		instance:  cfg.Discovery.Instance,
		timeout:   timeout,
		newClient: func(baseURL string) rpc.HTTPClient {
			return rpc.NewHTTPClient(&rpc.HTTPConfig{Network: "tcp", Timeout: timeout, BaseURL: baseURL})
		},
		now: time.Now,
	}
}

// Discovery 服务发现缓存
func (f *FleetService) Discovery() *DiscoveryCache {
	return f.discovery
}

type envelopeResult struct {
	env *models.DBEnvelope
	err error
}

/**
 * Load the safe driver panel
 * @param {context.Context} ctx - Request context
 * @returns {models.FleetReport} Report, never empty thanks to demo fallbacks
 * @example
 * report := fleet.Report(ctx)
 * fmt.Println(report.FleetScore)
 */
func (f *FleetService) Report(ctx context.Context) models.FleetReport {
	dbURL, _ := f.discovery.Resolve(ctx)
	client := f.newClient(dbURL)
	defer client.Close()

	reqs := []struct {
		name   string
		params map[string]interface{}
	}{
		{FleetSummary, nil},
		{FleetTop, map[string]interface{}{"limit": 10}},
		{FleetHighRisk, map[string]interface{}{"limit": 10}},
		{FleetModel, nil},
		{FleetHighForce, map[string]interface{}{"limit": 5}},
	}
	results := make([]envelopeResult, len(reqs))
	var g errgroup.Group
	for i, r := range reqs {
		g.Go(func() error {
			path := "/api/" + url.PathEscape(f.instance) + "/" + r.name
			env, err := fetchEnvelope(ctx, client, path, r.params)
			if err != nil {
				logger.Warnf("Fleet %s: %v", r.name, err)
			}
			results[i] = envelopeResult{env, err}
			return nil
		})
	}
	_ = g.Wait()

	report := models.FleetReport{DBServer: dbURL}
	for i, r := range reqs {
		if results[i].err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r.name, results[i].err))
		}
	}
	f.applySummary(&report, results[0])
	report.TopPerformers = driverCards(&report, FleetTop, results[1], func(d models.DriverData) string {
		return "Safety Score: " + firstNonEmpty(rawText(d.SafetyScore), rawText(d.SafetyScore2), NotAvailable)
	}, demoTopPerformers)
	report.HighRisk = driverCards(&report, FleetHighRisk, results[2], func(d models.DriverData) string {
		return "Risk Level: " + firstNonEmpty(d.RiskLevel, d.RiskLevel2, "High")
	}, demoHighRisk)
	f.applyModel(&report, results[3])
	f.applyEvents(&report, results[4])
	return report
}

func fetchEnvelope(ctx context.Context, client rpc.HTTPClient, path string, params map[string]interface{}) (*models.DBEnvelope, error) {
	resp, err := client.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Error)
	}
	var env models.DBEnvelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// usable 成功且带有非空data
func usable(r envelopeResult) bool {
	if r.err != nil || r.env == nil || !r.env.Success {
		return false
	}
	data := bytes.TrimSpace(r.env.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

func (f *FleetService) applySummary(report *models.FleetReport, r envelopeResult) {
	var data models.FleetSummaryData
	if !usable(r) || json.Unmarshal(r.env.Data, &data) != nil {
		report.FleetScore, report.TotalDrivers, report.HighRiskCount, report.TotalEvents = "83.2", "15", "3", "2.4K"
		report.Fallbacks = append(report.Fallbacks, FleetSummary)
		return
	}
	report.FleetScore = NotAvailable
	if data.AverageSafetyScore != nil && *data.AverageSafetyScore > 0 {
		report.FleetScore = strconv.FormatFloat(*data.AverageSafetyScore, 'f', 1, 64)
	}
	report.TotalDrivers = countText(data.TotalDrivers)
	report.HighRiskCount = countText(data.HighRiskCount)
	report.TotalEvents = NotAvailable
	if r.env.TotalTelemetryEvents > 0 {
		report.TotalEvents = view.FormatCount(r.env.TotalTelemetryEvents)
	}
}

func (f *FleetService) applyModel(report *models.FleetReport, r envelopeResult) {
	var data models.ModelInfoData
	if !usable(r) || json.Unmarshal(r.env.Data, &data) != nil {
		report.Model = models.ModelInsight{Accuracy: "94.3%", TrainingDate: "Aug 22", Iterations: "12", Drivers: "15"}
		report.Fallbacks = append(report.Fallbacks, FleetModel)
		return
	}
	accuracy := 94.3
	if data.Accuracy != nil && *data.Accuracy != 0 {
		accuracy = *data.Accuracy
	}
	trained := models.Timestamp(data.LastTrained).Time()
	if trained.IsZero() {
		trained = f.now()
	}
	iterations := int64(12)
	switch {
	case data.NumIterations != nil && *data.NumIterations != 0:
		iterations = *data.NumIterations
	case data.NumRowsProcessed != nil && *data.NumRowsProcessed != 0:
		iterations = *data.NumRowsProcessed
	}
	drivers := "15"
	if r.env.NumRowsProcessed != 0 {
		drivers = strconv.FormatInt(r.env.NumRowsProcessed, 10)
	}
	report.Model = models.ModelInsight{
		Accuracy:     strconv.FormatFloat(accuracy, 'f', -1, 64) + "%",
		TrainingDate: trained.Format("Jan 2"),
		Iterations:   strconv.FormatInt(iterations, 10),
		Drivers:      drivers,
	}
}

func (f *FleetService) applyEvents(report *models.FleetReport, r envelopeResult) {
	var data []models.GForceData
	if !usable(r) || json.Unmarshal(r.env.Data, &data) != nil || len(data) == 0 {
		report.Events = demoEvents(f.now())
		report.Fallbacks = append(report.Fallbacks, FleetHighForce)
		return
	}
	for _, e := range data {
		ts := "Recent"
		if t := e.Timestamp.Time(); !t.IsZero() {
			ts = t.Local().Format("2006-01-02 15:04:05")
		} else if e.Timestamp != "" {
			ts = string(e.Timestamp)
		}
		report.Events = append(report.Events, models.VehicleEventCard{
			Vehicle:   firstNonEmpty(e.VehicleID, e.VehicleID2, "Unknown"),
			GForce:    firstNonEmpty(rawText(e.GForce), rawText(e.GForce2), NotAvailable),
			Timestamp: ts,
		})
	}
}

func driverCards(report *models.FleetReport, name string, r envelopeResult, detail func(models.DriverData) string, demo []models.DriverCard) []models.DriverCard {
	var data []models.DriverData
	if !usable(r) || json.Unmarshal(r.env.Data, &data) != nil || len(data) == 0 {
		report.Fallbacks = append(report.Fallbacks, name)
		return append([]models.DriverCard(nil), demo...)
	}
	cards := make([]models.DriverCard, 0, len(data))
	for _, d := range data {
		cards = append(cards, models.DriverCard{
			Name:    firstNonEmpty(d.DriverName, d.DriverName2, "Unknown Driver"),
			Detail:  detail(d),
			Vehicle: firstNonEmpty(d.VehicleID, d.VehicleID2, NotAvailable),
		})
	}
	return cards
}

func countText(n *int) string {
	if n == nil || *n == 0 {
		return NotAvailable
	}
	return strconv.Itoa(*n)
}

// rawText 数字或字符串形式的JSON值转为文本
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var demoTopPerformers = []models.DriverCard{
	{Name: "Sarah Johnson", Detail: "Safety Score: 96.8", Vehicle: "VH-001"},
	{Name: "Mike Chen", Detail: "Safety Score: 94.2", Vehicle: "VH-005"},
	{Name: "Lisa Park", Detail: "Safety Score: 91.7", Vehicle: "VH-012"},
}

var demoHighRisk = []models.DriverCard{
	{Name: "John Smith", Detail: "Risk Level: High", Vehicle: "VH-018"},
	{Name: "Alex Rivera", Detail: "Risk Level: High", Vehicle: "VH-023"},
	{Name: "Chris Wong", Detail: "Risk Level: Medium-High", Vehicle: "VH-007"},
}

func demoEvents(now time.Time) []models.VehicleEventCard {
	format := func(ago time.Duration) string {
		return now.Add(-ago).Local().Format("2006-01-02 15:04:05")
	}
	return []models.VehicleEventCard{
		{Vehicle: "VH-018", GForce: "3.2G", Timestamp: format(5 * time.Minute)},
		{Vehicle: "VH-023", GForce: "2.8G", Timestamp: format(10 * time.Minute)},
		{Vehicle: "VH-007", GForce: "2.5G", Timestamp: format(15 * time.Minute)},
	}
}
