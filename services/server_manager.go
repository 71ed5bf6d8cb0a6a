package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/env"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"
	"imc-manager/internal/view"
)

// runtime 一份配置对应的全部运行组件, 重新加载配置时整体替换
type runtime struct {
	cfg        *config.AppConfig
	client     rpc.HTTPClient
	stream     *StreamClient
	aggregator *Aggregator
	dispatcher *Dispatcher
	dashboard  *DashboardService
	fleet      *FleetService
	cancel     context.CancelFunc
}

func newRuntime(cfg *config.AppConfig, client rpc.HTTPClient, stream *StreamClient, refresher *Refresher) *runtime {
	agg := NewAggregator(cfg, client, refresher)
	return &runtime{
		cfg:        cfg,
		client:     client,
		stream:     stream,
		aggregator: agg,
		dispatcher: NewDispatcher(cfg, client, refresher),
		dashboard:  NewDashboardService(cfg, agg, stream),
		fleet:      NewFleetService(cfg, client),
	}
}

func (rt *runtime) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	rt.cancel = cancel
	rt.stream.Start(ctx)
	rt.aggregator.Start(ctx)
	go CollectAndPushMetrics(ctx, rt.cfg.Metrics.Pushgateway, rt.cfg.Metrics.Job,
		time.Duration(rt.cfg.Metrics.PushInterval)*time.Second)
	logger.Infof("Polling backend %s", rt.cfg.Backend.BaseURL)
}

func (rt *runtime) stop() {
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.dispatcher.Close()
	rt.aggregator.Stop()
	rt.stream.Stop()
	rt.client.Close()
}

type Server struct {
	refresher *Refresher
	startTime time.Time

	mu  sync.RWMutex
	rt  *runtime
	ctx context.Context // Start传入的ctx, 未启动时为nil
}

/**
 * Create new server instance with all managers
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {*Server} Returns new server instance
 * @description
 * - One backend client is shared by the aggregator, the dispatcher and service discovery
 * - The dispatcher and the aggregator share one Refresher, so a successful
 *   command triggers one extra overview poll
 * - Reload replaces every component built from the configuration
 * @example
 * server := services.NewServer(config.App())
 * server.Start(ctx)
 * defer server.Stop()
 */
func NewServer(cfg *config.AppConfig) *Server {
	client := rpc.NewHTTPClient(rpc.BackendConfig(cfg))
	return newServer(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)))
}

func newServer(cfg *config.AppConfig, client rpc.HTTPClient, stream *StreamClient) *Server {
	refresher := NewRefresher()
	return &Server{
		refresher: refresher,
		rt:        newRuntime(cfg, client, stream, refresher),
		startTime: time.Now(),
	}
}

func (s *Server) current() *runtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rt
}

func (s *Server) Config() *config.AppConfig { return s.current().cfg }
func (s *Server) Refresher() *Refresher { return s.refresher }
func (s *Server) Stream() *StreamClient { return s.current().stream }
func (s *Server) Aggregator() *Aggregator { return s.current().aggregator }
func (s *Server) Dispatcher() *Dispatcher { return s.current().dispatcher }
func (s *Server) Dashboard() *DashboardService { return s.current().dashboard }
func (s *Server) Fleet() *FleetService { return s.current().fleet }

/**
 * Start the event stream, the pollers and metrics pushing
 * @param {context.Context} ctx - Cancelling ctx stops everything started here
 */
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.rt.start(ctx)
}

// Stop 停止轮询和事件流, 取消未触发的刷新
func (s *Server) Stop() {
	s.mu.Lock()
	rt := s.rt
	s.ctx = nil
	s.mu.Unlock()
	rt.stop()
}

/**
 * Apply a new configuration to the running server
 * @param {*config.AppConfig} cfg - Freshly loaded configuration
 * @returns {[]string} Config sections that only take effect after a restart
 * @description
 * - Backend, stream, polling, commands, discovery, components and services apply immediately:
 *   a new backend client, stream client, aggregator, dispatcher and fleet service replace the old ones
 * - The old components are stopped, so open /stream connections end and browsers reconnect
 * - Listener, auth and log settings are bound when the process starts
 * @example
 * pending := server.Reload(config.App())
 */
func (s *Server) Reload(cfg *config.AppConfig) []string {
	client := rpc.NewHTTPClient(rpc.BackendConfig(cfg))
	next := newRuntime(cfg, client, NewStreamClient(cfg, WithStreamHTTPClient(client)), s.refresher)

	s.mu.Lock()
	old := s.rt
	s.rt = next
	if s.ctx != nil {
		next.start(s.ctx)
	}
	s.mu.Unlock()

	old.stop()
	logger.Infof("Configuration reloaded, %d components and %d services", len(cfg.Components), len(cfg.Services))
	return RestartRequired(old.cfg, cfg)
}

// RestartRequired 两份配置中只能重启后生效的差异项
func RestartRequired(old, next *config.AppConfig) []string {
	var sections []string
	if old.Server != next.Server {
		sections = append(sections, "server")
	}
	if old.Auth != next.Auth {
		sections = append(sections, "auth")
	}
	if old.Log != next.Log {
		sections = append(sections, "log")
	}
	return sections
}

/**
* Perform comprehensive system check
* @returns {models.CheckResponse} Returns check results for every data source
* @description
* - Upstream event stream connection
* - Latest overview, file list and telemetry polls
* - Each configured component (IDLE or not yet polled counts as failed)
* - Overall status: healthy when nothing failed, warning when fewer than half failed, error otherwise
* @example
* checkResult := server.Check()
* fmt.Printf("System status: %s, Passed: %d/%d\n",
*     checkResult.OverallStatus, checkResult.PassedChecks, checkResult.TotalChecks)
 */
func (s *Server) Check() models.CheckResponse {
	rt := s.current()
	snap := rt.aggregator.Snapshot()
	stream := rt.stream.Status()
	response := models.CheckResponse{
		Timestamp: time.Now(),
	}

	add := func(item models.CheckItem) {
		response.Items = append(response.Items, item)
	}
	add(models.CheckItem{Name: "stream", Passed: stream.Connected, Detail: stream.Error})

	overview := models.CheckItem{Name: PollOverview, Passed: snap.Overview != nil && snap.OverviewErr == "", Detail: snap.OverviewErr}
	if snap.Overview != nil && overview.Detail == "" {
		overview.Detail = snap.Overview.OverallStatus
	}
	if !snap.OverviewAt.IsZero() {
		overview.CheckedAt = snap.OverviewAt.UTC().Format(time.RFC3339)
	}
	add(overview)

	files := models.CheckItem{Name: PollFiles, Passed: !snap.FilesAt.IsZero() && snap.FilesErr == "", Detail: snap.FilesErr}
	if !snap.FilesAt.IsZero() {
		files.CheckedAt = snap.FilesAt.UTC().Format(time.RFC3339)
		if files.Detail == "" {
			files.Detail = fmt.Sprintf("%d files", len(snap.Files))
		}
	}
	add(files)
	add(models.CheckItem{Name: PollTelemetry, Passed: snap.Telemetry != nil && snap.TelemetryErr == "", Detail: snap.TelemetryErr})

	for _, c := range rt.cfg.Components {
		item := models.CheckItem{Name: "component:" + c.Name, Detail: string(models.StateUnknown)}
		if st, ok := snap.Components[c.Name]; ok {
			item.Passed = st.State != models.StateIdle
			item.Detail = view.ComponentBadge(st.State)
			if st.Error != "" {
				item.Detail += ": " + st.Error
			}
			item.CheckedAt = st.CheckedAt
		}
		add(item)
	}

	for _, item := range response.Items {
		response.TotalChecks++
		if item.Passed {
			response.PassedChecks++
		} else {
			response.FailedChecks++
		}
	}

	// 确定总体状态
	if response.FailedChecks == 0 {
		response.OverallStatus = "healthy"
	} else if response.FailedChecks < response.TotalChecks/2 {
		response.OverallStatus = "warning"
	} else {
		response.OverallStatus = "error"
	}
	return response
}

/**
* Get health check response for the server
* @returns {models.HealthResponse} Returns health check response with server status and metrics
* @description
* - Calculates server uptime from start time
* - Reports request counters, component counts and the event stream state
 */
func (s *Server) GetHealthz() models.HealthResponse {
	rt := s.current()
	snap := rt.aggregator.Snapshot()
	stream := rt.stream.Status()
	return models.HealthResponse{
		Version:   env.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:    GetTotalRequestCount(),
			ErrorRequests:    GetTotalErrorCount(),
			ActiveComponents: view.CountActive(snap.Components),
			TotalComponents:  len(rt.cfg.Components),
			StreamConnected:  stream.Connected,
			BufferedEvents:   stream.Buffered,
		},
	}
}
