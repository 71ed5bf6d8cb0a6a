package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"

	"golang.org/x/sync/errgroup"
)

// 轮询名称
const (
	PollComponents = "components"
	PollOverview   = "overview"
	PollFiles      = "files"
	PollProgress   = "progress"
	PollTelemetry  = "telemetry"
)

// 后端接口
const (
	overviewPath  = "/api/services/rag-pipeline/overview"
	filesPath     = "/api/services/hdfswatcher/files"
	processedPath = "/api/services/%s/files/processed"
	telemetryPath = "/api/metrics"
)

// Update 一次提交的通知
type Update struct {
	Poll string    `json:"poll"`
	At   time.Time `json:"at"`
}

// Snapshot 某一时刻全部轮询数据的副本
type Snapshot struct {
	Components   map[string]models.ComponentState `json:"components"`
	ComponentsAt time.Time                        `json:"componentsAt"`
	Overview     *models.PipelineOverview         `json:"overview,omitempty"`
	OverviewErr  string                           `json:"overviewError,omitempty"`
	OverviewAt   time.Time                        `json:"overviewAt"`
	Files        []models.FileEntry               `json:"files"`
	FilesErr     string                           `json:"filesError,omitempty"`
	FilesAt      time.Time                        `json:"filesAt"`
	Progress     models.PipelineProgress          `json:"progress"`
	Telemetry    models.TelemetryMetrics          `json:"telemetry,omitempty"`
	TelemetryErr string                           `json:"telemetryError,omitempty"`
}

/**
 * Owner of all polled snapshots
 * @description
 * - Five pollers (components, overview, files, progress, telemetry) with their own intervals
 * - Each commit replaces its snapshot wholesale under the lock, then notifies subscribers
 * - A refresh-services signal triggers one extra overview and components poll
 */
type Aggregator struct {
	cfg    *config.AppConfig
	client rpc.HTTPClient

	mu   sync.RWMutex
	snap Snapshot

	components *Poller[map[string]models.ComponentState]
	overview   *Poller[*models.PipelineOverview]
	files      *Poller[[]models.FileEntry]
	progress   *Poller[models.PipelineProgress]
	telemetry  *Poller[models.TelemetryMetrics]

	subMu  sync.Mutex
	subID  int
	subs   map[int]chan Update
	unsubR func()
}

/**
 * Create the aggregator
 * @param {*config.AppConfig} cfg - Polling intervals and component list
 * @param {rpc.HTTPClient} client - Backend client
 * @param {*Refresher} refresher - Optional refresh broadcaster
 * @returns {*Aggregator} Aggregator with stopped pollers
 */
func NewAggregator(cfg *config.AppConfig, client rpc.HTTPClient, refresher *Refresher) *Aggregator {
	a := &Aggregator{
		cfg:    cfg,
		client: client,
		subs:   make(map[int]chan Update),
	}
	a.components = NewPoller(PollComponents, cfg.Polling.Components,
		func(ctx context.Context) (map[string]models.ComponentState, error) {
			return FetchComponentStates(ctx, a.client, a.cfg.Components), nil
		}, a.commitComponents)
	a.overview = NewPoller(PollOverview, cfg.Polling.Overview,
		func(ctx context.Context) (*models.PipelineOverview, error) {
			return FetchOverview(ctx, a.client)
		}, a.commitOverview)
	a.files = NewPoller(PollFiles, cfg.Polling.Files,
		func(ctx context.Context) ([]models.FileEntry, error) {
			return FetchFiles(ctx, a.client)
		}, a.commitFiles)
	a.progress = NewPoller(PollProgress, cfg.Polling.Progress,
		func(ctx context.Context) (models.PipelineProgress, error) {
			return FetchProgress(ctx, a.client), nil
		}, a.commitProgress)
	a.telemetry = NewPoller(PollTelemetry, cfg.Polling.Telemetry,
		func(ctx context.Context) (models.TelemetryMetrics, error) {
			return FetchTelemetry(ctx, a.client)
		}, a.commitTelemetry)

	if refresher != nil {
		a.unsubR = refresher.Subscribe(func(event string) {
			if event == EventRefreshServices {
				a.Refresh()
			}
		})
	}
	return a
}

// Start 启动全部轮询
func (a *Aggregator) Start(ctx context.Context) {
	a.components.Start(ctx)
	a.overview.Start(ctx)
	a.files.Start(ctx)
	a.progress.Start(ctx)
	a.telemetry.Start(ctx)
}

// Stop 停止轮询, 丢弃尚未返回的结果
func (a *Aggregator) Stop() {
	if a.unsubR != nil {
		a.unsubR()
	}
	a.components.Stop()
	a.overview.Stop()
	a.files.Stop()
	a.progress.Stop()
	a.telemetry.Stop()

	a.subMu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.subMu.Unlock()
}

// Refresh 额外拉取一次服务概览和组件状态
func (a *Aggregator) Refresh() {
	a.overview.Trigger()
	a.components.Trigger()
}

/**
 * Run every poll once, in parallel, and wait for all of them
 * @param {context.Context} ctx - Request context
 * @description
 * - For one-shot CLI use; results are committed like ticker results
 */
func (a *Aggregator) PollAll(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { a.components.Once(ctx); return nil })
	g.Go(func() error { a.overview.Once(ctx); return nil })
	g.Go(func() error { a.files.Once(ctx); return nil })
	g.Go(func() error { a.progress.Once(ctx); return nil })
	g.Go(func() error { a.telemetry.Once(ctx); return nil })
	_ = g.Wait()
}

// PollOnce 按名称执行一次轮询
func (a *Aggregator) PollOnce(ctx context.Context, name string) error {
	var err error
	switch name {
	case PollComponents:
		_, err = a.components.Once(ctx)
	case PollOverview:
		_, err = a.overview.Once(ctx)
	case PollFiles:
		_, err = a.files.Once(ctx)
	case PollProgress:
		_, err = a.progress.Once(ctx)
	case PollTelemetry:
		_, err = a.telemetry.Once(ctx)
	default:
		return fmt.Errorf("unknown poll '%s'", name)
	}
	return err
}

/**
 * Subscribe to commit notifications
 * @returns {<-chan Update} Channel receiving one Update per commit, closed on Stop
 * @returns {func()} Unsubscribe function
 * @description
 * - Slow subscribers miss updates instead of blocking commits
 */
func (a *Aggregator) Subscribe() (<-chan Update, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.subID++
	id := a.subID
	ch := make(chan Update, 16)
	a.subs[id] = ch
	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			close(c)
			delete(a.subs, id)
		}
	}
}

func (a *Aggregator) notify(poll string, at time.Time) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- Update{Poll: poll, At: at}:
		default:
		}
	}
}

// Snapshot 返回当前数据的副本
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.snap
	s.Components = make(map[string]models.ComponentState, len(a.snap.Components))
	for k, v := range a.snap.Components {
		s.Components[k] = v
	}
	s.Files = append([]models.FileEntry(nil), a.snap.Files...)
	s.Progress.Sources = append([]models.ProgressSource(nil), a.snap.Progress.Sources...)
	if a.snap.Telemetry != nil {
		s.Telemetry = make(models.TelemetryMetrics, len(a.snap.Telemetry))
		for k, v := range a.snap.Telemetry {
			s.Telemetry[k] = v
		}
	}
	if a.snap.Overview != nil {
		ov := *a.snap.Overview
		ov.Services = append([]models.ServiceStatus(nil), a.snap.Overview.Services...)
		s.Overview = &ov
	}
	return s
}

func (a *Aggregator) commitComponents(states map[string]models.ComponentState, _ error, at time.Time) {
	a.mu.Lock()
	a.snap.Components = states
	a.snap.ComponentsAt = at
	a.mu.Unlock()
	a.notify(PollComponents, at)
}

// commitOverview 失败时保留上一次成功的概览
func (a *Aggregator) commitOverview(ov *models.PipelineOverview, err error, at time.Time) {
	a.mu.Lock()
	if err != nil {
		a.snap.OverviewErr = err.Error()
	} else {
		a.snap.Overview = ov
		a.snap.OverviewErr = ""
		a.snap.OverviewAt = at
	}
	a.mu.Unlock()
	a.notify(PollOverview, at)
}

// commitFiles 失败时清空文件列表并记录错误
func (a *Aggregator) commitFiles(files []models.FileEntry, err error, at time.Time) {
	a.mu.Lock()
	if err != nil {
		a.snap.Files = []models.FileEntry{}
		a.snap.FilesErr = err.Error()
	} else {
		a.snap.Files = files
		a.snap.FilesErr = ""
	}
	a.snap.FilesAt = at
	a.mu.Unlock()
	a.notify(PollFiles, at)
}

func (a *Aggregator) commitProgress(p models.PipelineProgress, _ error, at time.Time) {
	a.mu.Lock()
	a.snap.Progress = p
	a.mu.Unlock()
	a.notify(PollProgress, at)
}

// commitTelemetry 失败时保留上一次的指标, 图中各节点仍可回退到默认值
func (a *Aggregator) commitTelemetry(m models.TelemetryMetrics, err error, at time.Time) {
	a.mu.Lock()
	if err != nil {
		a.snap.TelemetryErr = err.Error()
	} else {
		a.snap.Telemetry = m
		a.snap.TelemetryErr = ""
	}
	a.mu.Unlock()
	a.notify(PollTelemetry, at)
}

/**
 * Query the processing state of every configured component
 * @param {context.Context} ctx - Request context
 * @param {rpc.HTTPClient} client - Backend client
 * @param {[]config.ComponentConfig} components - Components to query
 * @returns {map[string]models.ComponentState} Exactly one entry per component
 * @description
 * - All requests run in parallel and all of them are awaited
 * - Transport failure, non-2xx or malformed JSON -> IDLE
 * - STARTED when the configured status field, "enabled" or "processing" is truthy, STOPPED otherwise
 * @example
 * states := FetchComponentStates(ctx, client, cfg.Components)
 */
func FetchComponentStates(ctx context.Context, client rpc.HTTPClient, components []config.ComponentConfig) map[string]models.ComponentState {
	results := make([]models.ComponentState, len(components))
	var g errgroup.Group
	for i, c := range components {
		g.Go(func() error {
			results[i] = fetchComponentState(ctx, client, c)
			return nil
		})
	}
	_ = g.Wait()

	states := make(map[string]models.ComponentState, len(components))
	for _, r := range results {
		states[r.Name] = r
	}
	return states
}

func fetchComponentState(ctx context.Context, client rpc.HTTPClient, c config.ComponentConfig) models.ComponentState {
	st := models.ComponentState{
		Name:      c.Name,
		State:     models.StateIdle,
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}
	statePath := c.StatePath
	if statePath == "" {
		statePath = "/api/processing/state"
	}
	path := "/api/proxy/" + url.PathEscape(c.Name) + statePath

	resp, err := client.Get(ctx, path, nil)
	if err != nil {
		logger.Warnf("[%s] status error: %v", c.Name, err)
		st.Error = err.Error()
		return st
	}
	if !resp.OK() {
		logger.Warnf("[%s] status check failed: %d", c.Name, resp.StatusCode)
		st.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return st
	}
	var body map[string]interface{}
	if err := resp.DecodeJSON(&body); err != nil {
		logger.Warnf("[%s] status response: %v", c.Name, err)
		st.Error = err.Error()
		return st
	}
	field := c.StatusField
	if field == "" {
		field = "enabled"
	}
	if truthy(body[field]) || truthy(body["enabled"]) || truthy(body["processing"]) {
		st.State = models.StateStarted
	} else {
		st.State = models.StateStopped
	}
	return st
}

// truthy JSON值的真假判断: 非零数字, 非空字符串, 任意对象或数组为真
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

/**
 * Read the pipeline overview
 * @param {context.Context} ctx - Request context
 * @param {rpc.HTTPClient} client - Backend client
 * @returns {*models.PipelineOverview} Overview as reported by the backend
 * @returns {error} Transport error, non-2xx or malformed JSON
 */
func FetchOverview(ctx context.Context, client rpc.HTTPClient) (*models.PipelineOverview, error) {
	resp, err := client.Get(ctx, overviewPath, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("overview: HTTP %d: %s", resp.StatusCode, resp.Error)
	}
	var ov models.PipelineOverview
	if err := resp.DecodeJSON(&ov); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return &ov, nil
}

/**
 * Read the document watcher's file list
 * @param {context.Context} ctx - Request context
 * @param {rpc.HTTPClient} client - Backend client
 * @returns {[]models.FileEntry} Files, never nil on success; entries that cannot be decoded are skipped
 * @returns {error} Transport error, non-2xx, a body that is not a file list or an "error" field in the body
 */
func FetchFiles(ctx context.Context, client rpc.HTTPClient) ([]models.FileEntry, error) {
	resp, err := client.Get(ctx, filesPath, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("files: HTTP %d: %s", resp.StatusCode, resp.Error)
	}
	// 逐行解码, 一行字段类型不对只丢弃这一行
	var body struct {
		Files []json.RawMessage `json:"files"`
		Error string            `json:"error,omitempty"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%s", body.Error)
	}
	files := make([]models.FileEntry, 0, len(body.Files))
	for i, raw := range body.Files {
		var f models.FileEntry
		if err := json.Unmarshal(raw, &f); err != nil {
			logger.Warnf("Skipping malformed file entry %d: %v", i, err)
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func fetchProcessedCount(ctx context.Context, client rpc.HTTPClient, service string) (int, error) {
	resp, err := client.Get(ctx, fmt.Sprintf(processedPath, service), nil)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, fmt.Errorf("%s processed: HTTP %d: %s", service, resp.StatusCode, resp.Error)
	}
	var body models.ProcessedFilesResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, fmt.Errorf("%s processed: %w", service, err)
	}
	if body.Error != "" {
		return 0, fmt.Errorf("%s", body.Error)
	}
	return body.Count(), nil
}

/**
 * Read the three progress counters in parallel
 * @param {context.Context} ctx - Request context
 * @param {rpc.HTTPClient} client - Backend client
 * @returns {models.PipelineProgress} Counts with one source entry per read
 * @description
 * - Reads are independent; each source records its own fetch time and error
 * - A failed source leaves its count at 0
 * - CompleteFiles = min(embedded, hdfs) when the HDFS count is known, embedded otherwise
 */
func FetchProgress(ctx context.Context, client rpc.HTTPClient) models.PipelineProgress {
	type read struct {
		count int
		err   error
		at    time.Time
	}
	var hdfs, text, embed read
	var g errgroup.Group
	g.Go(func() error {
		files, err := FetchFiles(ctx, client)
		hdfs = read{len(files), err, time.Now()}
		return nil
	})
	g.Go(func() error {
		n, err := fetchProcessedCount(ctx, client, "textproc")
		text = read{n, err, time.Now()}
		return nil
	})
	g.Go(func() error {
		n, err := fetchProcessedCount(ctx, client, "embedproc")
		embed = read{n, err, time.Now()}
		return nil
	})
	_ = g.Wait()

	source := func(name string, r read) models.ProgressSource {
		s := models.ProgressSource{Name: name, Count: r.count, FetchedAt: r.at.UTC().Format(time.RFC3339)}
		if r.err != nil {
			s.Count = 0
			s.Error = r.err.Error()
		}
		return s
	}
	p := models.PipelineProgress{
		Sources: []models.ProgressSource{
			source("hdfswatcher", hdfs),
			source("textproc", text),
			source("embedproc", embed),
		},
	}
	p.HDFSFiles = p.Sources[0].Count
	p.TextProcFiles = p.Sources[1].Count
	p.EmbedProcFiles = p.Sources[2].Count
	p.CompleteFiles = p.EmbedProcFiles
	if hdfs.err == nil && p.HDFSFiles < p.CompleteFiles {
		p.CompleteFiles = p.HDFSFiles
	}
	return p
}

/**
 * Read telemetry metrics for the diagram metric grids
 * @param {context.Context} ctx - Request context
 * @param {rpc.HTTPClient} client - Backend client
 * @returns {models.TelemetryMetrics} Values converted to display strings
 * @returns {error} Transport error, non-2xx or malformed JSON
 */
func FetchTelemetry(ctx context.Context, client rpc.HTTPClient) (models.TelemetryMetrics, error) {
	resp, err := client.Get(ctx, telemetryPath, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("metrics: HTTP %d: %s", resp.StatusCode, resp.Error)
	}
	var raw map[string]interface{}
	if err := resp.DecodeJSON(&raw); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	m := make(models.TelemetryMetrics, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			m[k] = t
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			m[k] = strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			m[k] = string(b)
		}
	}
	return m, nil
}
