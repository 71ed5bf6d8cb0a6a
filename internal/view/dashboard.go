package view

import (
	"fmt"
	"sort"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/models"
)

// Card 概览卡片
type Card struct {
	Title   string `json:"title"`
	Value   string `json:"value"`
	Caption string `json:"caption"`
	Tone    string `json:"tone"`
	Icon    string `json:"icon"`
}

// ComponentView 流水线组件卡片
type ComponentView struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	State       string `json:"state"`
	Badge       string `json:"badge"`
	Tone        string `json:"tone"`
	CheckedAt   string `json:"checkedAt,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OverviewView 服务页顶部的汇总, 数据直接取自后端概览接口
type OverviewView struct {
	ActiveLabel string `json:"activeLabel"`
	TotalLabel  string `json:"totalLabel"`
	Badge       string `json:"badge"`
	Tone        string `json:"tone"`
	Loaded      bool   `json:"loaded"`
	Error       string `json:"error,omitempty"`
}

// ServiceRow 服务列表中的一行
type ServiceRow struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Tone        string `json:"tone"`
	LastCheck   string `json:"lastCheck"`
	URL         string `json:"url,omitempty"`
	Running     bool   `json:"running"`
}

// StageRow 进度面板中的一个阶段
type StageRow struct {
	Label     string `json:"label"`
	Count     int    `json:"count"`
	Percent   int    `json:"percent"`
	FetchedAt string `json:"fetchedAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EventRow 最近事件列表中的一行
type EventRow struct {
	App     string `json:"app"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Time    string `json:"time"`
	URL     string `json:"url,omitempty"`
	IsError bool   `json:"isError"`
}

// Input 组装视图所需的全部快照
type Input struct {
	Now          time.Time
	Configured   []config.ComponentConfig
	Components   map[string]models.ComponentState
	Overview     *models.PipelineOverview
	OverviewErr  string
	Files        []models.FileEntry
	FilesErr     string
	Progress     models.PipelineProgress
	Events       []models.EventDto
	Stream       models.StreamStatus
	EventDisplay int
}

// Dashboard 页面和终端界面共用的视图模型
type Dashboard struct {
	GeneratedAt string              `json:"generatedAt"`
	Health      HealthLabel         `json:"health"`
	Cards       []Card              `json:"cards"`
	Components  []ComponentView     `json:"components"`
	Overview    OverviewView        `json:"overview"`
	Services    []ServiceRow        `json:"services"`
	Files       []models.FileRecord `json:"files"`
	FilesError  string              `json:"filesError,omitempty"`
	Progress    []StageRow          `json:"progress"`
	Events      []EventRow          `json:"events"`
	Stream      models.StreamStatus `json:"stream"`
}

/**
 * Build the dashboard view model from the latest snapshots
 * @param {Input} in - Snapshots owned by the aggregator and the stream client
 * @returns {Dashboard} Pure derivation, safe to render concurrently
 * @description
 * - Component cards follow the configured order; a component with no poll result yet is UNKNOWN
 * - Health uses the configured component count as the total
 * - Events are listed newest first, limited to EventDisplay when > 0
 */
func Build(in Input) Dashboard {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	d := Dashboard{
		GeneratedAt: in.Now.UTC().Format(time.RFC3339),
		Files:       FileRows(in.Files),
		FilesError:  in.FilesErr,
		Stream:      in.Stream,
	}

	d.Components = buildComponents(in.Configured, in.Components)
	active := CountActive(in.Components)
	errs := CountErrors(in.Events)
	d.Health = Health(active, len(in.Configured), errs)
	d.Cards = SummaryCards(active, len(in.Configured), len(in.Events), errs)
	d.Overview = BuildOverview(in.Overview, in.OverviewErr)
	if in.Overview != nil {
		d.Services = ServiceRows(in.Overview.Services, in.Now)
	}
	d.Progress = ProgressStages(in.Progress)
	d.Events = EventRows(in.Events, in.EventDisplay)
	return d
}

func buildComponents(configured []config.ComponentConfig, states map[string]models.ComponentState) []ComponentView {
	out := make([]ComponentView, 0, len(configured))
	for _, c := range configured {
		st := states[c.Name]
		label := c.Label
		if label == "" {
			label = c.Name
		}
		out = append(out, ComponentView{
			Name:        c.Name,
			Label:       label,
			Description: c.Description,
			State:       string(st.State),
			Badge:       ComponentBadge(st.State),
			Tone:        ComponentTone(st.State),
			CheckedAt:   st.CheckedAt,
			Error:       st.Error,
		})
	}
	return out
}

// SummaryCards 仪表盘顶部的四张卡片
func SummaryCards(active, total, events, errors int) []Card {
	health := Health(active, total, errors)
	errTone, errIcon := ToneRunning, "✅"
	if errors > 0 {
		errTone, errIcon = ToneError, "⚠️"
	}
	return []Card{
		{Title: "Active Components", Value: fmt.Sprint(active), Caption: fmt.Sprintf("out of %d total", total), Tone: ToneRunning, Icon: "🟢"},
		{Title: "Total Events", Value: fmt.Sprint(events), Caption: "in this session", Tone: ToneUnknown, Icon: "📊"},
		{Title: "Errors", Value: fmt.Sprint(errors), Caption: "error events", Tone: errTone, Icon: errIcon},
		{Title: "Pipeline Health", Value: string(health), Caption: "overall status", Tone: health.Tone(), Icon: health.Icon()},
	}
}

/**
 * Summarize the backend overview
 * @param {*models.PipelineOverview} ov - Last good overview, nil if never fetched
 * @param {string} errText - Error of the latest poll, kept alongside stale data
 * @returns {OverviewView} Labels with the overall status shown verbatim
 * @example
 * BuildOverview(&models.PipelineOverview{TotalServices: 3, ActiveServices: 2, OverallStatus: "DEGRADED"}, "")
 * // ActiveLabel "Active Components: 2", TotalLabel "out of 3 total", Badge "DEGRADED"
 */
func BuildOverview(ov *models.PipelineOverview, errText string) OverviewView {
	if ov == nil {
		return OverviewView{
			ActiveLabel: "Active Components: " + Placeholder,
			TotalLabel:  "out of " + Placeholder + " total",
			Badge:       string(models.StateUnknown),
			Tone:        ToneUnknown,
			Error:       errText,
		}
	}
	badge := ov.OverallStatus
	if badge == "" {
		badge = string(models.StateUnknown)
	}
	return OverviewView{
		ActiveLabel: fmt.Sprintf("Active Components: %d", ov.ActiveServices),
		TotalLabel:  fmt.Sprintf("out of %d total", ov.TotalServices),
		Badge:       badge,
		Tone:        overallTone(badge),
		Loaded:      true,
		Error:       errText,
	}
}

func overallTone(status string) string {
	switch HealthLabel(status) {
	case Healthy:
		return ToneRunning
	case Degraded:
		return ToneWarning
	case Critical:
		return ToneError
	default:
		return ToneUnknown
	}
}

// ServiceRows 注册中心服务列表, 按名称排序
func ServiceRows(services []models.ServiceStatus, now time.Time) []ServiceRow {
	rows := make([]ServiceRow, 0, len(services))
	for _, s := range services {
		display := s.DisplayName
		if display == "" {
			display = s.Name
		}
		rows = append(rows, ServiceRow{
			Name:        s.Name,
			DisplayName: display,
			Description: s.Description,
			Status:      string(s.Status),
			Tone:        ServiceTone(s.Status),
			LastCheck:   Ago(s.LastCheck, now),
			URL:         s.URL,
			Running:     s.Status.Running(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// 流水线阶段名称
const (
	StageDiscovery = "Document Discovery"
	StageText      = "Text Extraction"
	StageEmbedding = "Embedding Generation"
	StageComplete  = "Complete"
)

/**
 * Turn progress counts into stage rows
 * @param {models.PipelineProgress} p - Counts fetched from three independent sources
 * @returns {[]StageRow} Discovery, extraction, embedding, complete
 * @description
 * - Percent is relative to the discovered file count and capped at 100
 * - Each row keeps the fetch time of its own source, counts may disagree
 */
func ProgressStages(p models.PipelineProgress) []StageRow {
	src := make(map[string]models.ProgressSource, len(p.Sources))
	for _, s := range p.Sources {
		src[s.Name] = s
	}
	row := func(label string, count int, source string) StageRow {
		r := StageRow{Label: label, Count: count, Percent: percent(count, p.HDFSFiles)}
		if s, ok := src[source]; ok {
			r.FetchedAt = s.FetchedAt
			r.Error = s.Error
		}
		return r
	}
	return []StageRow{
		row(StageDiscovery, p.HDFSFiles, "hdfswatcher"),
		row(StageText, p.TextProcFiles, "textproc"),
		row(StageEmbedding, p.EmbedProcFiles, "embedproc"),
		row(StageComplete, p.CompleteFiles, "embedproc"),
	}
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	v := n * 100 / total
	if v > 100 {
		v = 100
	}
	return v
}

// FileStage 单个文件所处的阶段
func FileStage(state models.FileState) string {
	switch state {
	case models.FileProcessing:
		return StageText
	case models.FileProcessed:
		return StageComplete
	default:
		return StageDiscovery
	}
}

// EventRows 最近事件, 新的在前
func EventRows(events []models.EventDto, limit int) []EventRow {
	rows := make([]EventRow, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		t := string(e.Timestamp)
		if ts := e.Timestamp.Time(); !ts.IsZero() {
			t = ts.Local().Format("15:04:05")
		}
		rows = append(rows, EventRow{
			App:     e.App,
			Status:  e.Status,
			Message: e.Message,
			Time:    t,
			URL:     e.URL,
			IsError: IsErrorEvent(e),
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows
}
