package services

import (
	"strings"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/diagram"
	"imc-manager/internal/models"
	"imc-manager/internal/view"
)

// EventSource 最近事件和连接状态的来源, StreamClient实现了该接口
type EventSource interface {
	Recent() []models.EventDto
	Status() models.StreamStatus
}

/**
 * Assembles view models and diagram scenes from the latest snapshots
 * @description
 * - Holds no state of its own; every call reads fresh snapshots
 */
type DashboardService struct {
	cfg    *config.AppConfig
	agg    *Aggregator
	events EventSource
	now    func() time.Time
}

func NewDashboardService(cfg *config.AppConfig, agg *Aggregator, events EventSource) *DashboardService {
	return &DashboardService{cfg: cfg, agg: agg, events: events, now: time.Now}
}

// Aggregator 轮询数据的所有者
func (d *DashboardService) Aggregator() *Aggregator {
	return d.agg
}

/**
 * Build the dashboard view model
 * @param {int} eventLimit - Maximum number of events listed, <= 0 for all buffered events
 * @returns {view.Dashboard} View model for pages, JSON API and terminal UI
 */
func (d *DashboardService) Dashboard(eventLimit int) view.Dashboard {
	snap := d.agg.Snapshot()
	in := view.Input{
		Now:          d.now(),
		Configured:   d.cfg.Components,
		Components:   snap.Components,
		Overview:     snap.Overview,
		OverviewErr:  snap.OverviewErr,
		Files:        snap.Files,
		FilesErr:     snap.FilesErr,
		Progress:     snap.Progress,
		EventDisplay: eventLimit,
	}
	if d.events != nil {
		in.Events = d.events.Recent()
		in.Stream = d.events.Status()
	}
	return view.Build(in)
}

/**
 * Build the current scene of a built-in topology
 * @param {string} name - Topology name, case insensitive
 * @returns {diagram.Scene} Scene bound to the latest states and telemetry metrics
 * @returns {error} diagram.ErrUnknownTopology
 * @description
 * - Overview services bind by registry name, polled components by component name;
 *   a component result wins over the overview entry of the same name
 */
func (d *DashboardService) Scene(name string) (diagram.Scene, error) {
	topo, err := diagram.Lookup(name)
	if err != nil {
		return diagram.Scene{}, err
	}
	snap := d.agg.Snapshot()
	return diagram.Build(topo, ServiceStates(snap), snap.Telemetry), nil
}

// ServiceStates 合并服务概览和组件轮询结果, 供图中节点绑定状态
func ServiceStates(snap Snapshot) map[string]diagram.ServiceState {
	states := make(map[string]diagram.ServiceState)
	if snap.Overview != nil {
		for _, s := range snap.Overview.Services {
			states[s.Name] = diagram.ServiceState{Status: string(s.Status), URL: s.URL}
		}
	}
	for name, c := range snap.Components {
		st := states[name]
		st.Status = string(c.State)
		states[name] = st
	}
	return states
}

/**
 * List command targets with their latest overview status
 * @returns {[]models.ServiceDetail} One entry per configured service, in configured order
 * @description
 * - Services missing from the overview (or before the first overview poll) are UNKNOWN
 */
func (d *DashboardService) Services() []models.ServiceDetail {
	byName := make(map[string]models.ServiceStatus)
	if ov := d.agg.Snapshot().Overview; ov != nil {
		for _, s := range ov.Services {
			byName[strings.ToLower(s.Name)] = s
		}
	}
	details := make([]models.ServiceDetail, 0, len(d.cfg.Services))
	for _, svc := range d.cfg.Services {
		detail := models.ServiceDetail{
			Name:        svc.Name,
			DisplayName: svc.DisplayName,
			Description: svc.Description,
			Status:      models.StateUnknown,
			Resettable:  svc.Resettable,
		}
		if s, ok := byName[strings.ToLower(svc.Name)]; ok {
			detail.Status = s.Status
			detail.LastCheck = s.LastCheck
			detail.URL = s.URL
		}
		details = append(details, detail)
	}
	return details
}
