package models

import "strings"

// ServiceState 后端上报的服务状态
type ServiceState string

const (
	StateStarted ServiceState = "STARTED"
	StateStopped ServiceState = "STOPPED"
	StateIdle    ServiceState = "IDLE"
	StateUnknown ServiceState = "UNKNOWN"
	StateError   ServiceState = "ERROR"
	// 遥测服务使用ACTIVE表示运行中
	StateActive ServiceState = "ACTIVE"
)

// Running STARTED与ACTIVE都视为运行中
func (s ServiceState) Running() bool {
	switch ServiceState(strings.ToUpper(string(s))) {
	case StateStarted, StateActive:
		return true
	}
	return false
}

// ServiceStatus 服务状态
// @Description 注册中心返回的单个服务状态
type ServiceStatus struct {
	Name        string       `json:"name" example:"hdfswatcher" description:"服务名称"`
	DisplayName string       `json:"displayName" example:"HDFS Watcher" description:"显示名称"`
	Description string       `json:"description" example:"Monitors document storage for new files" description:"服务描述"`
	Status      ServiceState `json:"status" example:"STARTED" description:"服务状态"`
	LastCheck   Timestamp    `json:"lastCheck,omitempty" example:"2024-01-01T10:00:00Z" description:"最后检查时间"`
	URL         string       `json:"url,omitempty" description:"服务地址"`
}

// PipelineOverview RAG流水线概览
// @Description 后端汇总的服务数量与整体状态, 原样展示
type PipelineOverview struct {
	TotalServices  int             `json:"totalServices" example:"3" description:"服务总数"`
	ActiveServices int             `json:"activeServices" example:"2" description:"运行中的服务数"`
	OverallStatus  string          `json:"overallStatus" example:"DEGRADED" description:"整体状态"`
	Services       []ServiceStatus `json:"services" description:"服务列表"`
}

// ComponentState 通过代理查询到的组件处理状态
type ComponentState struct {
	Name      string       `json:"name"`
	State     ServiceState `json:"state"`
	CheckedAt string       `json:"checkedAt"`
	Error     string       `json:"error,omitempty"`
}

// ServiceDetail 可下发命令的服务及其最近一次概览中的状态
type ServiceDetail struct {
	Name        string       `json:"name" example:"textproc"`
	DisplayName string       `json:"displayName" example:"Text Processor"`
	Description string       `json:"description"`
	Status      ServiceState `json:"status" example:"STARTED"`
	LastCheck   Timestamp    `json:"lastCheck,omitempty"`
	URL         string       `json:"url,omitempty"`
	Resettable  bool         `json:"resettable"`
}
