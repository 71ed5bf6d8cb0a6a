package models

import (
	"time"
)

// CheckItem 单项检查结果
// @Description 单个轮询源或连接的检查结果
type CheckItem struct {
	Name      string `json:"name" example:"overview" description:"检查项名称"`
	Passed    bool   `json:"passed" example:"true" description:"是否通过"`
	Detail    string `json:"detail,omitempty" example:"DEGRADED" description:"详细信息"`
	CheckedAt string `json:"checkedAt,omitempty" example:"2024-01-01T10:00:00Z" description:"最近一次数据时间"`
}

// CheckResponse 检查API响应结构
// @Description 系统检查API响应数据结构
type CheckResponse struct {
	Timestamp     time.Time   `json:"timestamp" example:"2024-01-01T10:00:00Z" description:"检查时间戳"`
	Items         []CheckItem `json:"items" description:"检查项列表"`
	OverallStatus string      `json:"overallStatus" example:"healthy" description:"总体状态"`
	TotalChecks   int         `json:"totalChecks" example:"10" description:"总检查项数"`
	PassedChecks  int         `json:"passedChecks" example:"8" description:"通过检查项数"`
	FailedChecks  int         `json:"failedChecks" example:"2" description:"失败检查项数"`
}
