package models

// TelemetryMetrics /api/metrics返回的遥测指标, 值统一转为字符串
type TelemetryMetrics map[string]string
