package models

import "encoding/json"

// DiscoveredInstance 服务发现返回的实例
type DiscoveredInstance struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// DBEnvelope 数据库服务的统一响应包装
type DBEnvelope struct {
	Success              bool            `json:"success"`
	Data                 json.RawMessage `json:"data"`
	TotalTelemetryEvents int64           `json:"total_telemetry_events,omitempty"`
	NumRowsProcessed     int64           `json:"num_rows_processed,omitempty"`
	Error                string          `json:"error,omitempty"`
}

// FleetSummaryData fleet/summary的data部分
type FleetSummaryData struct {
	AverageSafetyScore *float64 `json:"averageSafetyScore"`
	TotalDrivers       *int     `json:"totalDrivers"`
	HighRiskCount      *int     `json:"highRiskCount"`
}

// DriverData 司机列表项, 兼容驼峰和下划线两种字段
type DriverData struct {
	DriverName   string          `json:"driverName"`
	DriverName2  string          `json:"driver_name"`
	SafetyScore  json.RawMessage `json:"safetyScore"`
	SafetyScore2 json.RawMessage `json:"safety_score"`
	RiskLevel    string          `json:"riskLevel"`
	RiskLevel2   string          `json:"risk_level"`
	VehicleID    string          `json:"vehicleId"`
	VehicleID2   string          `json:"vehicle_id"`
}

// ModelInfoData ml/model-info的data部分
type ModelInfoData struct {
	Accuracy         *float64 `json:"accuracy"`
	LastTrained      string   `json:"lastTrained"`
	NumIterations    *int64   `json:"numIterations"`
	NumRowsProcessed *int64   `json:"numRowsProcessed"`
}

// GForceData vehicle-events/high-gforce列表项
type GForceData struct {
	VehicleID  string          `json:"vehicleId"`
	VehicleID2 string          `json:"vehicle_id"`
	GForce     json.RawMessage `json:"gForce"`
	GForce2    json.RawMessage `json:"g_force"`
	Timestamp  Timestamp       `json:"timestamp"`
}

// DriverCard 安全驾驶面板上的司机卡片
type DriverCard struct {
	Name    string `json:"name"`
	Detail  string `json:"detail"`
	Vehicle string `json:"vehicle"`
}

// VehicleEventCard 急加减速事件卡片
type VehicleEventCard struct {
	Vehicle   string `json:"vehicle"`
	GForce    string `json:"gForce"`
	Timestamp string `json:"timestamp"`
}

// ModelInsight 模型信息
type ModelInsight struct {
	Accuracy     string `json:"accuracy"`
	TrainingDate string `json:"trainingDate"`
	Iterations   string `json:"iterations"`
	Drivers      string `json:"drivers"`
}

// FleetReport 安全驾驶评分面板数据
// @Description 五个接口分别获取, 任一失败使用演示数据
type FleetReport struct {
	DBServer      string             `json:"dbServer"`
	FleetScore    string             `json:"fleetScore"`
	TotalDrivers  string             `json:"totalDrivers"`
	HighRiskCount string             `json:"highRiskCount"`
	TotalEvents   string             `json:"totalEvents"`
	Model         ModelInsight       `json:"model"`
	TopPerformers []DriverCard       `json:"topPerformers"`
	HighRisk      []DriverCard       `json:"highRisk"`
	Events        []VehicleEventCard `json:"events"`
	Fallbacks     []string           `json:"fallbacks,omitempty"`
	Errors        []string           `json:"errors,omitempty"`
}
