package models

// HealthResponse 健康检查响应结构
// @Description 健康检查API响应数据结构
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0" description:"服务版本"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z" description:"启动时间"`
	Status    string  `json:"status" example:"UP" description:"健康状态"`
	Uptime    string  `json:"uptime" example:"1h30m45s" description:"运行时长"`
	Metrics   Metrics `json:"metrics" description:"关键指标"`
}

// Metrics 关键指标结构
// @Description 系统关键指标数据结构
type Metrics struct {
	TotalRequests    int64 `json:"totalRequests" example:"1000" description:"总请求数"`
	ErrorRequests    int64 `json:"errorRequests" example:"5" description:"出错请求数"`
	ActiveComponents int   `json:"activeComponents" example:"3" description:"运行中的组件数"`
	TotalComponents  int   `json:"totalComponents" example:"3" description:"组件总数"`
	StreamConnected  bool  `json:"streamConnected" example:"true" description:"事件流是否已连接"`
	BufferedEvents   int   `json:"bufferedEvents" example:"12" description:"缓存的最近事件数"`
}

// ApiHealth GET /api/health
type ApiHealth struct {
	Status    string `json:"status" example:"UP"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service" example:"imc-manager"`
}

// AppInfo GET /api/info
type AppInfo struct {
	Name        string `json:"name" example:"IMC Manager"`
	Version     string `json:"version" example:"1.0.0"`
	Description string `json:"description"`
}
