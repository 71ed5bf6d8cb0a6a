package models

// ReprocessResponse POST /api/services/hdfswatcher/reprocess
type ReprocessResponse struct {
	ClearedCount int    `json:"clearedCount"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RestartResponse POST /api/services/restart-pipeline
type RestartResponse struct {
	Status  string   `json:"status,omitempty"`
	Message string   `json:"message,omitempty"`
	Results []string `json:"results"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// CommandReply 通用的命令响应体
type CommandReply struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommandResult 命令执行结果
// @Description 返回给仪表盘页面和命令行的命令结果
type CommandResult struct {
	RequestID    string   `json:"requestId"`
	Command      string   `json:"command"`
	Service      string   `json:"service,omitempty"`
	StatusCode   int      `json:"statusCode"`
	Message      string   `json:"message,omitempty"`
	ClearedCount int      `json:"clearedCount,omitempty"`
	Results      []string `json:"results,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}
