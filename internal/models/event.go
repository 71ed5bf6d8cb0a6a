package models

// EventDto 上游事件流中的事件
type EventDto struct {
	App       string    `json:"app"`
	URL       string    `json:"url,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
}

// StreamStatus 事件流连接状态
type StreamStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	Buffered  int    `json:"buffered"`
	Received  uint64 `json:"received"`
}
