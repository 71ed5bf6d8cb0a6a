package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ReloadResponse 重新加载配置的结果
type ReloadResponse struct {
	Status          string   `json:"status" example:"success"`
	Message         string   `json:"message" example:"Configuration reloaded successfully"`
	RestartRequired []string `json:"restartRequired,omitempty" example:"server,auth"`
}

// Timestamp 兼容后端返回的字符串时间和毫秒时间戳
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*t = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*t = Timestamp(v)
		return nil
	}
	// 数字时间戳, 统一转成RFC3339
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*t = Timestamp(s)
		return nil
	}
	*t = Timestamp(time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339))
	return nil
}

// Time 解析时间, 无法解析时返回零值
func (t Timestamp) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if v, err := time.Parse(layout, string(t)); err == nil {
			return v
		}
	}
	return time.Time{}
}
