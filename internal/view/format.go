package view

import (
	"fmt"
	"strings"
	"time"

	"imc-manager/internal/models"

	"github.com/dustin/go-humanize"
)

// 状态对应的颜色名, 页面和终端界面共用
const (
	ToneRunning = "running"
	ToneStopped = "stopped"
	ToneError   = "error"
	ToneWarning = "warning"
	ToneUnknown = "unknown"
)

// Placeholder 数据尚未获取时显示的占位符
const Placeholder = "-"

// ComponentBadge 组件状态标签, IDLE表示接口不可达, 显示为ERROR
func ComponentBadge(state models.ServiceState) string {
	switch state {
	case models.StateIdle:
		return string(models.StateError)
	case "":
		return string(models.StateUnknown)
	default:
		return string(state)
	}
}

// ComponentTone 组件状态对应的颜色
func ComponentTone(state models.ServiceState) string {
	switch state {
	case models.StateStarted, models.StateActive:
		return ToneRunning
	case models.StateStopped:
		return ToneStopped
	case models.StateIdle, models.StateError:
		return ToneError
	default:
		return ToneUnknown
	}
}

// ServiceTone 注册中心状态对应的颜色, 大小写不敏感
func ServiceTone(status models.ServiceState) string {
	return ComponentTone(models.ServiceState(strings.ToUpper(string(status))))
}

/**
 * Format a backend reported file size
 * @param {models.FileSize} size - Byte count or preformatted text
 * @returns {string} SI formatted size ("2.0 MB"), the text as is, or "-"
 */
func FormatSize(size models.FileSize) string {
	if size.Known {
		if size.Bytes < 0 {
			return Placeholder
		}
		return humanize.Bytes(uint64(size.Bytes))
	}
	if size.Text != "" {
		return size.Text
	}
	return Placeholder
}

// NormalizeFileState 未知状态按processed标志推断
func NormalizeFileState(f models.FileEntry) models.FileState {
	switch models.FileState(strings.ToLower(string(f.State))) {
	case models.FilePending:
		return models.FilePending
	case models.FileProcessing:
		return models.FileProcessing
	case models.FileProcessed:
		return models.FileProcessed
	}
	if f.Processed {
		return models.FileProcessed
	}
	return models.FilePending
}

// FileStateLabel 表格里显示的状态文字
func FileStateLabel(state models.FileState) string {
	switch state {
	case models.FileProcessing:
		return "Processing"
	case models.FileProcessed:
		return "Processed"
	default:
		return "Pending"
	}
}

/**
 * Convert backend file entries into table rows
 * @param {[]models.FileEntry} files - Raw entries from the files endpoint
 * @returns {[]models.FileRecord} One row per entry in backend order
 * @example
 * rows := view.FileRows(resp.Files)
 * // {Name: "doc1.pdf", Size: "2.0 MB", State: "processed", Label: "Processed"}
 */
func FileRows(files []models.FileEntry) []models.FileRecord {
	rows := make([]models.FileRecord, 0, len(files))
	for _, f := range files {
		state := NormalizeFileState(f)
		name := f.DisplayName()
		if name == "" {
			name = Placeholder
		}
		rows = append(rows, models.FileRecord{
			Name:  name,
			Size:  FormatSize(f.Size),
			State: state,
			Label: FileStateLabel(state),
		})
	}
	return rows
}

// Ago 相对时间, 无法解析时原样返回
func Ago(ts models.Timestamp, now time.Time) string {
	if ts == "" {
		return Placeholder
	}
	t := ts.Time()
	if t.IsZero() {
		return string(ts)
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatCount 大于1000的计数缩写为K
func FormatCount(n int64) string {
	if n > 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
