package view

import (
	"strings"

	"imc-manager/internal/models"
)

// HealthLabel 流水线健康度
type HealthLabel string

const (
	Healthy  HealthLabel = "HEALTHY"
	Degraded HealthLabel = "DEGRADED"
	Critical HealthLabel = "CRITICAL"
)

/**
 * Derive the pipeline health label
 * @param {int} active - Number of components reporting STARTED
 * @param {int} total - Number of configured components
 * @param {int} errors - Number of error events in the recent buffer
 * @returns {HealthLabel} HEALTHY, DEGRADED or CRITICAL
 * @description
 * - HEALTHY iff every component is active and no error event is buffered
 * - DEGRADED iff more than half of the components are active
 * - CRITICAL otherwise, including total == 0 with errors present
 * @example
 * view.Health(3, 3, 0) // HEALTHY
 * view.Health(2, 3, 1) // DEGRADED
 * view.Health(1, 3, 0) // CRITICAL
 */
func Health(active, total, errors int) HealthLabel {
	if active == total && errors == 0 {
		return Healthy
	}
	// active > total/2, 避免整数除法截断
	if active*2 > total {
		return Degraded
	}
	return Critical
}

// Tone 健康度对应的颜色
func (h HealthLabel) Tone() string {
	switch h {
	case Healthy:
		return ToneRunning
	case Degraded:
		return ToneWarning
	default:
		return ToneError
	}
}

// Icon 健康度对应的图标
func (h HealthLabel) Icon() string {
	switch h {
	case Healthy:
		return "🟢"
	case Degraded:
		return "🟡"
	default:
		return "🔴"
	}
}

// IsErrorEvent 事件status忽略大小写等于error
func IsErrorEvent(e models.EventDto) bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "error")
}

// CountErrors 统计最近事件中的错误事件
func CountErrors(events []models.EventDto) int {
	n := 0
	for _, e := range events {
		if IsErrorEvent(e) {
			n++
		}
	}
	return n
}

// CountActive 统计处于STARTED的组件
func CountActive(states map[string]models.ComponentState) int {
	n := 0
	for _, s := range states {
		if s.State == models.StateStarted {
			n++
		}
	}
	return n
}
