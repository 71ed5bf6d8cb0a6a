package diagram

import "strings"

// Status 节点健康状态
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusStopped Status = "stopped"
)

// 节点状态色
const (
	ColorHealthy = "#10B981"
	ColorWarning = "#F59E0B"
	ColorError   = "#EF4444"
	ColorStopped = "#6B7280"
)

// 连线和粒子颜色
const (
	colorEdge         = "#3B82F6"
	colorExternalEdge = "#8B5CF6"
	colorParticle     = "#34D399"
	colorNodeFill     = "#2D3748"
	colorGridFill     = "#1F2937"
	colorGridLine     = "#4B5563"
	colorLabel        = "#E5E7EB"
	colorMuted        = "#9CA3AF"
)

// Color 状态对应的光环颜色, 未知状态按stopped处理
func (s Status) Color() string {
	switch s {
	case StatusHealthy:
		return ColorHealthy
	case StatusWarning:
		return ColorWarning
	case StatusError:
		return ColorError
	default:
		return ColorStopped
	}
}

// valueColor 指标值颜色, 只有healthy用绿色
func (s Status) valueColor() string {
	if s == StatusHealthy {
		return ColorHealthy
	}
	return ColorWarning
}

/**
 * Map a backend service state onto a node status
 * @param {string} state - Reported state, case insensitive, empty when the service is missing
 * @returns {Status} healthy, warning, error or stopped
 * @description
 * - STARTED, ACTIVE, RUNNING, UP -> healthy
 * - IDLE (endpoint unreachable), ERROR, DOWN, FAILED -> error
 * - WARNING, DEGRADED -> warning
 * - STOPPED, UNKNOWN and missing -> stopped
 */
func StatusFor(state string) Status {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "STARTED", "ACTIVE", "RUNNING", "UP", "HEALTHY":
		return StatusHealthy
	case "IDLE", "ERROR", "DOWN", "FAILED", "CRITICAL":
		return StatusError
	case "WARNING", "DEGRADED":
		return StatusWarning
	default:
		return StatusStopped
	}
}

// badgeFor 没有指标表格的节点显示的状态文字
func badgeFor(state string) string {
	s := strings.ToUpper(strings.TrimSpace(state))
	switch s {
	case "":
		return "UNKNOWN"
	case "IDLE":
		return "ERROR"
	}
	return s
}
