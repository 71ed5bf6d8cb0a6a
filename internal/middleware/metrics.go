package middleware

import (
	"strings"
	"time"

	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

// 不计入请求统计的路由: 抓取指标和健康检查
var skipRoutes = map[string]bool{
	"/metrics": true,
	"/healthz": true,
}

/**
 * HTTP request metrics middleware
 * @description
 * - Requests are labelled by route template ("/imc/api/v1/services/:name/:action"),
 *   unmatched paths share the "unmatched" label
 * - Static assets share the "/static" label
 * - Event stream connections are counted but their duration is not observed
 * - Status >= 400 counts as an error request for /healthz
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := RouteLabel(c)
		if skipRoutes[route] {
			return
		}
		services.IncrementRequestCount(route)
		if !strings.HasSuffix(route, "/stream") {
			services.RecordRequestDuration(route, time.Since(start).Seconds())
		}
		if c.Writer.Status() >= 400 {
			services.IncrementErrorCount(route)
		}
	}
}

// RouteLabel 请求对应的指标标签
func RouteLabel(c *gin.Context) string {
	route := c.FullPath()
	switch {
	case route == "":
		return "unmatched"
	case strings.HasPrefix(route, "/static/"):
		return "/static"
	}
	return route
}
