package controllers

import (
	"net/http"
	"strings"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/env"
	"imc-manager/internal/models"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server owning the pollers and the event stream
 * @returns {*APIController} New API controller instance
 * @description
 * - Serves configuration reload, system check and the health checks
 * @example
 * server := services.NewServer(config.App())
 * controller := controllers.NewAPIController(server)
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register system routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Reload and check live under /imc/api/v1; they and /api/info follow the auth settings of the engine
 * - Only /healthz and /api/health are registered by RegisterHealthRoutes, outside any auth group
 * @example
 * router := gin.Default()
 * controller := NewAPIController(server)
 * controller.RegisterRoutes(router)
 */
func (a *APIController) RegisterRoutes(r gin.IRoutes) {
	r.POST("/imc/api/v1/reload", a.ReloadConfig)
	r.POST("/imc/api/v1/check", a.Check)
	r.GET("/imc/api/v1/check", a.Check)
	r.GET("/api/info", a.Info)
}

// RegisterHealthRoutes 注册无需认证的健康检查接口
func (a *APIController) RegisterHealthRoutes(r gin.IRoutes) {
	r.GET("/healthz", a.Healthz)
	r.GET("/api/health", a.Health)
}

// @Summary 重新加载配置
// @Description 重新加载应用配置文件, 后端地址, 轮询周期, 组件和服务列表立即生效
// @Description server, auth, log 三项需要重启进程, 在restartRequired中列出
// @Tags Config
// @Success 200 {object} models.ReloadResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /imc/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := config.ReloadConfig(); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "config.reload_failed",
			Error: "Failed to reload configuration: " + err.Error(),
		})
		return
	}

	pending := a.server.Reload(config.App())
	resp := models.ReloadResponse{
		Status:          "success",
		Message:         "Configuration reloaded successfully",
		RestartRequired: pending,
	}
	if len(pending) > 0 {
		resp.Message = "Configuration reloaded, restart required for: " + strings.Join(pending, ", ")
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary 执行系统检查
// @Description 汇总事件流连接, 服务概览, 文件列表, 遥测指标和各组件的最近一次轮询结果
// @Description 组件处于IDLE或尚未轮询到时视为失败, 总体状态为healthy/warning/error
// @Tags System
// @Produce json
// @Success 200 {object} models.CheckResponse "检查成功, 返回各项数据源的状态"
// @Router /imc/api/v1/check [post]
func (a *APIController) Check(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.Check())
}

// @Summary 业务就绪检查
// @Description 返回服务版本, 启动时间, 健康状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHealthz())
}

// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} models.ApiHealth
// @Router /api/health [get]
func (a *APIController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.ApiHealth{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "imc-manager",
	})
}

// @Summary 应用信息
// @Tags System
// @Produce json
// @Success 200 {object} models.AppInfo
// @Router /api/info [get]
func (a *APIController) Info(c *gin.Context) {
	c.JSON(http.StatusOK, models.AppInfo{
		Name:        "IMC Manager",
		Version:     env.Version,
		Description: "Operations dashboard for the IMC document and telemetry pipelines",
	})
}
