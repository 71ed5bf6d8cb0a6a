package controllers

import (
	"net/http"

	"imc-manager/internal/diagram"
	"imc-manager/internal/env"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/view"
	"imc-manager/internal/web"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

// PageData 页面模板的数据
type PageData struct {
	Title       string
	Active      string
	Version     string
	Dashboard   view.Dashboard
	Diagram     string
	DiagramName string
	Services    []models.ServiceDetail
	Fleet       *models.FleetReport
	Panel       string
}

type PageController struct {
	server *services.Server
}

/**
 * Create new page controller instance
 * @param {*services.Server} server - Server owning the snapshots
 * @returns {*PageController} New page controller instance
 * @description
 * - Pages are rendered from the latest snapshots and then kept current by app.js
 *   through /imc/api/v1/stream
 * - The engine must have the templates from web.Templates loaded
 */
func NewPageController(server *services.Server) *PageController {
	return &PageController{
		server: server,
	}
}

// RegisterRoutes 注册页面和静态资源
func (p *PageController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", p.Index)
	r.GET("/services", p.Services)
	r.GET("/files", p.Files)
	r.GET("/telemetry", p.Telemetry)
	r.StaticFS("/static", web.Static())
}

func (p *PageController) page(title, active string) PageData {
	return PageData{
		Title:     title,
		Active:    active,
		Version:   env.Version,
		Dashboard: p.server.Dashboard().Dashboard(defaultEventLimit),
	}
}

// withDiagram 内嵌渲染好的拓扑图, 后续由diagram-patch增量更新
func (p *PageController) withDiagram(data *PageData, name string) {
	scene, err := p.server.Dashboard().Scene(name)
	if err != nil {
		logger.Errorf("Render diagram %s: %v", name, err)
		return
	}
	data.Diagram = diagram.RenderString(scene)
	data.DiagramName = scene.Name
}

// @Summary 仪表盘页面
// @Tags Pages
// @Produce html
// @Router / [get]
func (p *PageController) Index(c *gin.Context) {
	data := p.page("Dashboard", web.PageIndex)
	p.withDiagram(&data, diagram.TopologyRAG)
	c.HTML(http.StatusOK, web.PageIndex, data)
}

// @Summary 服务管理页面
// @Tags Pages
// @Produce html
// @Router /services [get]
func (p *PageController) Services(c *gin.Context) {
	data := p.page("Services", web.PageServices)
	data.Services = p.server.Dashboard().Services()
	c.HTML(http.StatusOK, web.PageServices, data)
}

// @Summary 文件页面
// @Tags Pages
// @Produce html
// @Router /files [get]
func (p *PageController) Files(c *gin.Context) {
	data := p.page("Files", web.PageFiles)
	c.HTML(http.StatusOK, web.PageFiles, data)
}

// @Summary 遥测页面
// @Description panel=fleet时加载安全驾驶面板
// @Tags Pages
// @Produce html
// @Param panel query string false "fleet"
// @Router /telemetry [get]
func (p *PageController) Telemetry(c *gin.Context) {
	data := p.page("Telemetry", web.PageTelemetry)
	p.withDiagram(&data, diagram.TopologyTelemetry)
	data.Panel = c.Query("panel")
	if data.Panel == "fleet" {
		report := p.server.Fleet().Report(c.Request.Context())
		data.Fleet = &report
	}
	c.HTML(http.StatusOK, web.PageTelemetry, data)
}
