package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imc-manager/internal/diagram"
	"imc-manager/internal/models"
	"imc-manager/internal/view"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

// defaultEventLimit 页面上展示的最近事件条数
const defaultEventLimit = 10

type DashboardController struct {
	server *services.Server
}

/**
 * Create new dashboard controller instance
 * @param {*services.Server} server - Server owning the snapshots
 * @returns {*DashboardController} New dashboard controller instance
 * @description
 * - All handlers are read only and serve the latest committed snapshots
 */
func NewDashboardController(server *services.Server) *DashboardController {
	return &DashboardController{
		server: server,
	}
}

/**
 * Register read only API routes
 * @param {gin.IRoutes} r - Router group, normally /imc/api/v1
 * @example
 * api := router.Group("/imc/api/v1")
 * NewDashboardController(server).RegisterRoutes(api)
 */
func (d *DashboardController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/dashboard", d.GetDashboard)
	r.GET("/overview", d.GetOverview)
	r.GET("/components", d.ListComponents)
	r.GET("/files", d.ListFiles)
	r.GET("/progress", d.GetProgress)
	r.GET("/events", d.ListEvents)
	r.GET("/telemetry", d.GetTelemetry)
	r.GET("/diagram/:name", d.GetDiagram)
	r.GET("/fleet", d.GetFleet)
}

// queryInt 读取整数查询参数, 缺省或非法时返回def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// GetDashboard returns the whole status view model
//
//	@Summary		Dashboard view model
//	@Description	Health label, summary cards, component cards, services, files, progress and recent events
//	@Tags			Dashboard
//	@Produce		json
//	@Param			events	query		int	false	"Number of recent events, 0 for all buffered"
//	@Success		200		{object}	view.Dashboard
//	@Router			/imc/api/v1/dashboard [get]
func (d *DashboardController) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, d.server.Dashboard().Dashboard(queryInt(c, "events", defaultEventLimit)))
}

// GetOverview returns the pipeline overview as reported by the backend
//
//	@Summary		Pipeline overview
//	@Description	Backend counts shown verbatim, the last good overview is kept when a poll fails
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/imc/api/v1/overview [get]
func (d *DashboardController) GetOverview(c *gin.Context) {
	snap := d.server.Aggregator().Snapshot()
	var rows []view.ServiceRow
	if snap.Overview != nil {
		rows = view.ServiceRows(snap.Overview.Services, time.Now())
	}
	c.JSON(http.StatusOK, gin.H{
		"overview":  snap.Overview,
		"summary":   view.BuildOverview(snap.Overview, snap.OverviewErr),
		"services":  rows,
		"error":     snap.OverviewErr,
		"fetchedAt": snap.OverviewAt,
	})
}

// ListComponents returns the processing state of every configured component
//
//	@Summary		Component states
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{array}	view.ComponentView
//	@Router			/imc/api/v1/components [get]
func (d *DashboardController) ListComponents(c *gin.Context) {
	c.JSON(http.StatusOK, d.server.Dashboard().Dashboard(0).Components)
}

// ListFiles returns the document watcher's file list
//
//	@Summary		File list
//	@Description	An upstream error empties the list and is returned in the error field
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/imc/api/v1/files [get]
func (d *DashboardController) ListFiles(c *gin.Context) {
	snap := d.server.Aggregator().Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"files":     view.FileRows(snap.Files),
		"error":     snap.FilesErr,
		"fetchedAt": snap.FilesAt,
	})
}

// GetProgress returns the pipeline progress counters
//
//	@Summary		Pipeline progress
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/imc/api/v1/progress [get]
func (d *DashboardController) GetProgress(c *gin.Context) {
	p := d.server.Aggregator().Snapshot().Progress
	c.JSON(http.StatusOK, gin.H{
		"progress": p,
		"stages":   view.ProgressStages(p),
	})
}

// ListEvents returns the most recent stream events, newest first
//
//	@Summary		Recent events
//	@Tags			Dashboard
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of events"
//	@Success		200		{object}	map[string]interface{}
//	@Router			/imc/api/v1/events [get]
func (d *DashboardController) ListEvents(c *gin.Context) {
	stream := d.server.Stream()
	c.JSON(http.StatusOK, gin.H{
		"events": view.EventRows(stream.Recent(), queryInt(c, "limit", 0)),
		"stream": stream.Status(),
	})
}

// GetTelemetry returns the latest telemetry metrics
//
//	@Summary		Telemetry metrics
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/imc/api/v1/telemetry [get]
func (d *DashboardController) GetTelemetry(c *gin.Context) {
	snap := d.server.Aggregator().Snapshot()
	metrics := snap.Telemetry
	if metrics == nil {
		metrics = models.TelemetryMetrics{}
	}
	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"error":   snap.TelemetryErr,
	})
}

// GetDiagram renders a built-in topology
//
//	@Summary		Render diagram
//	@Description	Returns SVG by default, the scene as JSON with format=json
//	@Tags			Diagram
//	@Produce		image/svg+xml
//	@Param			name	path		string	true	"Topology name (rag, telemetry), optional .svg suffix"
//	@Param			format	query		string	false	"svg or json"
//	@Success		200		{string}	string	"SVG document"
//	@Failure		404		{object}	models.ErrorResponse
//	@Router			/imc/api/v1/diagram/{name} [get]
func (d *DashboardController) GetDiagram(c *gin.Context) {
	name := strings.TrimSuffix(c.Param("name"), ".svg")
	scene, err := d.server.Dashboard().Scene(name)
	if errors.Is(err, diagram.ErrUnknownTopology) {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "diagram.notexist",
			Error: fmt.Sprintf("diagram [%s] isn't exist", name),
		})
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, scene)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(diagram.RenderString(scene)))
}

// GetFleet returns the safe driver panel
//
//	@Summary		Safe driver panel
//	@Description	Sections that cannot be loaded are filled with demo values and listed in fallbacks
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	models.FleetReport
//	@Router			/imc/api/v1/fleet [get]
func (d *DashboardController) GetFleet(c *gin.Context) {
	c.JSON(http.StatusOK, d.server.Fleet().Report(c.Request.Context()))
}
