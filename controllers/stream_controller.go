package controllers

import (
	"net/http"
	"time"

	"imc-manager/internal/diagram"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/services"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 推送给浏览器的事件名称
const (
	SSEEvent        = "event"
	SSERefresh      = services.EventRefreshServices
	SSEStatus       = "status"
	SSEDiagramPatch = "diagram-patch"
	SSEPing         = "ping"
)

// heartbeatInterval 空闲连接的心跳间隔, 防止代理断开
var heartbeatInterval = 15 * time.Second

type StreamController struct {
	server *services.Server
}

func NewStreamController(server *services.Server) *StreamController {
	return &StreamController{
		server: server,
	}
}

// RegisterRoutes 注册页面推送接口
func (s *StreamController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/stream", s.Stream)
}

// diagramPatch diagram-patch事件的数据
type diagramPatch struct {
	Diagram string          `json:"diagram"`
	Patches []diagram.Patch `json:"patches"`
}

// Stream pushes dashboard changes to a browser
//
//	@Summary		Dashboard event stream
//	@Description	Server-sent events: "event" for every upstream event, "refresh-services" after a successful command,
//	@Description	"status" with the dashboard view model after each poll, "diagram-patch" with keyed SVG patches
//	@Tags			Dashboard
//	@Produce		text/event-stream
//	@Param			diagram	query	string	false	"Topology whose patches should be pushed"
//	@Router			/imc/api/v1/stream [get]
func (s *StreamController) Stream(c *gin.Context) {
	var scene *diagram.Scene
	if name := c.Query("diagram"); name != "" {
		sc, err := s.server.Dashboard().Scene(name)
		if err != nil {
			c.JSON(http.StatusNotFound, &models.ErrorResponse{
				Code:  "diagram.notexist",
				Error: "diagram [" + name + "] isn't exist",
			})
			return
		}
		scene = &sc
	}

	events, unsubEvents := s.server.Stream().Subscribe()
	defer unsubEvents()
	updates, unsubUpdates := s.server.Aggregator().Subscribe()
	defer unsubUpdates()
	refresh := make(chan string, 4)
	unsubRefresh := s.server.Refresher().Subscribe(func(event string) {
		select {
		case refresh <- event:
		default:
		}
	})
	defer unsubRefresh()

	clientID := uuid.NewString()
	logger.Debugf("Stream client %s connected from %s", clientID, c.ClientIP())
	defer logger.Debugf("Stream client %s disconnected", clientID)

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, data interface{}) bool {
		if err := sse.Encode(c.Writer, sse.Event{Id: clientID, Event: event, Data: data}); err != nil {
			logger.Debugf("Stream client %s: %v", clientID, err)
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !send(SSEStatus, s.server.Dashboard().Dashboard(defaultEventLimit)) {
		return
	}
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		var ok bool
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			ok = send(SSEEvent, ev)
		case event := <-refresh:
			ok = send(event, gin.H{"at": time.Now().UTC().Format(time.RFC3339)})
		case u, open := <-updates:
			if !open {
				return
			}
			ok = send(SSEStatus, s.server.Dashboard().Dashboard(defaultEventLimit))
			if ok && scene != nil {
				ok = s.pushPatches(send, scene, u)
			}
		case <-heartbeat.C:
			ok = send(SSEPing, gin.H{"at": time.Now().UTC().Format(time.RFC3339)})
		}
		if !ok {
			return
		}
	}
}

// pushPatches 与该连接上一次发送的图比较, 只推送变化
func (s *StreamController) pushPatches(send func(string, interface{}) bool, scene *diagram.Scene, u services.Update) bool {
	next, err := s.server.Dashboard().Scene(scene.Name)
	if err != nil {
		return true
	}
	patches := diagram.Diff(*scene, next)
	*scene = next
	if len(patches) == 0 {
		return true
	}
	logger.Debugf("Diagram %s: %d patches after %s poll", scene.Name, len(patches), u.Poll)
	return send(SSEDiagramPatch, diagramPatch{Diagram: scene.Name, Patches: patches})
}
