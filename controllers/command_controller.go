package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"imc-manager/internal/models"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
)

type CommandController struct {
	server *services.Server
}

/**
 * Create new command controller instance
 * @param {*services.Server} server - Server owning the dispatcher
 * @returns {*CommandController} New command controller instance
 * @description
 * - Forwards operator commands to the backend through services.Dispatcher
 * - A failed command answers with the upstream HTTP status and the backend message
 * @example
 * controller := controllers.NewCommandController(server)
 * controller.RegisterRoutes(router.Group("/imc/api/v1"))
 */
func NewCommandController(server *services.Server) *CommandController {
	return &CommandController{
		server: server,
	}
}

/**
 * Register command routes
 * @param {gin.IRoutes} r - Router group, normally /imc/api/v1
 * @description
 * - Registers routes for:
 *   - Service listing (list/get)
 *   - Service control (start/stop/toggle/reset)
 *   - Pipeline commands (reprocess/restart/reset)
 */
func (s *CommandController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/services", s.ListServices)
	r.GET("/services/:name", s.GetService)
	r.POST("/services/:name/:action", s.ServiceAction)
	r.POST("/files/reprocess", s.Reprocess)
	r.POST("/pipeline/restart", s.RestartPipeline)
	r.POST("/pipeline/reset", s.ResetPipeline)
}

// ListServices lists all command targets
//
//	@Summary		List all services
//	@Description	Get list of configured services with their latest overview status
//	@Tags			Services
//	@Produce		json
//	@Success		200	{array}	models.ServiceDetail	"List of services"
//	@Router			/imc/api/v1/services [get]
func (s *CommandController) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, s.server.Dashboard().Services())
}

// GetService gets one command target by name
//
//	@Summary		Get service information
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceDetail	"Service detail information"
//	@Failure		404		{object}	models.ErrorResponse	"Service not found error response"
//	@Router			/imc/api/v1/services/{name} [get]
func (s *CommandController) GetService(c *gin.Context) {
	name := c.Param("name")
	for _, svc := range s.server.Dashboard().Services() {
		if strings.EqualFold(svc.Name, name) {
			c.JSON(http.StatusOK, svc)
			return
		}
	}
	c.JSON(http.StatusNotFound, &models.ErrorResponse{
		Code:  "service.notexist",
		Error: fmt.Sprintf("service [%s] isn't exist", name),
	})
}

// ServiceAction starts, stops, toggles or resets a service
//
//	@Summary		Control service
//	@Description	Send start, stop, toggle or reset to a service; the service list is refreshed shortly after a success
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Param			action	path		string					true	"start, stop, toggle or reset"
//	@Success		200		{object}	models.CommandResult	"Command accepted by the backend"
//	@Failure		400		{object}	models.ErrorResponse	"Unknown action or reset not supported"
//	@Failure		404		{object}	models.ErrorResponse	"Service not found error response"
//	@Failure		502		{object}	models.ErrorResponse	"Backend unreachable"
//	@Router			/imc/api/v1/services/{name}/{action} [post]
func (s *CommandController) ServiceAction(c *gin.Context) {
	name := c.Param("name")
	action := c.Param("action")
	switch action {
	case services.CmdStart, services.CmdStop, services.CmdToggle, services.CmdReset:
	default:
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "command.unknown",
			Error: fmt.Sprintf("unknown action [%s]", action),
		})
		return
	}
	res, err := s.server.Dispatcher().Execute(c.Request.Context(), action, name)
	s.reply(c, res, err)
}

// Reprocess clears the processed file records
//
//	@Summary		Reprocess all files
//	@Tags			Pipeline
//	@Produce		json
//	@Success		200	{object}	models.CommandResult
//	@Failure		502	{object}	models.ErrorResponse
//	@Router			/imc/api/v1/files/reprocess [post]
func (s *CommandController) Reprocess(c *gin.Context) {
	res, err := s.server.Dispatcher().Reprocess(c.Request.Context())
	s.reply(c, res, err)
}

// RestartPipeline restarts every pipeline service
//
//	@Summary		Restart pipeline
//	@Description	Partial failures reported by the backend are returned as warnings
//	@Tags			Pipeline
//	@Produce		json
//	@Success		200	{object}	models.CommandResult
//	@Failure		502	{object}	models.ErrorResponse
//	@Router			/imc/api/v1/pipeline/restart [post]
func (s *CommandController) RestartPipeline(c *gin.Context) {
	res, err := s.server.Dispatcher().RestartPipeline(c.Request.Context())
	s.reply(c, res, err)
}

// ResetPipeline resets the text processor's processing state
//
//	@Summary		Reset processing state
//	@Tags			Pipeline
//	@Produce		json
//	@Param			service	query		string	false	"Resettable service, defaults to textproc"
//	@Success		200		{object}	models.CommandResult
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		502		{object}	models.ErrorResponse
//	@Router			/imc/api/v1/pipeline/reset [post]
func (s *CommandController) ResetPipeline(c *gin.Context) {
	res, err := s.server.Dispatcher().Reset(c.Request.Context(), c.Query("service"))
	s.reply(c, res, err)
}

func (s *CommandController) reply(c *gin.Context, res *models.CommandResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	status, code := commandStatus(err)
	c.JSON(status, &models.ErrorResponse{
		Code:  code,
		Error: err.Error(),
	})
}

// commandStatus 命令错误对应的HTTP状态码和错误码
func commandStatus(err error) (int, string) {
	var cmdErr *services.CommandError
	switch {
	case errors.Is(err, services.ErrUnknownService):
		return http.StatusNotFound, "service.notexist"
	case errors.Is(err, services.ErrUnknownCommand):
		return http.StatusBadRequest, "command.unknown"
	case errors.Is(err, services.ErrNotResettable):
		return http.StatusBadRequest, "service.not_resettable"
	case errors.As(err, &cmdErr):
		if cmdErr.StatusCode >= 400 {
			return cmdErr.StatusCode, "command.failed"
		}
		return http.StatusBadGateway, "command.failed"
	}
	return http.StatusInternalServerError, "command.failed"
}
