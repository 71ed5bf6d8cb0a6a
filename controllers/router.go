package controllers

import (
	"imc-manager/internal/middleware"
	"imc-manager/internal/web"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/**
 * Build the HTTP router for the dashboard server
 * @param {*services.Server} server - Started or unstarted server
 * @returns {*gin.Engine} Engine with pages, API, stream, health checks and /metrics
 * @returns {error} Template parse error
 * @description
 * - Health checks and /metrics are registered before auth and stay public
 * - When auth.username is configured every other route requires HTTP Basic auth
 * @example
 * router, err := controllers.NewRouter(server)
 * router.Run(":8080")
 */
func NewRouter(server *services.Server) (*gin.Engine, error) {
	cfg := server.Config()
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.MetricsMiddleware())
	router.SetHTMLTemplate(tmpl)

	NewAPIController(server).RegisterHealthRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var root gin.IRouter = router
	if cfg.Auth.Username != "" {
		root = router.Group("/", gin.BasicAuth(gin.Accounts{cfg.Auth.Username: cfg.Auth.Password}))
	}
	NewPageController(server).RegisterRoutes(root)
	NewAPIController(server).RegisterRoutes(root)

	api := root.Group("/imc/api/v1")
	NewDashboardController(server).RegisterRoutes(api)
	NewCommandController(server).RegisterRoutes(api)
	NewStreamController(server).RegisterRoutes(api)
	return router, nil
}
