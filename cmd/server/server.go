package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imc-manager/cmd/root"
	"imc-manager/controllers"
	"imc-manager/internal/config"
	"imc-manager/internal/env"
	"imc-manager/internal/logger"
	"imc-manager/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动仪表盘HTTP服务",
	Long:  `启动Web仪表盘: 连接上游事件流, 按周期轮询后端, 提供页面, JSON接口, SVG拓扑图和推送接口`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(context.Background()); err != nil {
			logger.Fatal(err)
		}
	},
}

// shutdownTimeout 退出时等待请求结束的最长时间
const shutdownTimeout = 5 * time.Second

/**
 * Run the dashboard server until SIGINT or SIGTERM
 * @param {context.Context} ctx - Parent context
 * @returns {error} Listener or serve errors
 * @description
 * - Listens on server.address and, when configured, on a unix socket for local CLI commands
 * - Stops pollers and the event stream before shutting down the HTTP server so
 *   long lived /stream responses end
 */
func startServer(ctx context.Context) error {
	cfg := config.App()
	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = logger.Writer()

	server := services.NewServer(cfg)
	router, err := controllers.NewRouter(server)
	if err != nil {
		return fmt.Errorf("初始化路由失败: %w", err)
	}

	listeners, err := openEndpoints(dashboardEndpoints(cfg))
	if len(listeners) == 0 {
		return fmt.Errorf("没有可用的侦听地址: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	server.Start(ctx)

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		l := l
		logger.Infof("imc-manager %s listening on %s://%s", env.Version, l.Addr().Network(), l.Addr().String())
		g.Go(func() error {
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		server.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Example = `  imc-manager server
  IMC_BACKEND_BASE_URL=https://imc.example.com imc-manager server --config ./config.yaml`
}
