package metrics

import (
	"context"
	"fmt"
	"time"

	"imc-manager/cmd/root"
	"imc-manager/internal/config"
	"imc-manager/services"

	"github.com/spf13/cobra"
)

var (
	pushGatewayAddr string
	timeout         time.Duration
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&pushGatewayAddr, "addr", "a", "", "Pushgateway地址")
	Cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "指标采集超时时间")
}

var Cmd = &cobra.Command{
	Use:   "metrics",
	Short: "采集一轮数据并上报Prometheus指标",
	Long:  "不启动服务, 直接轮询一次后端的全部数据源, 把采集结果(imc_poll_*)推送到Pushgateway",
	Run: func(cmd *cobra.Command, args []string) {
		if err := collectAndPush(context.Background()); err != nil {
			fmt.Printf("指标上报失败: %v\n请检查Pushgateway地址是否正确且可访问\n", err)
			root.Exit(err)
		}
	},
}

/**
 * Poll every data source once and push the resulting metrics
 * @param {context.Context} ctx - Parent context, bounded by --timeout
 * @returns {error} Missing address or push errors
 * @description
 * - Poll failures are recorded in the metrics and do not abort the push
 */
func collectAndPush(ctx context.Context) error {
	cfg := config.App()
	if pushGatewayAddr == "" {
		pushGatewayAddr = cfg.Metrics.Pushgateway
	}
	if pushGatewayAddr == "" {
		return fmt.Errorf("pushgateway address is empty, use --addr or metrics.pushgateway")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	server := services.NewServer(cfg)
	defer server.Stop()
	server.Aggregator().PollAll(ctx)

	if err := services.PushMetrics(pushGatewayAddr, cfg.Metrics.Job); err != nil {
		return err
	}
	fmt.Printf("Metrics pushed to %s\n", pushGatewayAddr)
	return nil
}
