package pipeline

import (
	"context"
	"net/url"

	"imc-manager/cmd/root"
	"imc-manager/cmd/service"
	"imc-manager/internal/utils"
	"imc-manager/internal/view"

	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "流水线进度, 重启和重置",
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "查看各阶段已处理的文件数",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showProgress(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "依次停止并启动所有流水线服务",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := service.RunCommand(context.Background(), "/pipeline/restart"); err != nil {
			root.Exit(err)
		}
	},
}

var resetService string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "重置服务的处理状态",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := "/pipeline/reset"
		if resetService != "" {
			path += "?service=" + url.QueryEscape(resetService)
		}
		if err := service.RunCommand(context.Background(), path); err != nil {
			root.Exit(err)
		}
	},
}

type progressReply struct {
	Stages []view.StageRow `json:"stages"`
}

// showProgress 输出各阶段的计数, 每个计数带有各自的获取时间
func showProgress(ctx context.Context) error {
	var reply progressReply
	if err := root.GetJSON(ctx, "/progress", nil, &reply); err != nil {
		return err
	}
	dataList, err := utils.ToOrderedMaps(reply.Stages)
	if err != nil {
		return err
	}
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	root.RootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(progressCmd)
	pipelineCmd.AddCommand(restartCmd)
	pipelineCmd.AddCommand(resetCmd)
	resetCmd.Flags().StringVarP(&resetService, "service", "s", "", "要重置的服务, 默认textproc")

	pipelineCmd.Example = `  imc-manager pipeline progress
  imc-manager pipeline reset --service textproc`
}
