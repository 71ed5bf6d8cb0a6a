package root

import (
	"fmt"
	"os"

	"imc-manager/internal/config"
	"imc-manager/internal/utils"

	"github.com/spf13/cobra"
)

var configFile string

var RootCmd = &cobra.Command{
	Use:   "imc-manager",
	Short: "IMC运维仪表盘",
	Long: `imc-manager监控IMC数据流水线(文档监视、文本处理、向量化)和车辆遥测拓扑,
提供Web仪表盘、终端界面以及服务启停、重处理等运维命令`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		config.SetConfigFile(configFile)
		return config.ReloadConfig()
	},
}

// Exit 打印错误并以非0退出
func Exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "配置文件路径(默认查找./config.yaml, $HOME/.imc-manager/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&utils.OutputFormat, "output", "o", "table", "输出格式: table, json, yaml")
}
