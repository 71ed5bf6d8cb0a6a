package watch

import (
	"context"
	"time"

	"imc-manager/cmd/root"
	"imc-manager/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	interval time.Duration
	events   int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "终端仪表盘",
	Long:  "在终端中显示与Web仪表盘相同的内容, 并可以启停服务, 重处理文件和重启流水线",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatch(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

func runWatch(ctx context.Context) error {
	client := root.NewClient()
	defer client.Close()

	model := tui.NewModel(ctx, tui.NewRemoteSource(client), tui.Options{
		Interval: interval,
		Events:   events,
	})
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func init() {
	root.RootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "刷新周期")
	watchCmd.Flags().IntVarP(&events, "events", "n", 20, "显示的最近事件条数")
}
