package fleet

import (
	"context"
	"fmt"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"

	"github.com/spf13/cobra"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "安全驾驶评分面板",
	Long:  "输出车队评分, 模型信息, 优秀/高风险司机和最近的车辆事件, 无法获取的部分使用演示数据",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showFleet(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

func showFleet(ctx context.Context) error {
	var report models.FleetReport
	if err := root.GetJSON(ctx, "/fleet", nil, &report); err != nil {
		return err
	}
	if strings.ToLower(utils.OutputFormat) != "table" {
		utils.PrintValue(report)
		return nil
	}

	fmt.Printf("Database server: %s\n", report.DBServer)
	fmt.Printf("Fleet score %s | drivers %s | high risk %s | events %s\n",
		report.FleetScore, report.TotalDrivers, report.HighRiskCount, report.TotalEvents)
	fmt.Printf("Model accuracy %s, trained %s, %s iterations, %s drivers\n\n",
		report.Model.Accuracy, report.Model.TrainingDate, report.Model.Iterations, report.Model.Drivers)

	if err := printSection("Top performers", report.TopPerformers); err != nil {
		return err
	}
	if err := printSection("High risk drivers", report.HighRisk); err != nil {
		return err
	}
	if err := printSection("Recent vehicle events", report.Events); err != nil {
		return err
	}
	if len(report.Fallbacks) > 0 {
		fmt.Printf("\nDemo data shown for: %s\n", strings.Join(report.Fallbacks, ", "))
	}
	return nil
}

func printSection[T any](title string, items []T) error {
	dataList, err := utils.ToOrderedMaps(items)
	if err != nil {
		return err
	}
	fmt.Println(title)
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	root.RootCmd.AddCommand(fleetCmd)
}
