package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"
	"imc-manager/internal/view"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [组件或服务名称]",
	Short: "查看流水线状态",
	Long:  "查看流水线健康度和各组件状态, 如果指定了名称, 则只显示该组件或服务的详细信息",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := showStatus(context.Background(), args); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * Show pipeline status
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @param {[]string} args - Optional component or service name
 * @returns {error} Returns error if the server cannot be reached or the name is unknown
 * @description
 * - Without a name prints the health label, summary cards and component states
 * - A component name (hdfsWatcher) prints that component, a service name (hdfswatcher) its registry status
 */
func showStatus(ctx context.Context, args []string) error {
	var dash view.Dashboard
	if err := root.GetJSON(ctx, "/dashboard", map[string]interface{}{"events": 0}, &dash); err != nil {
		return err
	}
	if len(args) == 0 {
		printDashboard(&dash)
		return nil
	}

	name := args[0]
	for _, c := range dash.Components {
		if c.Name == name {
			utils.PrintValue(c)
			return nil
		}
	}
	var detail models.ServiceDetail
	if err := root.GetJSON(ctx, "/services/"+url.PathEscape(name), nil, &detail); err != nil {
		return fmt.Errorf("未找到名为 '%s' 的组件或服务: %v", name, err)
	}
	utils.PrintValue(detail)
	return nil
}

func printDashboard(dash *view.Dashboard) {
	if strings.ToLower(utils.OutputFormat) != "table" {
		utils.PrintValue(dash)
		return
	}
	fmt.Printf("Pipeline Health: %s %s\n", dash.Health.Icon(), dash.Health)
	for _, c := range dash.Cards {
		fmt.Printf("  %-18s %s (%s)\n", c.Title+":", c.Value, c.Caption)
	}
	stream := "connected"
	if !dash.Stream.Connected {
		stream = "disconnected"
		if dash.Stream.Error != "" {
			stream += ": " + dash.Stream.Error
		}
	}
	fmt.Printf("  %-18s %s\n\n", "Event Stream:", stream)

	var dataList []*orderedmap.OrderedMap
	for _, c := range dash.Components {
		row := orderedmap.New()
		row.Set("name", c.Name)
		row.Set("label", c.Label)
		row.Set("status", c.Badge)
		row.Set("checkedAt", c.CheckedAt)
		row.Set("error", c.Error)
		dataList = append(dataList, row)
	}
	utils.PrintFormat(dataList)
}

func init() {
	root.RootCmd.AddCommand(statusCmd)

	statusCmd.Example = `  imc-manager status
  imc-manager status textProc
  imc-manager status textproc -o json`
}
