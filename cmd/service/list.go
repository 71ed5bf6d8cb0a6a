package service

import (
	"context"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出流水线服务",
	Long:  "列出配置的流水线服务及注册中心报告的状态",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listServices(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * List pipeline services
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {error} Returns error if the server cannot be reached
 * @description
 * - Services missing from the backend overview are shown as UNKNOWN
 */
func listServices(ctx context.Context) error {
	var details []models.ServiceDetail
	if err := root.GetJSON(ctx, "/services", nil, &details); err != nil {
		return err
	}

	var dataList []*orderedmap.OrderedMap
	for _, d := range details {
		row := orderedmap.New()
		row.Set("name", d.Name)
		row.Set("displayName", d.DisplayName)
		row.Set("status", string(d.Status))
		row.Set("lastCheck", string(d.LastCheck))
		row.Set("resettable", d.Resettable)
		dataList = append(dataList, row)
	}
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	serviceCmd.AddCommand(listCmd)
}
