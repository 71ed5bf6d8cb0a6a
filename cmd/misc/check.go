package misc

import (
	"context"
	"fmt"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every data source of the running server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheck(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * Run the server side system check
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {error} Returns error when the server is unreachable or the overall status is "error"
 */
func runCheck(ctx context.Context) error {
	var result models.CheckResponse
	if err := root.PostJSON(ctx, "/check", &result); err != nil {
		return err
	}
	if strings.ToLower(utils.OutputFormat) != "table" {
		utils.PrintValue(result)
	} else {
		dataList, err := utils.ToOrderedMaps(result.Items)
		if err != nil {
			return err
		}
		utils.PrintFormat(dataList)
		fmt.Printf("Overall: %s (%d/%d passed)\n", result.OverallStatus, result.PassedChecks, result.TotalChecks)
	}
	if result.OverallStatus == "error" {
		return fmt.Errorf("%d of %d checks failed", result.FailedChecks, result.TotalChecks)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(checkCmd)
}
