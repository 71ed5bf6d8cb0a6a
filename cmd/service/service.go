package service

import (
	"context"
	"fmt"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service operations (list/start/stop/toggle)",
	Long:  `Service operations (list/start/stop/toggle), sent through the running imc-manager server`,
}

const serviceExample = `  # start the document watcher
  imc-manager service start hdfswatcher
  # stop the text processor
  imc-manager service stop textproc`

/**
 * Send a command to the local server and print its result
 * @param {context.Context} ctx - Request context
 * @param {string} path - Command path below /imc/api/v1
 * @returns {error} Server or backend error, including the upstream HTTP status
 * @description
 * - Table output prints the result message and any warnings
 * - json/yaml output prints the full models.CommandResult
 */
func RunCommand(ctx context.Context, path string) error {
	var result models.CommandResult
	if err := root.PostJSON(ctx, path, &result); err != nil {
		return err
	}
	PrintResult(&result)
	return nil
}

// PrintResult 输出命令结果
func PrintResult(result *models.CommandResult) {
	if strings.ToLower(utils.OutputFormat) != "table" {
		utils.PrintValue(result)
		return
	}
	msg := result.Message
	if msg == "" {
		msg = strings.TrimSpace(result.Command + " " + result.Service + " succeeded")
	}
	fmt.Println(msg)
	for _, r := range result.Results {
		fmt.Printf("  %s\n", r)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
