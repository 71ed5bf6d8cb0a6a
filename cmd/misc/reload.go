package misc

import (
	"context"
	"fmt"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload server configuration",
	Long:  `Reload server configuration by calling the reload API of the running imc-manager server`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := reloadServerConfig(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * Reload server configuration through the local server
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {error} Returns error if the server is unreachable or the reload fails
 * @description
 * - Calls POST /imc/api/v1/reload
 * - Backend, polling and service settings apply at once; the server lists the sections that need a restart
 */
func reloadServerConfig(ctx context.Context) error {
	var resp models.ReloadResponse
	if err := root.PostJSON(ctx, "/reload", &resp); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	fmt.Println("Successfully reloaded server configuration")
	if len(resp.RestartRequired) > 0 {
		fmt.Printf("Restart the server to apply: %s\n", strings.Join(resp.RestartRequired, ", "))
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(reloadCmd)
}
