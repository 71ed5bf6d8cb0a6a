package service

import (
	"context"
	"fmt"
	"net/url"

	"imc-manager/cmd/root"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [service name]",
	Short: "Start service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(context.Background(), args[0], "start"); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * Send start, stop or toggle for one service
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @param {string} serviceName - Service name as registered in the backend (hdfswatcher, textproc, embedproc)
 * @param {string} action - start, stop or toggle
 * @returns {error} Returns error if the server or the backend rejects the command
 * @description
 * - The server answers 404 for unknown services and forwards the backend status for failures
 * - On success the server refreshes the overview after a short delay
 * @example
 * err := serviceAction(context.Background(), "hdfswatcher", "start")
 */
func serviceAction(ctx context.Context, serviceName, action string) error {
	path := fmt.Sprintf("/services/%s/%s", url.PathEscape(serviceName), action)
	return RunCommand(ctx, path)
}

func init() {
	serviceCmd.AddCommand(startCmd)
}
