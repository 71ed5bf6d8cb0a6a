package service

import (
	"context"

	"imc-manager/cmd/root"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [service name]",
	Short: "Stop service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(context.Background(), args[0], "stop"); err != nil {
			root.Exit(err)
		}
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [service name]",
	Short: "Toggle service between started and stopped",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(context.Background(), args[0], "toggle"); err != nil {
			root.Exit(err)
		}
	},
}

func init() {
	serviceCmd.AddCommand(stopCmd)
	serviceCmd.AddCommand(toggleCmd)
}
