package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "breeze",
	Short: "Breeze - chat-agent gateway",
	Long: `Breeze is a stateful chat-agent gateway. It accepts user text over a
persistent WebSocket connection, dispatches tool invocations (forecast lookup,
page screenshot, page-to-PDF render), streams model responses back
incrementally, and persists every conversation so it survives reconnects.

Run 'breeze serve' to start the gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
