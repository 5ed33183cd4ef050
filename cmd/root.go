package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "okx-depth-bridge",
	Short: "OKX order book bridge",
	Long: `okx-depth-bridge keeps a live copy of an OKX order book and serves it
to downstream consumers over websocket, HTTP and gRPC.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
