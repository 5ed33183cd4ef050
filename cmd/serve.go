package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/app"
	"github.com/spooky-finn/okx-depth-bridge/config"
	"github.com/spooky-finn/okx-depth-bridge/infrastructure/logger"
)

var envFiles []string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream the order book and serve it",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "env file to load before reading the environment (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator, err := app.NewCoordinator(cfg, log)
	if err != nil {
		log.Error("failed to build coordinator", zap.Error(err))
		return err
	}

	if err := coordinator.Run(ctx); err != nil {
		log.Error("exited with error", zap.Error(err))
		return err
	}
	return nil
}
