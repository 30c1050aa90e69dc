package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tosachii/ryosa/pkg/log"
	"github.com/tosachii/ryosa/pkg/srv"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the companion",
	Long:  `Connects the enabled listeners (Twitch, Discord, web API) and runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting ryosa")

		services := NewServices(ctx)

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("ryosa has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
