package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cdrecon/internal/jobs"
	"cdrecon/internal/logging"
	"cdrecon/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation service with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return err
			}

			daemon, err := server.New(cfg, store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer daemon.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := daemon.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()
			logger.Info("shutdown signal received", logging.String("signal", "interrupt"))
			daemon.Stop()
			return nil
		},
	}
}
