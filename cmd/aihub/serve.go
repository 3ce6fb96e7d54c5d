package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/aihub-gateway/internal/app/aihub"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := sl.NewLogger(cfg.Env, os.Stdout)
			logger.Info("starting aihub gateway", slog.String("env", cfg.Env))
			logger.Debug("debug messages are enabled")

			ctx := cmd.Context()
			app, err := aihub.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialize app", sl.Err(err))
				return err
			}

			if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("app stopped with error", sl.Err(err))
				return err
			}

			logger.Info("aihub gateway stopped gracefully")
			return nil
		},
	}
}
