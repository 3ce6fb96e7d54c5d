package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/aihub-gateway/internal/cache"
	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/subscription"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/usage"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage/postgresql"
)

func newUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Print usage and subscription status of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := postgresql.New(cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			var store usage.Store = db
			if cfg.UsageBackend == config.UsageBackendRedis {
				c, err := cache.InitServer(ctx, cfg.RedisConnection)
				if err != nil {
					return err
				}
				defer c.Close()
				store = c
			}

			ledger := usage.NewLedger(store, slog.New(slog.DiscardHandler))
			status, err := ledger.Status(ctx, args[0], subscription.NewResolver(db))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:       %s\n", args[0])
			fmt.Fprintf(out, "count:      %d\n", status.Count)
			fmt.Fprintf(out, "limit:      %d\n", status.Limit)
			fmt.Fprintf(out, "remaining:  %d\n", status.Remaining)
			fmt.Fprintf(out, "subscribed: %t\n", status.Subscribed)
			return nil
		},
	}
}
