package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/aihub-gateway/internal/migrations"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage/postgresql"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			db, err := postgresql.New(cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
				return err
			}
			version, dirty, err := migrations.Version(db.DB, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}
