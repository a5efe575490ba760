package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventory/api/internal/model"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			opts.logger.Info("database migration completed")
			return nil
		},
	}
}
