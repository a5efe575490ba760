package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/config"
)

// rootOptions holds global flags and what PersistentPreRunE loads from them.
type rootOptions struct {
	ConfigPath string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "eventory",
		Short:         "Clubs and events membership service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to the config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func (o *rootOptions) openDB() (*gorm.DB, error) {
	db, err := config.NewPostgresDB(o.cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	o.logger.Info("connected to postgres",
		zap.String("host", o.cfg.Database.Postgres.Host),
		zap.String("db", o.cfg.Database.Postgres.DB),
	)
	return db, nil
}
