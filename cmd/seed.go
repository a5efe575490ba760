package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eventory/api/internal/repository"
	"eventory/api/internal/service"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert missing categories and cities from a YAML catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = opts.cfg.Seed.CatalogFile
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()

			seed, err := service.ParseCatalogSeed(f)
			if err != nil {
				return err
			}

			db, err := opts.openDB()
			if err != nil {
				return err
			}
			catalog := service.NewCatalogService(repository.NewPGStore(db), opts.logger)
			res, err := catalog.Seed(cmd.Context(), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories created: %d, cities created: %d\n",
				res.CategoriesCreated, res.CitiesCreated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (defaults to seed.catalog_file)")
	return cmd
}
