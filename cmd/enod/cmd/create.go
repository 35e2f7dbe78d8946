/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/enod/pkg/store"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		origin string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create an empty database file",
		Long: `Create an empty database file at path. The origin date defaults to now.

To create a database registered in the catalog, use "enod series create".

Examples:
  enod create ./temps.db
  enod create ./temps.db --origin "2024-01-01 00:00:00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			var at *time.Time
			if origin != "" {
				t, err := parseTime(origin)
				if err != nil {
					return err
				}
				at = &t
			}

			db, err := store.Create(path, at, store.WithLogger(a.log))
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (origin %s)\n", path, db.Header().OriginDate)
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "Origin date (RFC 3339 or \"YYYY-MM-DD hh:mm:ss\" UTC)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
