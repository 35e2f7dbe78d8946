/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSeriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Manage series registered in the data directory",
	}

	cmd.AddCommand(
		newSeriesCreateCmd(a),
		newSeriesListCmd(a),
		newSeriesRemoveCmd(a),
	)
	return cmd
}

func newSeriesCreateCmd(a *app) *cobra.Command {
	var origin string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new series with an empty database",
		Long: `Register a new series and create its database file in the data directory.

Examples:
  enod series create temps
  enod series create temps --origin 2024-01-01T00:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var at *time.Time
			if origin != "" {
				t, err := parseTime(origin)
				if err != nil {
					return err
				}
				at = &t
			}

			manager, err := a.openManager()
			if err != nil {
				return err
			}

			series, _, err := manager.Create(args[0], at)
			if err != nil {
				return fmt.Errorf("failed to create series: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created series %s (%s)\n", series.Name, series.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "Origin date (RFC 3339 or \"YYYY-MM-DD hh:mm:ss\" UTC)")
	return cmd
}

func newSeriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered series",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.openManager()
			if err != nil {
				return err
			}

			all, err := manager.List()
			if err != nil {
				return fmt.Errorf("failed to list series: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID\tORIGIN\tPATH")
			for _, series := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", series.Name, series.ID, series.Origin.Format(timeLayout), series.Path)
			}
			return tw.Flush()
		},
	}
}

func newSeriesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name|id>",
		Aliases: []string{"remove"},
		Short:   "Unregister a series and delete its database file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.openManager()
			if err != nil {
				return err
			}

			if err := manager.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to remove series: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed series %s\n", args[0])
			return nil
		},
	}
}
