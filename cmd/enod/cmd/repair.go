/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <db>",
		Short: "Fix repairable inconsistencies",
		Long: `Check a database and fix what can be fixed until it checks clean:
out-of-order records are sorted by time offset, and the record count is
reconciled with the records actually present.

A corrupted header or an invalid origin date cannot be repaired.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, release, err := a.attachDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			fixed, err := db.Repair()
			for _, issue := range fixed {
				fmt.Fprintf(cmd.OutOrStdout(), "Fixed: %s\n", issue)
			}
			if err != nil {
				return fmt.Errorf("failed to repair database: %w", err)
			}

			if len(fixed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to repair")
			}
			return nil
		},
	}
}
