/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errIssueFound makes "enod check" exit non-zero when the file is not clean
var errIssueFound = errors.New("database check failed")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <db>",
		Short: "Check a database for inconsistencies",
		Long: `Scan a database and report the first inconsistency found: an unreadable
header, an invalid origin date, an unreadable or out-of-order record, or data
beyond the last counted record. Exits non-zero when an issue is found.

Run "enod repair" to fix out-of-order records and count mismatches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, release, err := a.attachDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			issue, err := db.CheckFile()
			if err != nil {
				return fmt.Errorf("failed to check database: %w", err)
			}

			if issue.IsNone() {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Issue: %s\n", issue)
			if issue.Repairable() {
				fmt.Fprintln(cmd.OutOrStdout(), "Run 'enod repair' to fix it.")
			}
			return fmt.Errorf("%w: %s", errIssueFound, issue)
		},
	}
}
