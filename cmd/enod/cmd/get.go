/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <db> <index>",
		Short: "Print one record",
		Long: `Print the record at index, with its absolute time.

Example:
  enod get ./temps.db 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid index %q", args[1])
			}

			db, release, err := a.openDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			header, err := db.ReadHeader()
			if err != nil {
				return err
			}
			if index >= header.RecordsNumber {
				return fmt.Errorf("index %d out of range: database holds %d records", index, header.RecordsNumber)
			}

			record, err := db.ReadRecord(index)
			if err != nil {
				return fmt.Errorf("failed to read record: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\t%d\n", index,
				header.OriginDate.At(record.TimeOffset).Format(timeLayout), record.TimeOffset, record.Value)
			return nil
		},
	}
}
