/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/enod/pkg/codec"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		offset uint32
		at     string
	)

	cmd := &cobra.Command{
		Use:   "append <db> <value>",
		Short: "Append a record",
		Long: `Append one record to a database. The time is given either as an offset in
seconds from the origin date (--offset) or as an absolute time (--at).

Records are not required to be in time order; "enod check" reports
out-of-order records and "enod repair" sorts them.

Examples:
  enod append ./temps.db 21 --offset 3600
  enod append temps 21 --at 2024-01-01T01:00:00Z`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("value must be an integer between 0 and 255: %s", args[1])
			}

			offsetSet := cmd.Flags().Changed("offset")
			if offsetSet == (at != "") {
				return fmt.Errorf("exactly one of --offset and --at is required")
			}

			db, release, err := a.openDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			record := codec.RecordInfo{TimeOffset: offset, Value: uint8(value)}
			if at != "" {
				t, err := parseTime(at)
				if err != nil {
					return err
				}
				record, err = db.AppendAt(t, uint8(value))
				if err != nil {
					return fmt.Errorf("failed to append record: %w", err)
				}
			} else if err := db.AppendRecord(record); err != nil {
				return fmt.Errorf("failed to append record: %w", err)
			}

			header := db.Header()
			fmt.Fprintf(cmd.OutOrStdout(), "Appended record %d: offset=%d value=%d\n",
				header.RecordsNumber-1, record.TimeOffset, record.Value)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&offset, "offset", 0, "Seconds since the origin date")
	cmd.Flags().StringVar(&at, "at", "", "Absolute time (RFC 3339 or \"YYYY-MM-DD hh:mm:ss\" UTC)")
	return cmd
}
