/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/enod/pkg/codec"
)

const (
	timeLayout   = time.DateTime
	dumpPageSize = 4096
)

type dumpRecord struct {
	Index      uint64    `json:"index"`
	Time       time.Time `json:"time"`
	TimeOffset uint32    `json:"time_offset"`
	Value      uint8     `json:"value"`
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		from   uint64
		limit  uint64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "dump <db>",
		Short: "Print records",
		Long: `Print records in file order, starting at --from. A --limit of 0 prints
every remaining record.

Examples:
  enod dump ./temps.db
  enod dump temps --from 100 --limit 10 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, release, err := a.openDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			origin := db.Header().OriginDate
			out := cmd.OutOrStdout()

			var rows []dumpRecord
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if !asJSON {
				fmt.Fprintln(tw, "INDEX\tTIME\tOFFSET\tVALUE")
			}

			next := from
			remaining := limit
			for {
				page := uint64(dumpPageSize)
				if limit != 0 && remaining < page {
					page = remaining
				}
				if page == 0 {
					break
				}

				records, err := db.Records(next, page)
				if err != nil {
					return fmt.Errorf("failed to read records: %w", err)
				}
				for i, record := range records {
					row := newDumpRecord(origin, next+uint64(i), record)
					if asJSON {
						rows = append(rows, row)
						continue
					}
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", row.Index, row.Time.Format(timeLayout), row.TimeOffset, row.Value)
				}

				next += uint64(len(records))
				remaining -= min(remaining, uint64(len(records)))
				if uint64(len(records)) < page {
					break
				}
			}

			if asJSON {
				if rows == nil {
					rows = []dumpRecord{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "First record index")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "Maximum number of records (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func newDumpRecord(origin codec.Timestamp, index uint64, record codec.RecordInfo) dumpRecord {
	return dumpRecord{
		Index:      index,
		Time:       origin.At(record.TimeOffset),
		TimeOffset: record.TimeOffset,
		Value:      record.Value,
	}
}
