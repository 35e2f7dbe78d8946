/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHeaderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "header <db>",
		Short: "Print the database header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, release, err := a.openDB(args[0])
			if err != nil {
				return err
			}
			defer release()

			header, err := db.ReadHeader()
			if err != nil {
				return fmt.Errorf("failed to read header: %w", err)
			}
			size, err := db.Size()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:    %s\n", db.Path())
			fmt.Fprintf(out, "Origin:  %s\n", header.OriginDate)
			fmt.Fprintf(out, "Records: %d\n", header.RecordsNumber)
			fmt.Fprintf(out, "Size:    %d bytes\n", size)
			return nil
		},
	}
}
