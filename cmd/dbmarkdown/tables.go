package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dbmarkdown/internal/db"
	"dbmarkdown/internal/prompt"
)

func newTablesCmd(a *app) *cobra.Command {
	var (
		columns bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := a.database()
			if err != nil {
				return err
			}
			tables, err := db.Introspect(cmd.Context(), spec, timeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range tables {
				fmt.Fprintf(out, "%s (%d columns)\n", t.QualifiedName(), len(t.Columns))
				if columns {
					for _, c := range t.Columns {
						fmt.Fprintln(out, prompt.ColumnLine(c))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&columns, "columns", false, "also list every column")
	cmd.Flags().DurationVar(&timeout, "timeout", db.DefaultTimeout, "connect timeout")
	return cmd
}

func newTestConnectionCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check that the database is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := a.database()
			if err != nil {
				return err
			}
			if !db.TestConnection(cmd.Context(), spec, timeout) {
				return fmt.Errorf("cannot connect to %s database", spec.Type)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "connection ok")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", db.DefaultTimeout, "connect timeout")
	return cmd
}
