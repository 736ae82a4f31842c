package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dbmarkdown/internal/db"
	"dbmarkdown/internal/docgen"
	"dbmarkdown/internal/introspect"
	"dbmarkdown/internal/llm"
	"dbmarkdown/internal/logger"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		names   []string
		all     bool
		outPath string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the Markdown document for the selected tables",
		Example: `  dbmarkdown generate --type sqlite --file shop.db --all --out shop.md
  dbmarkdown generate --tables dbo.Orders,dbo.Customers`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.API.Validate(); err != nil {
				return err
			}
			if !all && len(names) == 0 {
				return fmt.Errorf("select tables with --tables or --all")
			}
			spec, err := a.database()
			if err != nil {
				return err
			}

			tables, err := db.Introspect(cmd.Context(), spec, timeout)
			if err != nil {
				return err
			}
			if all {
				introspect.SelectAll(tables)
			} else if unknown := introspect.SelectByName(tables, names); len(unknown) > 0 {
				return fmt.Errorf("unknown tables: %s", strings.Join(unknown, ", "))
			}

			progress := newSpinnerProgress(cmd.ErrOrStderr())
			client := llm.NewClient(a.cfg.API, llm.Options{})
			doc, err := docgen.NewAssembler(client).Generate(cmd.Context(), tables, progress)
			progress.Stop()
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
				return err
			}
			logger.Info("wrote %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&names, "tables", "t", nil, "tables to document, by name or schema.name")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "document every table")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", db.DefaultTimeout, "connect timeout")
	return cmd
}
