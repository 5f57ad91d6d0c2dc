package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/export"
	"github.com/xeb/voxcatalog/internal/series"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the grouped catalog to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				assignment, err := series.LoadAssignment(env.cfg.SeriesPath(), env.logger)
				if err != nil {
					return err
				}
				path := outputFlag
				if path == "" {
					path = env.cfg.ExportPath()
				}
				summary, err := export.WriteFile(path, env.store, assignment)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Exported %d episodes to %s (%d series, %d independent)\n",
					summary.Rows, path, summary.SeriesCount, summary.Independent)
				if summary.MissingDate > 0 {
					fmt.Fprintf(out, "Warning: %d exported episodes are missing dates\n", summary.MissingDate)
				}
				if summary.MissingURL > 0 {
					fmt.Fprintf(out, "Warning: %d exported episodes are missing URLs\n", summary.MissingURL)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "CSV output path (defaults to the data dir)")
	return cmd
}
