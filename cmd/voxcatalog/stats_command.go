package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/report"
	"github.com/xeb/voxcatalog/internal/series"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog and write stats.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				assignment, err := series.LoadAssignment(env.cfg.SeriesPath(), env.logger)
				if err != nil {
					return err
				}
				stats := report.Collect(env.store, assignment, report.Options{
					RatePerHour: env.cfg.Costs.TranscriptionRatePerHour,
				})
				if err := stats.WriteJSON(env.cfg.StatsPath()); err != nil {
					return err
				}
				printReportTables(cmd.OutOrStdout(), stats.Tables())
				fmt.Fprintf(cmd.OutOrStdout(), "Detailed statistics written to %s\n", env.cfg.StatsPath())
				return nil
			})
		},
	}
}
