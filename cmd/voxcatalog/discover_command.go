package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/discovery"
	"github.com/xeb/voxcatalog/internal/pipeline"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Scrape the paginated listing and backfill publication dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				client := env.pageClient()
				scanner := discovery.NewScanner(client, env.store, env.logger, env.cfg.Source.BaseURL, env.cfg.Source.MaxPages)
				result, err := scanner.Scan(env.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d pages (%d skipped), %d new episodes\n",
					result.PagesFetched, result.PagesSkipped, result.EntriesAdded)

				summary, err := env.runner().Run(env.ctx, discovery.DateStage(client))
				if err != nil {
					return err
				}
				printStageSummaries(cmd.OutOrStdout(), []pipeline.Summary{summary})
				return nil
			})
		},
	}
}
