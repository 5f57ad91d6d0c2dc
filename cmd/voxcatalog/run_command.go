package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/assets"
	"github.com/xeb/voxcatalog/internal/discovery"
	"github.com/xeb/voxcatalog/internal/media"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/series"
	"github.com/xeb/voxcatalog/internal/transcribe"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every processing stage in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				pageClient := env.pageClient()

				scanner := discovery.NewScanner(pageClient, env.store, env.logger, env.cfg.Source.BaseURL, env.cfg.Source.MaxPages)
				result, err := scanner.Scan(env.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d pages (%d skipped), %d new episodes\n",
					result.PagesFetched, result.PagesSkipped, result.EntriesAdded)

				transcriber, err := newTranscribeClient(env)
				if err != nil {
					return err
				}
				stages := []pipeline.Stage{
					discovery.DateStage(pageClient),
					assets.AudioLinkStage(pageClient),
					assets.DownloadStage(env.downloadClient(), env.cfg.Paths.AssetDir),
					media.ProbeStage(env.cfg.FFprobeBinary()),
					transcribe.Stage(transcriber),
				}
				summaries, err := env.runner().RunAll(env.ctx, stages)
				if len(summaries) > 0 {
					printStageSummaries(cmd.OutOrStdout(), summaries)
				}
				if err != nil {
					return err
				}

				assignment, err := series.LoadAssignment(env.cfg.SeriesPath(), env.logger)
				if err != nil {
					return err
				}
				classifierClient, err := newSeriesClient(env)
				if err != nil {
					return err
				}
				classifier := series.NewClassifier(classifierClient, env.store, assignment, env.logger, series.Options{
					MaxRetries:   env.cfg.Pipeline.MaxRetries,
					RetryBackoff: time.Duration(env.cfg.Pipeline.RetryBackoff) * time.Second,
					ExcerptBytes: env.cfg.Classifier.ExcerptBytes,
				})
				summary, err := classifier.Run(env.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Series: %d classified (%d grouped, %d ungrouped), %d skipped, %d failed\n",
					summary.Classified, summary.Grouped, summary.Ungrouped, summary.Skipped, summary.Failed)
				return nil
			})
		},
	}
}
