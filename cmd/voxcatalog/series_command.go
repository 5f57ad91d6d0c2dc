package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/series"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Group transcribed episodes into series via the classification provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				assignment, err := series.LoadAssignment(env.cfg.SeriesPath(), env.logger)
				if err != nil {
					return err
				}
				client, err := newSeriesClient(env)
				if err != nil {
					return err
				}
				classifier := series.NewClassifier(client, env.store, assignment, env.logger, series.Options{
					MaxRetries:   env.cfg.Pipeline.MaxRetries,
					RetryBackoff: time.Duration(env.cfg.Pipeline.RetryBackoff) * time.Second,
					ExcerptBytes: env.cfg.Classifier.ExcerptBytes,
				})
				summary, err := classifier.Run(env.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Candidates", "Classified", "Grouped", "Ungrouped", "Skipped", "Failed"},
					[][]string{{
						fmt.Sprintf("%d", summary.Candidates),
						fmt.Sprintf("%d", summary.Classified),
						fmt.Sprintf("%d", summary.Grouped),
						fmt.Sprintf("%d", summary.Ungrouped),
						fmt.Sprintf("%d", summary.Skipped),
						fmt.Sprintf("%d", summary.Failed),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newSeriesClient(env *environment) (*series.Client, error) {
	key, err := env.cfg.ClassifierAPIKey()
	if err != nil {
		return nil, err
	}
	return series.NewClient(series.Config{
		APIKey:         key,
		BaseURL:        env.cfg.Classifier.BaseURL,
		Model:          env.cfg.Classifier.Model,
		TimeoutSeconds: env.cfg.Classifier.TimeoutSeconds,
	}), nil
}
