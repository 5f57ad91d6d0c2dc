package main

import (
	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/assets"
	"github.com/xeb/voxcatalog/internal/pipeline"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download audio assets for cataloged episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				stage := assets.DownloadStage(env.downloadClient(), env.cfg.Paths.AssetDir)
				summary, err := env.runner().Run(env.ctx, stage)
				if err != nil {
					return err
				}
				printStageSummaries(cmd.OutOrStdout(), []pipeline.Summary{summary})
				return nil
			})
		},
	}
}
