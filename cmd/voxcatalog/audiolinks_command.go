package main

import (
	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/assets"
	"github.com/xeb/voxcatalog/internal/pipeline"
)

func newAudioLinksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audiolinks",
		Short: "Extract the audio asset URL from each episode page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				summary, err := env.runner().Run(env.ctx, assets.AudioLinkStage(env.pageClient()))
				if err != nil {
					return err
				}
				printStageSummaries(cmd.OutOrStdout(), []pipeline.Summary{summary})
				return nil
			})
		},
	}
}
