package main

import (
	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/media"
	"github.com/xeb/voxcatalog/internal/pipeline"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe downloaded assets for duration and size metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				summary, err := env.runner().Run(env.ctx, media.ProbeStage(env.cfg.FFprobeBinary()))
				if err != nil {
					return err
				}
				printStageSummaries(cmd.OutOrStdout(), []pipeline.Summary{summary})
				return nil
			})
		},
	}
}
