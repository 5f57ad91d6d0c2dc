package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/transcribe"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe downloaded audio with the transcription provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				client, err := newTranscribeClient(env)
				if err != nil {
					return err
				}
				summary, err := env.runner().Run(env.ctx, transcribe.Stage(client))
				if err != nil {
					return err
				}
				printStageSummaries(cmd.OutOrStdout(), []pipeline.Summary{summary})
				return nil
			})
		},
	}
}

func newTranscribeClient(env *environment) (*transcribe.Client, error) {
	key, err := env.cfg.TranscriberAPIKey()
	if err != nil {
		return nil, err
	}
	return transcribe.NewClient(transcribe.Config{
		APIKey:         key,
		BaseURL:        env.cfg.Transcriber.BaseURL,
		Language:       env.cfg.Transcriber.Language,
		PollInterval:   time.Duration(env.cfg.Transcriber.PollInterval) * time.Second,
		TimeoutSeconds: env.cfg.Transcriber.RequestTimeout,
	}), nil
}
