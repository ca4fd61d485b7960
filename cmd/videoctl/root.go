package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/maauso/video-processing-service/internal/bootstrap"
	"github.com/maauso/video-processing-service/internal/config"
	"github.com/maauso/video-processing-service/internal/video"
)

// pipeline is the subset of *video.Service the commands drive.
type pipeline interface {
	SetupDirectories() error
	DownloadRawVideo(ctx context.Context, name string) error
	ConvertVideo(ctx context.Context, rawName, processedName string) error
	UploadProcessedVideo(ctx context.Context, name string) error
	DeleteRawVideo(ctx context.Context, name string) error
	DeleteProcessedVideo(ctx context.Context, name string) error
	Process(ctx context.Context, rawName string) (*video.Video, error)
}

type commandContext struct {
	jsonOutput bool

	// build creates the pipeline on first use; tests replace it.
	build func(ctx context.Context) (pipeline, error)

	once    sync.Once
	service pipeline
	err     error
}

func newCommandContext() *commandContext {
	return &commandContext{build: buildPipeline}
}

func (c *commandContext) pipeline(ctx context.Context) (pipeline, error) {
	c.once.Do(func() {
		c.service, c.err = c.build(ctx)
	})
	return c.service, c.err
}

func buildPipeline(ctx context.Context) (pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return deps.VideoService, nil
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "videoctl",
		Short:         "Run video processing stages",
		Long:          "videoctl runs each stage of the video pipeline on its own.\nConfiguration is read from the same environment variables as the server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newSetupCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))

	return rootCmd
}
