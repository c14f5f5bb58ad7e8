package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kinolog/internal/config"
	"kinolog/internal/controllers"
	"kinolog/internal/prompt"
	"kinolog/internal/services/kinopoisk"
	"kinolog/internal/utils"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kinolog",
		Short:         "Personal movie and series log with catalog-backed notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMovieCommand())
	rootCmd.AddCommand(newSeriesCommand())
	rootCmd.AddCommand(newEpisodeCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newExceptionsCommand())

	return rootCmd
}

// app wires the configuration, documents and controllers for one command
// invocation.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	docs     *controllers.Documents
	prompter prompt.Prompter
	merge    *controllers.MergeController
	render   *controllers.RenderController
	pipeline *controllers.Pipeline
}

// newApp assembles the full dependency graph. The command name keys the
// per-run log file subfolder.
func newApp(command string, prompter prompt.Prompter) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFolder, command)
	docs := controllers.LoadDocuments(cfg, logger)

	client, err := kinopoisk.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kinopoisk client: %w", err)
	}

	threshold := time.Duration(cfg.UpdateThresholdDays) * 24 * time.Hour
	delay := time.Duration(cfg.RequestDelaySeconds) * time.Second

	resolver := controllers.NewResolverController(docs, client, prompter, threshold, logger)
	refresh := controllers.NewRefreshController(docs, client, resolver, threshold, delay, logger)
	render := controllers.NewRenderController(docs, cfg, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		docs:     docs,
		prompter: prompter,
		merge:    controllers.NewMergeController(docs, prompter, logger),
		render:   render,
		pipeline: controllers.NewPipeline(refresh, render, logger),
	}, nil
}
