package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kinolog/internal/prompt"
	"kinolog/internal/scheduler"
)

func newUpdateCommand() *cobra.Command {
	var watch bool
	var schedule string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh stale catalog data and re-render notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				// Nobody is at the terminal in watch mode, so candidate
				// confirmations are declined and retried interactively later.
				a, err := newApp("update", prompt.AutoDecline{})
				if err != nil {
					return err
				}

				sched := scheduler.NewScheduler(a.pipeline, a.logger)
				if err := sched.Start(schedule); err != nil {
					return err
				}
				defer sched.Stop()

				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
				sig := <-sigChan
				a.logger.WithField("signal", sig).Info("Received shutdown signal")
				return nil
			}

			a, err := newApp("update", prompt.NewConsole())
			if err != nil {
				return err
			}

			_, err = a.pipeline.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running the pipeline on a schedule")
	cmd.Flags().StringVar(&schedule, "schedule", "0 */6 * * *", "Cron schedule for watch mode")

	return cmd
}

func newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Re-render notes from local data without touching the catalog API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("render", prompt.AutoDecline{})
			if err != nil {
				return err
			}

			_, err = a.render.RenderAll()
			return err
		},
	}
}

func newExceptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exceptions [value...]",
		Short: "Exclude titles or catalog ids from new-content notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := prompt.NewConsole()
			a, err := newApp("exceptions", prompter)
			if err != nil {
				return err
			}

			values := args
			if len(values) == 0 {
				for {
					value := prompter.Input("Title or id to exclude (empty to save)")
					if value == "" {
						break
					}
					values = append(values, value)
				}
			}

			if a.docs.Exceptions.Add(values...) {
				return a.docs.SaveExceptions()
			}

			a.logger.Info("Exception list unchanged")
			return nil
		},
	}

	return cmd
}
