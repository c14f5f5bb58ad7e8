package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"kinolog/internal/prompt"
	"kinolog/internal/utils"
)

func newMovieCommand() *cobra.Command {
	var title, date string
	var rating int

	cmd := &cobra.Command{
		Use:   "movie",
		Short: "Log a watched movie",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := prompt.NewConsole()
			a, err := newApp("movie", prompter)
			if err != nil {
				return err
			}

			title, watchDate, watchRating, err := askViewing(prompter, title, date, rating)
			if err != nil {
				return err
			}

			if err := a.merge.RecordMovie(title, watchDate, watchRating); err != nil {
				return fmt.Errorf("failed to record movie: %w", err)
			}

			_, err = a.pipeline.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Movie title")
	cmd.Flags().StringVar(&date, "date", "", "Watch date (D, M D or Y M D)")
	cmd.Flags().IntVar(&rating, "rating", 0, "Personal rating")

	return cmd
}

func newSeriesCommand() *cobra.Command {
	var title, date string
	var rating, season int

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Log a rated series season",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := prompt.NewConsole()
			a, err := newApp("series", prompter)
			if err != nil {
				return err
			}

			title, watchDate, watchRating, err := askViewing(prompter, title, date, rating)
			if err != nil {
				return err
			}

			if season <= 0 {
				season, err = askInt(prompter, "Season number")
				if err != nil {
					return err
				}
			}

			if err := a.merge.RecordSeriesSeason(title, watchDate, watchRating, season); err != nil {
				return fmt.Errorf("failed to record series season: %w", err)
			}

			_, err = a.pipeline.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Series title")
	cmd.Flags().StringVar(&date, "date", "", "Watch date (D, M D or Y M D)")
	cmd.Flags().IntVar(&rating, "rating", 0, "Personal rating for the season")
	cmd.Flags().IntVar(&season, "season", 0, "Season number")

	return cmd
}

func newEpisodeCommand() *cobra.Command {
	var title string
	var season, episode, total int

	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Record episode progress for a series in watching",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := prompt.NewConsole()
			a, err := newApp("episode", prompter)
			if err != nil {
				return err
			}

			if title == "" {
				title = prompter.Input("Series title")
			}
			if title == "" {
				return fmt.Errorf("a title is required")
			}
			if season <= 0 {
				season, err = askInt(prompter, "Current season")
				if err != nil {
					return err
				}
			}
			if episode <= 0 {
				episode, err = askInt(prompter, "Current episode")
				if err != nil {
					return err
				}
			}

			coldStart, err := a.merge.RecordEpisodeProgress(title, season, episode, total)
			if err != nil {
				return fmt.Errorf("failed to record episode progress: %w", err)
			}
			if coldStart {
				a.logger.WithField("title", title).Info("New title, running a full regeneration pass")
			}

			_, err = a.pipeline.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Series title")
	cmd.Flags().IntVar(&season, "season", 0, "Current season")
	cmd.Flags().IntVar(&episode, "episode", 0, "Current episode")
	cmd.Flags().IntVar(&total, "total", 0, "Total episodes in the season")

	return cmd
}

// askViewing collects the title, date and rating shared by the movie and
// series commands, prompting for anything the flags left empty.
func askViewing(prompter prompt.Prompter, title, date string, rating int) (string, time.Time, int, error) {
	if title == "" {
		title = prompter.Input("Title")
	}
	if title == "" {
		return "", time.Time{}, 0, fmt.Errorf("a title is required")
	}

	watchDate, err := askDate(prompter, date)
	if err != nil {
		return "", time.Time{}, 0, err
	}

	if rating <= 0 {
		rating, err = askInt(prompter, "Rating")
		if err != nil {
			return "", time.Time{}, 0, err
		}
	}

	return title, watchDate, rating, nil
}

// askDate parses the given date or prompts for one, retrying a few times on
// malformed input.
func askDate(prompter prompt.Prompter, date string) (time.Time, error) {
	now := time.Now()

	if date != "" {
		return utils.ParseUserDate(now, date)
	}

	for attempt := 0; attempt < 3; attempt++ {
		answer := prompter.Input("Date (D, M D or Y M D)")
		parsed, err := utils.ParseUserDate(now, answer)
		if err == nil {
			return parsed, nil
		}
		fmt.Println(err)
	}

	return time.Time{}, fmt.Errorf("no valid date given")
}

// askInt prompts for a positive integer, retrying a few times.
func askInt(prompter prompt.Prompter, question string) (int, error) {
	for attempt := 0; attempt < 3; attempt++ {
		answer := prompter.Input(question)
		value, err := strconv.Atoi(answer)
		if err == nil && value > 0 {
			return value, nil
		}
	}

	return 0, fmt.Errorf("no valid value given for %q", question)
}
