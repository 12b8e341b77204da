package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/chefscore/internal/app"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

func loadHistory(cmd *cobra.Command, opts *options) (*app.Services, error) {
	svc, err := opts.services(cmd)
	if err != nil {
		return nil, err
	}

	if isTerminal(opts.errOut) {
		progress := newWeekProgress(opts.errOut)
		svc.History.OnProgress(progress.report)
		defer progress.finish()
	}

	result, err := svc.History.LoadHistorical(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(opts.errOut, "skipped week %s (%s): %s\n", failure.WeekID, failure.File, failure.Reason)
	}
	return svc, nil
}

func newHistoryCommand(opts *options) *cobra.Command {
	var order string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Load every week and print per-week aggregates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order = strings.ToLower(strings.TrimSpace(order))
			if order != "asc" && order != "desc" {
				return fmt.Errorf("%w: --order must be asc or desc", usecase.ErrInvalidInput)
			}

			svc, err := loadHistory(cmd, opts)
			if errors.Is(err, usecase.ErrNoData) {
				fmt.Fprintln(opts.out, "No weeks available.")
				return nil
			}
			if err != nil {
				return err
			}

			weeks, err := svc.History.Ordered(order == "desc")
			if err != nil {
				return err
			}
			return writeHistory(opts.out, weeks)
		},
	}
	cmd.Flags().StringVar(&order, "order", "asc", "Week order: asc (oldest first) or desc")
	return cmd
}

func newPlayerCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "player <name>",
		Short: "Print one player's score across every week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadHistory(cmd, opts)
			if err != nil {
				return err
			}

			series, err := svc.History.PlayerSeries(args[0])
			if err != nil {
				return err
			}
			return writeSeries(opts.out, series)
		},
	}
}

func newTopCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank players by weeks present, then total score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > usecase.MaxTopPlayers {
				return fmt.Errorf("%w: --limit must be between 1 and %d", usecase.ErrInvalidInput, usecase.MaxTopPlayers)
			}

			svc, err := loadHistory(cmd, opts)
			if err != nil {
				return err
			}

			players, err := svc.History.TopPlayers(limit)
			if err != nil {
				return err
			}
			return writeTop(opts.out, players)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", usecase.DefaultTopPlayers, "Number of players to show")
	return cmd
}
