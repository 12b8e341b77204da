package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

func newWeeksCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "weeks",
		Aliases: []string{"ls"},
		Short:   "List the weeks in the manifest",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services(cmd)
			if err != nil {
				return err
			}
			if _, err := svc.Catalog.LoadCatalog(cmd.Context()); err != nil {
				return err
			}

			items := svc.Catalog.Catalog()
			if len(items) == 0 {
				fmt.Fprintln(opts.out, "No weeks available.")
				return nil
			}
			latest, ok := svc.Catalog.Latest()
			return writeCatalog(opts.out, items, latest, ok)
		},
	}
}

func newLatestCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services(cmd)
			if err != nil {
				return err
			}
			if _, err := svc.Catalog.LoadCatalog(cmd.Context()); err != nil {
				return err
			}

			latest, ok := svc.Catalog.Latest()
			if !ok {
				return fmt.Errorf("%w: week catalog is empty", usecase.ErrNoData)
			}
			return writeDescriptor(opts.out, latest)
		},
	}
}

func newWeekCommand(opts *options) *cobra.Command {
	var (
		sortField  string
		descending bool
	)

	cmd := &cobra.Command{
		Use:   "week <id>",
		Short: "Print one week's player rows",
		Long:  "Print one week's player rows. The id matches the manifest week label or file name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services(cmd)
			if err != nil {
				return err
			}

			_, rows, err := svc.Weeks.LoadWeekByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !playerrow.SortableBy(rows, sortField) {
				return fmt.Errorf("%w: unknown sort field %q", usecase.ErrInvalidInput, sortField)
			}
			if len(rows) == 0 {
				fmt.Fprintln(opts.out, "No players recorded for this week.")
				return nil
			}
			return writeRows(opts.out, playerrow.Sort(rows, sortField, descending))
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", playerrow.SortScore, "Sort by score, chests, name or a category column")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	return cmd
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <id>",
		Short: "Print aggregate statistics for one week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services(cmd)
			if err != nil {
				return err
			}

			info, rows, err := svc.Weeks.LoadWeekByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			stats := usecase.ComputeWeekStats(cmd.Context(), rows, info)
			return writeSummary(opts.out, stats.Summary)
		},
	}
}
