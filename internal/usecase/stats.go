package usecase

import (
	"context"

	"github.com/sourcegraph/conc/panics"

	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

var computeStats = weekstats.Compute

// ComputeWeekStats never fails: an internal panic yields the all-zero stats for info.
func ComputeWeekStats(ctx context.Context, rows []playerrow.Row, info week.Descriptor) weekstats.WeekStats {
	return computeWeekStatsWith(ctx, logging.Default(), rows, info)
}

func computeWeekStatsWith(ctx context.Context, logger *logging.Logger, rows []playerrow.Row, info week.Descriptor) weekstats.WeekStats {
	var (
		catcher panics.Catcher
		stats   weekstats.WeekStats
	)
	catcher.Try(func() {
		stats = computeStats(rows, info)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		logger.ErrorContext(ctx, "compute week stats panicked",
			"week", info.Week,
			"rows", len(rows),
			"error", recovered.AsError(),
		)
		return weekstats.Empty(info)
	}
	return stats
}
