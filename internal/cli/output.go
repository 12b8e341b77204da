package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAverage(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func writeCatalog(w io.Writer, items []week.Descriptor, latest week.Descriptor, hasLatest bool) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "WEEK\tFILE\tSTART\tEND\tLATEST")
	for _, item := range items {
		mark := ""
		if hasLatest && item.File == latest.File {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Label(), item.File, orDash(item.StartDate), orDash(item.EndDate), mark)
	}
	return tw.Flush()
}

func writeDescriptor(w io.Writer, item week.Descriptor) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Week:\t%s\n", item.Label())
	fmt.Fprintf(tw, "File:\t%s\n", item.File)
	fmt.Fprintf(tw, "Start:\t%s\n", orDash(item.StartDate))
	fmt.Fprintf(tw, "End:\t%s\n", orDash(item.EndDate))
	return tw.Flush()
}

func categoryColumns(rows []playerrow.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Categories {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeRows(w io.Writer, rows []playerrow.Row) error {
	categories := categoryColumns(rows)

	tw := newTable(w)
	header := append([]string{"PLAYER", "SCORE", "CHESTS"}, categories...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := []string{row.Name, formatNumber(row.TotalScore), strconv.Itoa(row.ChestCount)}
		for _, name := range categories {
			cells = append(cells, formatNumber(row.Categories[name]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, s weekstats.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Week:\t%s\n", s.WeekID)
	fmt.Fprintf(tw, "Players:\t%d\n", s.PlayerCount)
	fmt.Fprintf(tw, "Total score:\t%s\n", formatNumber(s.TotalScore))
	fmt.Fprintf(tw, "Total chests:\t%d\n", s.TotalChests)
	fmt.Fprintf(tw, "Average score:\t%s\n", formatAverage(s.AverageScore))
	fmt.Fprintf(tw, "Average chests:\t%s\n", formatAverage(s.AverageChests))
	fmt.Fprintf(tw, "Top source:\t%s (%d)\n", s.MostCommonSource.Name, s.MostCommonSource.Count)
	return tw.Flush()
}

func writeHistory(w io.Writer, weeks []weekstats.WeekStats) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "WEEK\tPLAYERS\tSCORE\tCHESTS\tAVG SCORE\tAVG CHESTS\tTOP SOURCE")
	for _, s := range weeks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			s.Descriptor().Label(),
			s.PlayerCount,
			formatNumber(s.TotalScore),
			s.TotalChests,
			formatAverage(s.AverageScore),
			formatAverage(s.AverageChests),
			s.MostCommonSource.Name,
		)
	}
	return tw.Flush()
}

func writeSeries(w io.Writer, series history.Series) error {
	fmt.Fprintf(w, "%s: %d week(s), total score %s\n", series.Name, series.WeeksFound, formatNumber(series.TotalScore))

	tw := newTable(w)
	fmt.Fprintln(tw, "WEEK\tSCORE\tCHESTS")
	for _, p := range series.Points {
		if !p.HasData {
			fmt.Fprintf(tw, "%s\t-\t-\n", p.Label)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Label, formatNumber(p.Score), p.Chests)
	}
	return tw.Flush()
}

func writeTop(w io.Writer, players []history.Series) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tPLAYER\tWEEKS\tTOTAL SCORE")
	for i, s := range players {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, s.Name, s.WeeksFound, formatNumber(s.TotalScore))
	}
	return tw.Flush()
}
