package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meterbook-dev/meterbook/internal/ledger"
)

func newAggregateCommand(a *app) *cobra.Command {
	var timeframe string

	cmd := &cobra.Command{
		Use:   "aggregate <metric>",
		Short: "Print a metric resampled to days, weeks, months or years",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.ledger().Aggregates(args[0], timeframe)
			if err != nil {
				return eris.Wrap(err, "aggregating")
			}
			return printAggregate(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "M", "D, W, M or Y")

	return cmd
}

func printAggregate(out io.Writer, view ledger.AggregateView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "PERIOD END\t%s (%s)\n", strings.ToUpper(view.Metric.DisplayName), view.Timeframe)
	for i, label := range view.Labels {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", label, formatFloat(view.Values[i]))
	}

	if view.Pivot != nil && len(view.Pivot.Years) > 0 {
		_, _ = fmt.Fprintln(w)
		header := []string{"MONTH"}
		for _, y := range view.Pivot.Years {
			header = append(header, strconv.Itoa(y))
		}
		_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
		for m, row := range view.Pivot.Values {
			cells := []string{time.Month(m + 1).String()[:3]}
			for _, v := range row {
				cells = append(cells, formatFloat(v))
			}
			_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
	}
	return w.Flush()
}

func newStatsCommand(a *app) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "stats <metric>",
		Short: "Show year-over-year, seasonal and anomaly statistics for a metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.ledger().Insights(args[0], year)
			if err != nil {
				return eris.Wrap(err, "computing statistics")
			}
			return printInsights(cmd.OutOrStdout(), in)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "reference year (default latest year with data)")

	return cmd
}

func printInsights(out io.Writer, in ledger.Insights) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	unit := in.Metric.Unit

	yoy := in.YearOverYear
	_, _ = fmt.Fprintf(w, "Metric:\t%s\n", in.Metric.DisplayName)
	_, _ = fmt.Fprintf(w, "Reference year:\t%d\n", yoy.ReferenceYear)
	if yoy.Available {
		_, _ = fmt.Fprintf(w, "Average %d:\t%s %s\n", yoy.ReferenceYear, formatFloat(yoy.CurrentYearAvg), unit)
		_, _ = fmt.Fprintf(w, "Average %d:\t%s %s\n", yoy.ReferenceYear-1, formatFloat(yoy.PriorYearAvg), unit)
		_, _ = fmt.Fprintf(w, "Change:\t%+.1f%%\n", *yoy.ChangePercent)
	} else {
		_, _ = fmt.Fprintf(w, "Change:\tnot available\n")
	}
	if in.PeakMonth != 0 {
		_, _ = fmt.Fprintf(w, "Peak month:\t%s\n", time.Month(in.PeakMonth))
		_, _ = fmt.Fprintf(w, "Low month:\t%s\n", time.Month(in.LowMonth))
	}
	_, _ = fmt.Fprintf(w, "Anomalies:\t%d\n", len(in.Anomalies))

	if len(in.YearlyTotals) > 0 {
		_, _ = fmt.Fprintln(w, "\nYearly totals:")
		for _, t := range in.YearlyTotals {
			_, _ = fmt.Fprintf(w, "  %s\t%s %s\n", t.Date[:4], strconv.FormatFloat(t.Value, 'f', -1, 64), unit)
		}
	}
	if len(in.Anomalies) > 0 {
		_, _ = fmt.Fprintln(w, "\nAnomalies:")
		for _, an := range in.Anomalies {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", an.Date, strconv.FormatFloat(an.Value, 'f', -1, 64))
		}
	}
	if len(in.Adjustments) > 0 {
		_, _ = fmt.Fprintln(w, "\nMeter changes:")
		for _, adj := range in.Adjustments {
			_, _ = fmt.Fprintf(w, "  %s\t%+d\t%s\n", adj.Date, adj.Offset, adj.Reason)
		}
	}
	return w.Flush()
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
