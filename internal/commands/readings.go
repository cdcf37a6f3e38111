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
	"github.com/meterbook-dev/meterbook/internal/model"
)

func newListCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List corrected readings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.ledger().List()
			if err != nil {
				return eris.Wrap(err, "listing readings")
			}
			if limit > 0 && len(view.Rows) > limit {
				view.Rows = view.Rows[:limit]
			}
			return printList(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n readings (0 = all)")

	return cmd
}

func printList(out io.Writer, view ledger.ListView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(view.Columns, "\t"))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(row.Values)+1)
		cells = append(cells, row.Date)
		for _, v := range row.Values {
			if v == nil {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, strconv.FormatInt(*v, 10))
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func newAddCommand(a *app) *cobra.Command {
	var date string
	var pairs []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record the readings of one day",
		Long: "Record the readings of one day. The reading replaces any existing one for\n" +
			"the same date; columns left out are stored as missing.",
		Example: "  meterbook add --date 2024-03-01 -v strom=10234 -v gas=5521",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parsePairs(pairs)
			if err != nil {
				return err
			}
			if date == "" {
				date = model.FormatStorage(time.Now())
			}
			res, err := a.ledger().Submit(ledger.Submission{Date: date, Values: values})
			if err != nil {
				return eris.Wrap(err, "saving reading")
			}
			if res.Warning != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Warning)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved reading for %s\n", model.FormatDisplay(res.Date))
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "reading date, YYYY-MM-DD or DD.MM.YYYY (default today)")
	cmd.Flags().StringArrayVarP(&pairs, "value", "v", nil, "column=value, by key or display name (repeatable)")

	return cmd
}

// parsePairs splits column=value flags. Values keep their commas, which may
// be the decimal separator.
func parsePairs(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid value %q, want column=value", p)
		}
		values[key] = value
	}
	return values, nil
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <date>",
		Short: "Delete the reading of one day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.ledger().Delete(args[0])
			if err != nil {
				return eris.Wrap(err, "deleting reading")
			}
			if !found {
				return fmt.Errorf("no reading for %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted reading for %s\n", args[0])
			return nil
		},
	}
}

func newSeriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "series <metric>",
		Short: "Print the corrected values of one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.ledger().Series(args[0])
			if err != nil {
				return eris.Wrap(err, "loading series")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "DATE\t%s\n", strings.ToUpper(series.Metric.DisplayName))
			for i, label := range series.Labels {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", label, series.Values[i])
			}
			return w.Flush()
		},
	}
}
