package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meterbook-dev/meterbook/internal/auditlog"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit log of changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Storage.AuditLog == "" {
				return fmt.Errorf("no audit log configured")
			}
			entries, err := auditlog.New(a.cfg.Path(a.cfg.Storage.AuditLog)).Read()
			if err != nil {
				return eris.Wrap(err, "reading audit log")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TIME\tACTION\tDATE\tDETAILS")
			shown := 0
			for i := len(entries) - 1; i >= 0; i-- {
				if limit > 0 && shown == limit {
					break
				}
				e := entries[i]
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Action, e.Date, e.Details)
				shown++
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most n entries (0 = all)")

	return cmd
}
