package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

func newExportCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the corrected readings to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.ledger()
			path := output
			if path == "" {
				path = filepath.Join(a.cfg.Dir, svc.ExportFileName())
			}

			f, err := os.Create(path)
			if err != nil {
				return eris.Wrap(err, "creating export file")
			}
			if err := svc.Export(f); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return eris.Wrap(err, "exporting readings")
			}
			if err := f.Close(); err != nil {
				return eris.Wrap(err, "closing export file")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported readings to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <dir>/<data file>.xlsx)")

	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Merge CSV and XLSX files from the import directory into the readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.ledger().Import(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "importing")
			}
			if len(res.Files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d file(s): %d added, %d replaced\n",
				len(res.Files), res.Added, res.Replaced)
			return nil
		},
	}
}
