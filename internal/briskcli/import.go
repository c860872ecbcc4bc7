package briskcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/spf13/cobra"
)

func newCmdImport(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <page> <file>",
		Short: "Import a spreadsheet straight into the store",
		Long: heredoc.Doc(`
			Reads a .csv, .xlsx or .xls export and appends its rows to the
			page's collection. Operators with shell access skip the import
			password. Rows are written in order and the import stops at the
			first row the store rejects.
		`),
		Example: heredoc.Doc(`
			briskolive import members ./exports/members.xlsx
			briskolive import jobs jobs.csv
		`),
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, ok := pages.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown page %q", ErrUsage, args[0])
			}
			if !page.Importable {
				return fmt.Errorf("%s does not accept imports", page.Title)
			}
			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			ctx := cmd.Context()
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st, opts.logger)

			res, err := importer.New(st, importer.Gate{}, nil, opts.logger).
				ImportUnchecked(ctx, page, filepath.Base(args[1]), file)

			status := okStyle.Render("done")
			if err != nil {
				status = warnStyle.Render("stopped")
			}
			rows := [][2]string{
				{"page", page.Slug},
				{"parsed", strconv.Itoa(res.Parsed)},
				{"written", strconv.Itoa(res.Written)},
				{"status", status},
			}
			if res.StoppedAt >= 0 {
				rows = append(rows, [2]string{"row", strconv.Itoa(res.StoppedAt + 1)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary("import "+filepath.Base(args[1]), rows))
			return err
		},
	}
}
