package briskcli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/backup"
	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/spf13/cobra"
)

func newCmdBackup(opts *options) *cobra.Command {
	var (
		collection string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump a collection and its notes",
		Long: heredoc.Doc(`
			Writes every record of a collection, each followed by its notes,
			as xz-compressed JSON lines. Dumps restore into any store driver.
		`),
		Example: heredoc.Doc(`
			briskolive backup --collection members
			briskolive backup --collection jobs --out jobs.jsonl.xz
		`),
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !knownCollection(collection) {
				return fmt.Errorf("%w: unknown collection %q", ErrUsage, collection)
			}
			if out == "" {
				out = fmt.Sprintf("%s-%s.jsonl.xz", collection, time.Now().Format("20060102-150405"))
			}
			if err := ensureParentDirs(out); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st, opts.logger)

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			stats, err := backup.Write(ctx, file, st, collection, opts.logger)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary("backup "+collection, [][2]string{
				{"records", strconv.Itoa(stats.Records)},
				{"notes", strconv.Itoa(stats.Notes)},
				{"file", out},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection to dump, e.g. members or jobs")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <collection>-<timestamp>.jsonl.xz)")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func newCmdRestore(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a dump written by backup",
		Long: heredoc.Doc(`
			Recreates the records and notes of a dump. Records receive new ids
			from the target store and note timestamps are set at restore time.
			Restoring twice duplicates the data.
		`),
		Example: heredoc.Doc(`
			STORE_DRIVER=mongo MONGO_URI=mongodb://localhost briskolive restore members-20250101-120000.jsonl.xz
		`),
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
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

			stats, err := backup.Restore(ctx, file, st, opts.logger)
			status := okStyle.Render("done")
			if err != nil {
				status = warnStyle.Render("stopped")
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary("restore", [][2]string{
				{"records", strconv.Itoa(stats.Records)},
				{"notes", strconv.Itoa(stats.Notes)},
				{"status", status},
			}))
			return err
		},
	}
}

func knownCollection(name string) bool {
	for _, page := range pages.All() {
		if page.Collection == name {
			return true
		}
	}
	return false
}
