package briskcli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/apiapp"
	"github.com/dme-bo/briskolive/internal/newsletter"
	"github.com/spf13/cobra"
)

func newCmdNewsletter(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsletter",
		Short: "Work with the monthly newsletter",
	}
	cmd.AddCommand(newCmdNewsletterRender(opts))
	return cmd
}

type renderOptions struct {
	jobs     []string
	projects []string
	out      string
	archive  bool
}

func newCmdNewsletterRender(root *options) *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an edition to a PDF file",
		Long: heredoc.Doc(`
			Renders the saved newsletter content with the chosen jobs and
			projects, in the order given. Ids that no longer exist are skipped.
			With --archive a copy also goes to the configured archive.
		`),
		Example: heredoc.Doc(`
			briskolive newsletter render --job 3f2a --job 91bc --project 77de
			briskolive newsletter render --job 3f2a --out march.pdf --archive
		`),
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := root.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st, root.logger)

			cfg := root.apiConfig()
			archive, err := apiapp.OpenArchive(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			builder := newsletter.NewBuilder(st, st, archive, root.logger)
			if cfg.NewsletterSeed != "" {
				seed, err := newsletter.LoadSeed(cfg.NewsletterSeed)
				if err != nil {
					return err
				}
				builder.WithSeed(seed)
			}

			sel := newsletter.Selection{JobIDs: opts.jobs, ProjectIDs: opts.projects}
			output, err := builder.Generate(ctx, sel, opts.archive)
			if output.PDF == nil {
				return err
			}

			path := opts.out
			if path == "" {
				path = output.Filename
			}
			if writeErr := os.WriteFile(path, output.PDF, 0o644); writeErr != nil {
				return writeErr
			}
			rows := [][2]string{
				{"file", path},
				{"bytes", strconv.Itoa(len(output.PDF))},
				{"jobs", strconv.Itoa(len(opts.jobs))},
				{"projects", strconv.Itoa(len(opts.projects))},
			}
			if output.Archived != nil {
				rows = append(rows, [2]string{"archive", output.Archived.Key})
			} else if err != nil {
				rows = append(rows, [2]string{"archive", warnStyle.Render("failed")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary("newsletter", rows))
			return err
		},
	}
	cmd.Flags().StringArrayVar(&opts.jobs, "job", nil, "job id to include (repeatable)")
	cmd.Flags().StringArrayVar(&opts.projects, "project", nil, "project id to include (repeatable)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default newsletter-<date>.pdf)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "also store the PDF in the archive")
	return cmd
}
