package briskcli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/apiapp"
	"github.com/dme-bo/briskolive/internal/clientapp"
	"github.com/spf13/cobra"
)

func newCmdRun(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "run <api|client|all>",
		Short:     "Serve the API, the staff client or both",
		ValidArgs: []string{"api", "client", "all"},
		Long: heredoc.Doc(`
			Starts a server and blocks until interrupted. "all" starts the API
			first and the client half a second later, and stops both when
			either fails.
		`),
		Example: heredoc.Doc(`
			briskolive run all
			STORE_DRIVER=postgres POSTGRES_DSN=postgres://... briskolive run api
		`),
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch args[0] {
			case "api":
				return opts.runAPI(ctx)
			case "client":
				return opts.runClient(ctx)
			case "all":
				return opts.runAll(ctx)
			default:
				return fmt.Errorf("%w: run target must be api, client or all, got %q", ErrUsage, args[0])
			}
		},
	}
}

func (o *options) runAPI(ctx context.Context) error {
	cfg := o.apiConfig()
	if cfg.StoreDriver == "" || cfg.StoreDriver == "sqlite" {
		if err := ensureParentDirs(cfg.SQLitePath); err != nil {
			return err
		}
	}
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (o *options) runClient(ctx context.Context) error {
	cfg := clientapp.ConfigFromSettings(o.settings)
	cfg.Logger = o.logger
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (o *options) runAll(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)

	go func() { errCh <- o.runAPI(ctx) }()
	go func() {
		select {
		case <-time.After(500 * time.Millisecond):
			errCh <- o.runClient(ctx)
		case <-ctx.Done():
			errCh <- nil
		}
	}()

	var first error
	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}
