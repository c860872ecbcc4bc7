// Package briskcli is the briskolive command line: first-run setup, running
// the API and client, and the operator jobs that work on the store directly.
package briskcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/apiapp"
	"github.com/dme-bo/briskolive/internal/envutil"
	"github.com/dme-bo/briskolive/internal/logging"
	"github.com/dme-bo/briskolive/internal/settings"
	"github.com/dme-bo/briskolive/internal/store"
	"github.com/spf13/cobra"
)

var ErrUsage = errors.New("usage")

// options is shared by every subcommand. settings and logger are filled in
// before any RunE runs.
type options struct {
	configFile string
	envFile    string
	settings   settings.Settings
	logger     *slog.Logger
}

// Execute runs the CLI with args (without the program name). It stops on
// SIGINT or SIGTERM.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := NewCmdRoot()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// PrintUsage writes the top level help.
func PrintUsage(w io.Writer) {
	cmd := NewCmdRoot()
	cmd.SetOut(w)
	_ = cmd.Usage()
}

func NewCmdRoot() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "briskolive",
		Short: "Brisk Olive staff console",
		Long: heredoc.Doc(`
			Brisk Olive keeps the members, candidates, coordinators, jobs and
			projects of a veterans placement agency, with interaction notes,
			spreadsheet import and export, and a monthly PDF newsletter.

			Settings come from defaults, then --config (YAML), then the
			environment. A .env file is loaded first and never overrides
			variables that are already set.
		`),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
			}
			return fmt.Errorf("%w: briskolive <command>", ErrUsage)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading settings")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	cmd.AddCommand(
		newCmdSetup(opts),
		newCmdRun(opts),
		newCmdImport(opts),
		newCmdBackup(opts),
		newCmdRestore(opts),
		newCmdNewsletter(opts),
		newCmdAssets(opts),
	)
	return cmd
}

func (o *options) load(cmd *cobra.Command) error {
	if err := envutil.LoadDotEnv(o.envFile); err != nil {
		return fmt.Errorf("load %s: %w", o.envFile, err)
	}
	s, err := settings.Load(o.configFile)
	if err != nil {
		return err
	}
	o.settings = s
	o.logger = logging.New(cmd.ErrOrStderr(), s.LogFormat, s.LogLevel)
	slog.SetDefault(o.logger)
	return nil
}

func (o *options) apiConfig() apiapp.Config {
	cfg := apiapp.ConfigFromSettings(o.settings)
	cfg.Logger = o.logger
	return cfg
}

// openStore opens the configured store. The caller closes it.
func (o *options) openStore(ctx context.Context) (store.Store, error) {
	cfg := o.apiConfig()
	if cfg.StoreDriver == "" || cfg.StoreDriver == "sqlite" {
		if err := ensureParentDirs(cfg.SQLitePath); err != nil {
			return nil, err
		}
	}
	st, err := apiapp.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return st, nil
}

func closeStore(st store.Store, logger *slog.Logger) {
	if err := st.Close(context.Background()); err != nil {
		logger.Warn("close store", "err", err)
	}
}

// exactArgs is cobra.ExactArgs reporting ErrUsage.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUsage, cmd.CommandPath(), err)
		}
		return nil
	}
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
