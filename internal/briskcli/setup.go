package briskcli

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dme-bo/briskolive/internal/envutil"
	"github.com/dme-bo/briskolive/internal/security"
	"github.com/spf13/cobra"
)

type setupOptions struct {
	importPassword string
	storeDriver    string
	sqlitePath     string
	staffName      string
	archiveDir     string
	force          bool
}

func newCmdSetup(root *options) *cobra.Command {
	opts := setupOptions{}
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter .env",
		Long: heredoc.Doc(`
			Writes the .env file the API and client read on start. The import
			password is stored only as a salted hash.
		`),
		Example: heredoc.Doc(`
			briskolive setup --import-password 'long shared secret'
			briskolive setup --import-password 'long shared secret' --store memory --force
		`),
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.importPassword == "" {
				return fmt.Errorf("%w: --import-password is required", ErrUsage)
			}
			hash, err := security.HashPassword(opts.importPassword)
			if err != nil {
				return fmt.Errorf("invalid import password: %w", err)
			}

			values := map[string]string{
				"IMPORT_PASSWORD_HASH": hash,
				"STORE_DRIVER":         strings.ToLower(strings.TrimSpace(opts.storeDriver)),
				"SQLITE_PATH":          opts.sqlitePath,
				"API_ADDR":             ":8080",
				"CLIENT_ADDR":          ":3000",
				"API_BASE_URL":         "http://localhost:8080",
				"STAFF_NAME":           opts.staffName,
				"LOG_FORMAT":           "text",
			}
			if opts.archiveDir != "" {
				values["ARCHIVE_DRIVER"] = "fs"
				values["ARCHIVE_DIR"] = opts.archiveDir
			}

			if err := envutil.WriteDotEnv(root.envFile, values, opts.force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", root.envFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.importPassword, "import-password", "", fmt.Sprintf("password staff enter to import spreadsheets (min %d chars)", security.MinPasswordLength))
	cmd.Flags().StringVar(&opts.storeDriver, "store", "sqlite", "store driver: sqlite, postgres, mongo or memory")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "data/briskolive.db", "sqlite database file")
	cmd.Flags().StringVar(&opts.staffName, "staff-name", "Staff", "author name stamped on notes")
	cmd.Flags().StringVar(&opts.archiveDir, "archive-dir", "", "keep generated newsletters in this directory")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing env file")
	return cmd
}
