package briskcli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const tailwindVersion = "v3.4.17"

// tailwind describes one stylesheet build with the standalone CLI.
type tailwind struct {
	version string
	goos    string
	goarch  string
	binDir  string
	input   string
	output  string
	config  string
}

func defaultTailwind() tailwind {
	root := filepath.Join("internal", "clientapp")
	return tailwind{
		version: tailwindVersion,
		goos:    runtime.GOOS,
		goarch:  runtime.GOARCH,
		binDir:  "bin",
		input:   filepath.Join(root, "assets", "tailwind.input.css"),
		output:  filepath.Join(root, "assets", "app.css"),
		config:  filepath.Join(root, "tailwind.config.js"),
	}
}

func newCmdAssets(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the client stylesheet",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Rebuild the embedded client stylesheet",
		Long: heredoc.Doc(`
			Downloads the standalone Tailwind CLI into ./bin on first use and
			rebuilds internal/clientapp/assets/app.css. Run it from the
			repository root, then rebuild the binary to embed the result.
		`),
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := defaultTailwind()
			if err := tw.build(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			opts.logger.Info("stylesheet built", "output", tw.output)
			return nil
		},
	})
	return cmd
}

func (t tailwind) build(ctx context.Context, stdout, stderr io.Writer) error {
	if err := ensureParentDirs(t.output); err != nil {
		return err
	}
	bin, err := t.ensureBinary(ctx)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, bin,
		"-i", t.input,
		"-o", t.output,
		"--config", t.config,
		"--minify",
	)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build tailwind css: %w", err)
	}
	return nil
}

func (t tailwind) binaryPath() string {
	name := "tailwindcss"
	if t.goos == "windows" {
		name += ".exe"
	}
	return filepath.Join(t.binDir, name)
}

func (t tailwind) downloadURL() (string, error) {
	asset, err := t.assetName()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/%s/%s", t.version, asset), nil
}

func (t tailwind) assetName() (string, error) {
	switch t.goos + "/" + t.goarch {
	case "darwin/arm64":
		return "tailwindcss-macos-arm64", nil
	case "darwin/amd64":
		return "tailwindcss-macos-x64", nil
	case "linux/amd64":
		return "tailwindcss-linux-x64", nil
	case "linux/arm64":
		return "tailwindcss-linux-arm64", nil
	case "windows/amd64":
		return "tailwindcss-windows-x64.exe", nil
	case "windows/arm64":
		return "tailwindcss-windows-arm64.exe", nil
	default:
		return "", fmt.Errorf("no tailwind build for %s/%s", t.goos, t.goarch)
	}
}

// ensureBinary downloads the CLI unless an executable copy is already there.
func (t tailwind) ensureBinary(ctx context.Context) (string, error) {
	dest := t.binaryPath()
	if info, err := os.Stat(dest); err == nil && info.Mode()&0o111 != 0 {
		return dest, nil
	}
	url, err := t.downloadURL()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(t.binDir, 0o755); err != nil {
		return "", fmt.Errorf("create bin directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download tailwind: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download tailwind: unexpected status %s", resp.Status)
	}

	tmp := dest + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write tailwind binary: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if t.goos != "windows" {
		if err := os.Chmod(tmp, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("install tailwind binary: %w", err)
	}
	return dest, nil
}
