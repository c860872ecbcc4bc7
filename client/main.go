package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dme-bo/briskolive/internal/clientapp"
	"github.com/dme-bo/briskolive/internal/envutil"
	"github.com/dme-bo/briskolive/internal/logging"
	"github.com/dme-bo/briskolive/internal/settings"
)

// Standalone staff client, for deployments that run the API elsewhere.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	s := settings.FromEnv()
	cfg := clientapp.ConfigFromSettings(s)
	cfg.Logger = logging.New(os.Stderr, s.LogFormat, s.LogLevel)

	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
