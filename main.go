package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dme-bo/briskolive/internal/briskcli"
)

func main() {
	if err := briskcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, briskcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "usage: briskolive setup --import-password <password> [--store sqlite] [--force]")
			fmt.Fprintln(os.Stderr, "       briskolive run api|client|all")
			fmt.Fprintln(os.Stderr, "       briskolive import <page> <file>")
			fmt.Fprintln(os.Stderr, "       briskolive backup --collection <name> | restore <file>")
			fmt.Fprintln(os.Stderr, "       briskolive newsletter render --job <id> --project <id>")
			fmt.Fprintln(os.Stderr, "       briskolive assets build")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
