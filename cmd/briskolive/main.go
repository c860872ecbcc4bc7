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
			fmt.Fprintln(os.Stderr)
			briskcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
