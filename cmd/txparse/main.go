package main

import (
	"fmt"
	"os"

	"github.com/brojonat/txparse/service/solana"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		if cond := solana.Condition(err); cond != "unknown" {
			fmt.Fprintf(os.Stderr, "txparse: %s: %v\n", cond, err)
		} else {
			fmt.Fprintf(os.Stderr, "txparse: %v\n", err)
		}
		os.Exit(1)
	}
}
