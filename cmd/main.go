package main

import (
	"context"
	"errors"
	"os"

	"github.com/christuckey/scoutarr/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(logger)

	app := &cli.Command{
		Name:     "scoutarr",
		Usage:    "Reconcile ListenBrainz recommendations with Lidarr and Plex",
		Version:  "0.7.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrMissingConfig) {
			logger.Error("no profiles found; run `scoutarr config init` to create one")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
