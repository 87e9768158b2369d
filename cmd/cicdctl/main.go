package main

import (
	"context"
	"os"

	"github.com/30Piraten/service-cicd/cmd/cicdctl/commands"
	"github.com/30Piraten/service-cicd/internal/logging"
)

func main() {
	logger := logging.New()
	ctx := logger.WithContext(context.Background())

	app := commands.NewApp(&logger)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
