package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// ValidateCommand checks the deployment file and builds every pipeline
// without touching AWS.
func ValidateCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate the deployment file",
		Description: `Loads the deployment file, validates every service descriptor and builds
every pipeline. Nothing is deployed. Exits non-zero on the first error.`,
		Action: func(c *cli.Context) error {
			return validateAction(c, logger)
		},
	}
}

func validateAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}

	for _, t := range p.topologies {
		logger.Debug().
			Str("service", t.ServiceName).
			Str("pipeline", t.PipelineName).
			Int("actions", len(t.Actions())).
			Msg("pipeline planned")
	}

	logger.Info().
		Int("services", len(p.services)).
		Int("pipelines", len(p.topologies)).
		Msg("Configuration is valid")
	return nil
}
