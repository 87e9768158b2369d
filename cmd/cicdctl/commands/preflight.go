package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/internal/service"
	"github.com/30Piraten/service-cicd/internal/services"
)

// PreflightCommand checks the AWS prerequisites of a deployment.
func PreflightCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "preflight",
		Usage: "Check AWS prerequisites before cdk deploy",
		Description: `Checks that:
  - the current credentials belong to the tools account
  - every source credential secret exists
  - every target storage bucket exists`,
		Action: func(c *cli.Context) error {
			return preflightAction(c, logger)
		},
	}
}

func preflightAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}
	tools, err := p.file.StageAccounts().Account(service.AccountTools)
	if err != nil {
		return err
	}

	cfg, err := services.LoadAWSConfig(c.Context, p.file.Region)
	if err != nil {
		return err
	}
	checks := services.NewPreflightFromConfig(cfg).Run(c.Context, p.services, tools)

	for _, check := range checks {
		event := logger.Info()
		if check.Err != nil {
			event = logger.Error().Err(check.Err)
		}
		event.Str("check", check.Name).Str("resource", check.Resource).Msg("preflight")
	}
	return services.Failed(checks)
}
