package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/config"
)

// NewApp returns the cicdctl application with every command registered.
func NewApp(logger *zerolog.Logger) *cli.App {
	return &cli.App{
		Name:  "cicdctl",
		Usage: "Plan and operate service CI/CD pipelines",
		Description: `Reads the deployment file (cicd.yaml) describing every service and the
tools, staging and prod accounts, and works with the pipelines built from it.

The pipelines themselves are deployed with "cdk deploy"; this tool validates
the configuration, shows the planned pipelines and deployer roles, and
operates running pipelines.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the deployment file",
				Value:   config.DefaultPath,
				EnvVars: []string{config.ConfigPathEnv},
			},
		},
		Commands: []*cli.Command{
			ValidateCommand(logger),
			PlanCommand(logger),
			RolesCommand(logger),
			StatusCommand(logger),
			ApproveCommand(logger),
			PreflightCommand(logger),
		},
	}
}
