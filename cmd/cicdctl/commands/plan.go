package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/internal/deployer"
	"github.com/30Piraten/service-cicd/internal/service"
	"github.com/30Piraten/service-cicd/internal/topology"
)

type planOutput struct {
	Pipelines []topology.Topology       `json:"pipelines" yaml:"pipelines"`
	Roles     []deployer.RoleDescriptor `json:"roles" yaml:"roles"`
}

// PlanCommand prints the pipelines and deployer roles the deployment file
// describes.
func PlanCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show the planned pipelines and deployer roles",
		Description: `Prints every pipeline topology (stages, actions, artifacts, assumed roles)
and every cross-account deployer role.

Examples:
  # Everything, as YAML
  cicdctl plan

  # One service, as JSON
  cicdctl plan --service profound-impact --format json`,
		Flags: []cli.Flag{
			formatFlag(),
			serviceFlag(false),
		},
		Action: func(c *cli.Context) error {
			return planAction(c, logger)
		},
	}
}

func planAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}

	only := c.String("service")
	services := p.services
	if only != "" {
		services = nil
		for _, v := range p.services {
			if v.ServiceName() == only {
				services = append(services, v)
			}
		}
		if len(services) == 0 {
			return fmt.Errorf("unknown service %q", only)
		}
	}

	out := planOutput{Pipelines: []topology.Topology{}, Roles: []deployer.RoleDescriptor{}}
	for _, t := range p.topologies {
		if only == "" || t.ServiceName == only {
			out.Pipelines = append(out.Pipelines, t)
		}
	}
	for _, key := range service.RequiredAccounts() {
		roles, err := deployer.BuildAll(services, p.file.StageAccounts(), key)
		if err != nil {
			return err
		}
		out.Roles = append(out.Roles, roles...)
	}

	logger.Debug().
		Int("pipelines", len(out.Pipelines)).
		Int("roles", len(out.Roles)).
		Msg("plan built")

	return write(c.App.Writer, c.String("format"), out)
}
