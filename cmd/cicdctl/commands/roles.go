package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/internal/naming"
	"github.com/30Piraten/service-cicd/internal/service"
)

// RolesCommand lists the deployer role of every service in every stage.
func RolesCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "roles",
		Usage: "List deployer role names and ARNs",
		Description: `Lists the cross-account deployer role of every service for the dev (tools
account), staging and prod stages. Roles are named {service}-{stage}-deployer-role.`,
		Action: func(c *cli.Context) error {
			return rolesAction(c, logger)
		},
	}
}

func rolesAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}
	accounts := p.file.StageAccounts()

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTAGE\tROLE\tARN")
	for _, v := range p.services {
		for _, s := range service.DeployerStages() {
			accountID, err := accounts.Account(s.Account)
			if err != nil {
				return err
			}
			name, err := naming.RoleName(v.ServiceName(), s.Stage)
			if err != nil {
				return err
			}
			arn, err := naming.RoleArn(v.ServiceName(), s.Stage, accountID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ServiceName(), s.Stage, name, arn)
		}
	}

	logger.Debug().Int("services", len(p.services)).Msg("roles listed")
	return w.Flush()
}
