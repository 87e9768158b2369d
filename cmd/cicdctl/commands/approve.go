package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/internal/services"
	"github.com/30Piraten/service-cicd/internal/topology"
)

// ApproveCommand answers the prod promotion approval of a pipeline.
func ApproveCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "approve",
		Usage: "Approve or reject the prod promotion of a pipeline",
		Description: `Finds the pending manual approval at the end of the Deploy-Staging stage and
answers it. The pipeline then continues to Deploy-Prod, or stops when rejected.

Examples:
  cicdctl approve --service profound-impact
  cicdctl approve --service profound-impact --reject --summary "staging smoke tests failed"`,
		Flags: []cli.Flag{
			serviceFlag(true),
			triggerFlag(),
			&cli.BoolFlag{
				Name:  "reject",
				Usage: "Reject instead of approve",
			},
			&cli.StringFlag{
				Name:  "summary",
				Usage: "Reason recorded with the decision",
			},
		},
		Action: func(c *cli.Context) error {
			return approveAction(c, logger)
		},
	}
}

func approveAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}
	t, err := p.pipeline(c.String("service"), c.String("trigger"))
	if err != nil {
		return err
	}

	actionName := ""
	if stage, ok := t.Stage(topology.StageDeployStaging); ok {
		for _, a := range stage.Actions {
			if a.Kind == topology.KindApproval {
				actionName = a.Name
			}
		}
	}

	cfg, err := services.LoadAWSConfig(c.Context, p.file.Region)
	if err != nil {
		return err
	}
	approve := !c.Bool("reject")
	err = services.NewPipelineServiceFromConfig(cfg).
		Decide(c.Context, t.PipelineName, topology.StageDeployStaging, actionName, approve, c.String("summary"))
	if err != nil {
		return err
	}

	logger.Info().
		Str("pipeline", t.PipelineName).
		Bool("approved", approve).
		Msg("Promotion decided")
	return nil
}
