package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/30Piraten/service-cicd/internal/services"
)

// StatusCommand shows the latest execution state of a pipeline.
func StatusCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of a service pipeline",
		Flags: []cli.Flag{
			serviceFlag(true),
			triggerFlag(),
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			return statusAction(c, logger)
		},
	}
}

func statusAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := loadPlan(c)
	if err != nil {
		return err
	}
	t, err := p.pipeline(c.String("service"), c.String("trigger"))
	if err != nil {
		return err
	}

	cfg, err := services.LoadAWSConfig(c.Context, p.file.Region)
	if err != nil {
		return err
	}
	stages, err := services.NewPipelineServiceFromConfig(cfg).State(c.Context, t.PipelineName)
	if err != nil {
		return err
	}

	logger.Debug().Str("pipeline", t.PipelineName).Int("stages", len(stages)).Msg("pipeline state")
	return write(c.App.Writer, c.String("format"), stages)
}
