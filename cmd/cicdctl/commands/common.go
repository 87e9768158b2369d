package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/30Piraten/service-cicd/config"
	"github.com/30Piraten/service-cicd/internal/service"
	"github.com/30Piraten/service-cicd/internal/topology"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"o"},
		Usage:   "Output format: yaml or json",
		Value:   "yaml",
	}
}

func serviceFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "service",
		Aliases:  []string{"s"},
		Usage:    "Service name",
		Required: required,
	}
}

func triggerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "trigger",
		Aliases: []string{"t"},
		Usage:   "Pipeline trigger: master or pr",
		Value:   string(topology.TriggerMaster),
	}
}

// plan is the loaded configuration with every service validated and every
// pipeline built.
type plan struct {
	file       *config.File
	services   []service.Valid
	topologies []topology.Topology
}

func loadPlan(c *cli.Context) (*plan, error) {
	f, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	services, topologies, err := f.Plan()
	if err != nil {
		return nil, err
	}
	return &plan{file: f, services: services, topologies: topologies}, nil
}

// pipeline returns the topology of serviceName for trigger.
func (p *plan) pipeline(serviceName, trigger string) (topology.Topology, error) {
	tr, err := topology.ParseTrigger(trigger)
	if err != nil {
		return topology.Topology{}, err
	}
	for _, t := range p.topologies {
		if t.ServiceName == serviceName && t.Trigger == tr {
			return t, nil
		}
	}
	return topology.Topology{}, fmt.Errorf("no %s pipeline for service %q", tr, serviceName)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q, want yaml or json", format)
	}
}
