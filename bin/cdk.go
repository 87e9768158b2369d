package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/rs/zerolog"

	"github.com/30Piraten/service-cicd/config"
	"github.com/30Piraten/service-cicd/internal/deployer"
	"github.com/30Piraten/service-cicd/internal/logging"
	"github.com/30Piraten/service-cicd/internal/service"
	"github.com/30Piraten/service-cicd/internal/topology"
)

// NewPipelineStack creates the alerts topic, the shared artifact bucket and
// one pipeline per topology.
func NewPipelineStack(scope constructs.Construct, id string, props *StackProps, f *config.File, topologies []topology.Topology) awscdk.Stack {
	stack := initializeStack(scope, id, props)

	resources := &PipelineResources{
		stack:          stack,
		artifactBucket: createArtifactBucket(stack),
		secrets:        map[string]awssecretsmanager.ISecret{},
	}
	if !f.Alerts.Disabled {
		resources.alertsTopic = createMonitoringResources(stack, f.Alerts)
	}

	pipelines := make([]awscodepipeline.Pipeline, 0, len(topologies))
	for _, t := range topologies {
		pipelines = append(pipelines, createPipelineResources(resources, t))
	}

	createStackOutputs(resources, pipelines)

	return stack
}

// synthesize adds every stack described by f to app: the pipelines stack in
// the tools account and one deployer roles stack per account.
func synthesize(app awscdk.App, f *config.File, logger *zerolog.Logger) ([]awscdk.Stack, error) {
	services, topologies, err := f.Plan()
	if err != nil {
		return nil, err
	}
	accounts := f.StageAccounts()

	tools, err := accounts.Account(service.AccountTools)
	if err != nil {
		return nil, err
	}

	stacks := []awscdk.Stack{
		NewPipelineStack(app, f.StackName, &StackProps{
			awscdk.StackProps{Env: env(tools, f.Region)},
		}, f, topologies),
	}
	logger.Info().
		Str("stack", f.StackName).
		Int("pipelines", len(topologies)).
		Msg("pipelines stack")

	for _, key := range service.RequiredAccounts() {
		roles, err := deployer.BuildAll(services, accounts, key)
		if err != nil {
			return nil, err
		}
		if len(roles) == 0 {
			continue
		}
		// accounts were checked by Plan
		accountID, _ := accounts.Account(key)

		id := key + "-deployer-roles"
		stacks = append(stacks, NewDeployerRoleStack(app, id, &StackProps{
			awscdk.StackProps{Env: env(accountID, f.Region)},
		}, roles))
		logger.Info().
			Str("stack", id).
			Str("account", accountID).
			Int("roles", len(roles)).
			Msg("deployer roles stack")
	}

	return stacks, nil
}

func main() {
	defer jsii.Close()

	logger := logging.New()

	f, err := config.Load(config.Path())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	app := awscdk.NewApp(nil)
	if _, err := synthesize(app, f, &logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to plan pipelines")
	}

	app.Synth(nil)
}
