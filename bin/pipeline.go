package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/service-cicd/internal/topology"
)

// artifacts hands out one Artifact per name so producers and consumers
// share the same instance.
type artifacts map[string]awscodepipeline.Artifact

func (a artifacts) get(name string) awscodepipeline.Artifact {
	if artifact, ok := a[name]; ok {
		return artifact
	}
	artifact := awscodepipeline.NewArtifact(jsii.String(name), nil)
	a[name] = artifact
	return artifact
}

func (a artifacts) list(names []string) *[]awscodepipeline.Artifact {
	out := make([]awscodepipeline.Artifact, 0, len(names))
	for _, name := range names {
		out = append(out, a.get(name))
	}
	return &out
}

// Pipeline related resources
func createPipelineResources(resources *PipelineResources, t topology.Topology) awscodepipeline.Pipeline {
	pipelineRole := createPipelineRole(resources, t)

	pipeline := createPipeline(resources, pipelineRole, t)

	if t.Alert != nil && resources.alertsTopic != nil {
		createFailureRule(resources, t, pipeline)
	}
	return pipeline
}

// createPipelineRole is assumed by CodePipeline and carries the service's
// access permissions.
func createPipelineRole(resources *PipelineResources, t topology.Topology) awsiam.Role {
	role := awsiam.NewRole(resources.stack, jsii.String(t.PipelineName+"_role"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codepipeline.amazonaws.com"), nil),
	})
	for _, g := range t.AccessPermissions {
		role.AddToPolicy(policyStatement(g))
	}
	return role
}

func createPipeline(resources *PipelineResources, pipelineRole awsiam.IRole, t topology.Topology) awscodepipeline.Pipeline {
	arts := artifacts{}

	stages := make([]*awscodepipeline.StageProps, 0, len(t.Stages))
	for _, s := range t.Stages {
		actions := make([]awscodepipeline.IAction, 0, len(s.Actions))
		for _, a := range s.Actions {
			actions = append(actions, createAction(resources, t, a, arts))
		}
		stages = append(stages, &awscodepipeline.StageProps{
			StageName: jsii.String(s.Name),
			Actions:   &actions,
		})
	}

	return awscodepipeline.NewPipeline(resources.stack, jsii.String(t.PipelineName),
		&awscodepipeline.PipelineProps{
			PipelineName:   jsii.String(t.PipelineName),
			ArtifactBucket: resources.artifactBucket,
			Role:           pipelineRole,
			Stages:         &stages,
		})
}

func createAction(resources *PipelineResources, t topology.Topology, a topology.Action, arts artifacts) awscodepipeline.IAction {
	runOrder := jsii.Number(float64(a.RunOrder))

	switch a.Kind {
	case topology.KindSource:
		return awscodepipelineactions.NewGitHubSourceAction(&awscodepipelineactions.GitHubSourceActionProps{
			ActionName: jsii.String(a.Name),
			Owner:      jsii.String(a.Source.Owner),
			Repo:       jsii.String(a.Source.Repo),
			Branch:     jsii.String(a.Source.Branch),
			OauthToken: sourceSecret(resources, a.Source.CredentialRef).SecretValue(),
			Output:     arts.get(a.Outputs[0]),
			Trigger:    awscodepipelineactions.GitHubTrigger_WEBHOOK,
			RunOrder:   runOrder,
		})

	case topology.KindCodeBuild:
		project := createCodeBuildResources(resources, a)
		props := &awscodepipelineactions.CodeBuildActionProps{
			ActionName: jsii.String(a.Name),
			Project:    project,
			Input:      arts.get(a.Inputs[0]),
			RunOrder:   runOrder,
			EnvironmentVariables: &map[string]*awscodebuild.BuildEnvironmentVariable{
				"DEPLOYER_ROLE_ARN": {Value: jsii.String(a.AssumedRoleArn)},
				"DEPLOY_STAGE":      {Value: jsii.String(a.Build.DeployStage)},
			},
		}
		if len(a.Inputs) > 1 {
			props.ExtraInputs = arts.list(a.Inputs[1:])
		}
		if len(a.Outputs) > 0 {
			props.Outputs = arts.list(a.Outputs)
		}
		return awscodepipelineactions.NewCodeBuildAction(props)

	case topology.KindS3Deploy:
		id := t.PipelineName + "_" + a.Name
		props := &awscodepipelineactions.S3DeployActionProps{
			ActionName: jsii.String(a.Name),
			Bucket:     awss3.Bucket_FromBucketArn(resources.stack, jsii.String(id+"_bucket"), jsii.String(a.Deploy.BucketArn)),
			Input:      arts.get(a.Inputs[0]),
			Extract:    jsii.Bool(a.Deploy.Extract),
			Role: awsiam.Role_FromRoleArn(resources.stack, jsii.String(id+"_role"), jsii.String(a.AssumedRoleArn), &awsiam.FromRoleArnOptions{
				Mutable: jsii.Bool(false),
			}),
			RunOrder: runOrder,
		}
		if a.Deploy.KeyPrefix != "" {
			props.ObjectKey = jsii.String(a.Deploy.KeyPrefix)
		}
		return awscodepipelineactions.NewS3DeployAction(props)

	case topology.KindApproval:
		props := &awscodepipelineactions.ManualApprovalActionProps{
			ActionName:            jsii.String(a.Name),
			AdditionalInformation: jsii.String(a.Approval.AdditionalInformation),
			RunOrder:              runOrder,
		}
		if a.Approval.NotificationTopic != "" && resources.alertsTopic != nil {
			props.NotificationTopic = resources.alertsTopic
		}
		return awscodepipelineactions.NewManualApprovalAction(props)
	}

	panic("unsupported action kind " + string(a.Kind))
}
