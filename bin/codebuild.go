package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/service-cicd/internal/topology"
)

const buildTimeoutMinutes = 10

// CodeBuild related resources
func createCodeBuildResources(resources *PipelineResources, a topology.Action) awscodebuild.PipelineProject {
	codeBuildRole := createCodeBuildRole(resources.stack, a)

	codeBuildProject := createCodeBuildProject(resources.stack, a, codeBuildRole)

	if resources.alertsTopic != nil {
		failedBuilds := codeBuildProject.MetricFailedBuilds(&awscloudwatch.MetricOptions{
			Statistic: jsii.String("Sum"),
			Period:    awscdk.Duration_Minutes(jsii.Number(5)),
		})
		codeBuildAlarm := createCodeBuildAlarm(resources.stack, a.Build.ProjectName, failedBuilds)
		codeBuildAlarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(resources.alertsTopic))
	}

	return codeBuildProject
}

// createCodeBuildRole may assume the deployer role of the action's stage.
func createCodeBuildRole(stack awscdk.Stack, a topology.Action) awsiam.Role {
	role := awsiam.NewRole(stack, jsii.String(a.Build.ProjectName+"_role"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codebuild.amazonaws.com"), nil),
	})

	if a.AssumedRoleArn != "" {
		role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:    awsiam.Effect_ALLOW,
			Actions:   jsii.Strings("sts:AssumeRole"),
			Resources: jsii.Strings(a.AssumedRoleArn),
		}))
	}

	return role
}

func createCodeBuildProject(stack awscdk.Stack, a topology.Action, role awsiam.IRole) awscodebuild.PipelineProject {
	return awscodebuild.NewPipelineProject(stack, jsii.String(a.Build.ProjectName), &awscodebuild.PipelineProjectProps{
		ProjectName: jsii.String(a.Build.ProjectName),
		BuildSpec:   awscodebuild.BuildSpec_FromSourceFilename(jsii.String(a.Build.BuildSpec)),
		Role:        role,
		Environment: &awscodebuild.BuildEnvironment{
			ComputeType: awscodebuild.ComputeType_SMALL,
			BuildImage:  awscodebuild.LinuxBuildImage_STANDARD_7_0(),
		},
		Timeout: awscdk.Duration_Minutes(jsii.Number(buildTimeoutMinutes)),
	})
}

// createCodeBuildAlarm fires on the first failed build of the project.
func createCodeBuildAlarm(stack awscdk.Stack, projectName string, failedBuilds awscloudwatch.IMetric) awscloudwatch.Alarm {
	name := projectName + "_failed_builds"
	return awscloudwatch.NewAlarm(stack, jsii.String(name), &awscloudwatch.AlarmProps{
		AlarmName:          jsii.String(name),
		AlarmDescription:   jsii.String("Alert when " + projectName + " fails"),
		Metric:             failedBuilds,
		Threshold:          jsii.Number(1),
		EvaluationPeriods:  jsii.Number(1),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})
}
