package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"
)

func createStackOutputs(resources *PipelineResources, pipelines []awscodepipeline.Pipeline) {
	for _, pipeline := range pipelines {
		awscdk.NewCfnOutput(resources.stack, jsii.String(*pipeline.Node().Id()+"_name"), &awscdk.CfnOutputProps{
			Value: pipeline.PipelineName(),
		})
	}

	if resources.alertsTopic != nil {
		awscdk.NewCfnOutput(resources.stack, jsii.String("AlertsTopicArn"), &awscdk.CfnOutputProps{
			Value: resources.alertsTopic.TopicArn(),
		})
	}

	awscdk.NewCfnOutput(resources.stack, jsii.String("ArtifactBucketName"), &awscdk.CfnOutputProps{
		Value: resources.artifactBucket.BucketName(),
	})
}

func createRoleOutput(stack awscdk.Stack, role awsiam.IRole) {
	awscdk.NewCfnOutput(stack, jsii.String(*role.Node().Id()+"_arn"), &awscdk.CfnOutputProps{
		Value: role.RoleArn(),
	})
}
