package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
)

type StackProps struct {
	awscdk.StackProps
}

// PipelineResources are shared by every pipeline of the pipelines stack.
type PipelineResources struct {
	stack          awscdk.Stack
	artifactBucket awss3.IBucket
	// alertsTopic is nil when alerts are disabled.
	alertsTopic awssns.ITopic
	// secrets caches imported source credentials by name.
	secrets map[string]awssecretsmanager.ISecret
}
