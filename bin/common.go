package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/service-cicd/internal/service"
)

func initializeStack(scope constructs.Construct, id string, props *StackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	return awscdk.NewStack(scope, &id, &sprops)
}

func env(account, region string) *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(account),
		Region:  jsii.String(region),
	}
}

// sourceSecret imports the source control token stored under name. Each
// secret is imported once per stack.
func sourceSecret(resources *PipelineResources, name string) awssecretsmanager.ISecret {
	if secret, ok := resources.secrets[name]; ok {
		return secret
	}
	secret := awssecretsmanager.Secret_FromSecretNameV2(resources.stack,
		jsii.String(name+"Secret"),
		jsii.String(name))
	resources.secrets[name] = secret
	return secret
}

// createArtifactBucket is shared by all pipelines. Deploy actions run under
// roles in other accounts, so the bucket is encrypted with a customer key
// those roles can be granted.
func createArtifactBucket(stack awscdk.Stack) awss3.IBucket {
	key := awskms.NewKey(stack, jsii.String("ArtifactKey"), &awskms.KeyProps{
		Alias:             jsii.String("cicd-pipeline-artifacts"),
		EnableKeyRotation: jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
	})

	return awss3.NewBucket(stack, jsii.String("ArtifactBucket"), &awss3.BucketProps{
		RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
		Encryption:        awss3.BucketEncryption_KMS,
		EncryptionKey:     key,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(true),
	})
}

func policyStatement(g service.PermissionGrant) awsiam.PolicyStatement {
	effect := awsiam.Effect_ALLOW
	if g.Effect() == service.EffectDeny {
		effect = awsiam.Effect_DENY
	}
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    effect,
		Actions:   jsii.Strings(g.Actions()...),
		Resources: jsii.Strings(g.Resources()...),
	})
}
