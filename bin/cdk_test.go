package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/30Piraten/service-cicd/config"
)

func TestMain(m *testing.M) {
	code := m.Run()
	jsii.Close()
	os.Exit(code)
}

func testConfig() *config.File {
	return &config.File{
		Region:    "us-east-1",
		StackName: "cicd-pipelines",
		Accounts: map[string]string{
			"tools":   "111111111111",
			"staging": "222222222222",
			"prod":    "333333333333",
		},
		Triggers: []string{"master"},
		Alerts: config.AlertsConfig{
			TopicName:   "cicd-notifications",
			DisplayName: "CICD pipeline failed",
		},
		Services: []config.ServiceConfig{{
			ServiceName: "acme",
			Sources: config.SourcesConfig{
				Owner:       "acme-corp",
				RepoService: "acme-services",
			},
			SecretReference: "TokenForGit",
			DeployPermissions: []config.StatementConfig{
				{Actions: []string{"cloudformation:*"}},
			},
			AccessPermissions: []config.StatementConfig{
				{Actions: []string{"s3:GetObject"}, Resources: []string{"arn:aws:s3:::acme-assets/*"}},
			},
		}},
	}
}

func TestSynthesize(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := awscdk.NewApp(nil)
	stacks, err := synthesize(app, testConfig(), &logger)
	require.NoError(t, err)
	require.Len(t, stacks, 4)

	assert.Equal(t, "cicd-pipelines", *stacks[0].StackName())
	assert.Equal(t, "tools-deployer-roles", *stacks[1].StackName())
	assert.Equal(t, "staging-deployer-roles", *stacks[2].StackName())
	assert.Equal(t, "prod-deployer-roles", *stacks[3].StackName())
	assert.Contains(t, buf.String(), "pipelines stack")

	pipelines := assertions.Template_FromStack(stacks[0], nil)
	pipelines.ResourceCountIs(jsii.String("AWS::CodePipeline::Pipeline"), jsii.Number(1))
	pipelines.HasResourceProperties(jsii.String("AWS::CodePipeline::Pipeline"), map[string]interface{}{
		"Name": "acme_master",
	})
	pipelines.HasResourceProperties(jsii.String("AWS::SNS::Topic"), map[string]interface{}{
		"TopicName":   "cicd-notifications",
		"DisplayName": "CICD pipeline failed",
	})
	pipelines.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"Name": "acme_master_pipeline_failed_rule",
		"EventPattern": map[string]interface{}{
			"source":      []interface{}{"aws.codepipeline"},
			"detail-type": []interface{}{"CodePipeline Pipeline Execution State Change"},
		},
	})
	pipelines.HasResourceProperties(jsii.String("AWS::CodeBuild::Project"), map[string]interface{}{
		"Name":             "acme_master_services_build",
		"TimeoutInMinutes": 10,
	})
	pipelines.ResourceCountIs(jsii.String("AWS::CodeBuild::Project"), jsii.Number(3))
	pipelines.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(3))

	staging := assertions.Template_FromStack(stacks[2], nil)
	staging.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"RoleName": "acme-staging-deployer-role",
	})
	staging.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
		"PolicyName": "acme-staging-deployer-role-policy",
	})
}

func TestSynthesize_AlertsDisabled(t *testing.T) {
	f := testConfig()
	f.Alerts.Disabled = true

	logger := zerolog.Nop()
	app := awscdk.NewApp(nil)
	stacks, err := synthesize(app, f, &logger)
	require.NoError(t, err)

	pipelines := assertions.Template_FromStack(stacks[0], nil)
	pipelines.ResourceCountIs(jsii.String("AWS::SNS::Topic"), jsii.Number(0))
	pipelines.ResourceCountIs(jsii.String("AWS::Events::Rule"), jsii.Number(0))
	pipelines.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(0))
}

func TestSynthesize_InvalidConfig(t *testing.T) {
	f := testConfig()
	delete(f.Accounts, "staging")

	logger := zerolog.Nop()
	_, err := synthesize(awscdk.NewApp(nil), f, &logger)
	assert.Error(t, err)
}
