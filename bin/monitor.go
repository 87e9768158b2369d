package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/service-cicd/config"
	"github.com/30Piraten/service-cicd/internal/topology"
)

// Monitoring resources
func createMonitoringResources(stack awscdk.Stack, alerts config.AlertsConfig) awssns.ITopic {
	return awssns.NewTopic(stack, jsii.String("PipelineAlertsTopic"), &awssns.TopicProps{
		TopicName:   jsii.String(alerts.TopicName),
		DisplayName: jsii.String(alerts.DisplayName),
	})
}

// createFailureRule publishes failed executions of pipeline to the alerts
// topic.
func createFailureRule(resources *PipelineResources, t topology.Topology, pipeline awscodepipeline.Pipeline) awsevents.Rule {
	topic := resources.alertsTopic

	detail := make(map[string]interface{}, len(t.Alert.Pattern.Detail))
	for k, v := range t.Alert.Pattern.Detail {
		detail[k] = jsii.Strings(v...)
	}

	rule := awsevents.NewRule(resources.stack, jsii.String(t.Alert.RuleName), &awsevents.RuleProps{
		RuleName:    jsii.String(t.Alert.RuleName),
		Description: jsii.String("Notify when " + t.PipelineName + " fails"),
		EventPattern: &awsevents.EventPattern{
			Source:     jsii.Strings(t.Alert.Pattern.Source...),
			DetailType: jsii.Strings(t.Alert.Pattern.DetailType...),
			Detail:     &detail,
		},
		Targets: &[]awsevents.IRuleTarget{
			awseventstargets.NewSnsTopic(topic, nil),
		},
	})
	rule.Node().AddDependency(pipeline)

	return rule
}
