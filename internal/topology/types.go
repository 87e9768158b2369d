package topology

import (
	"fmt"

	"github.com/30Piraten/service-cicd/internal/service"
)

// Trigger selects which source event starts a pipeline.
type Trigger string

const (
	TriggerMaster      Trigger = "master" // merge to master
	TriggerPullRequest Trigger = "pr"     // create/update of a pull request
)

func ParseTrigger(s string) (Trigger, error) {
	switch Trigger(s) {
	case TriggerMaster, TriggerPullRequest:
		return Trigger(s), nil
	default:
		return "", fmt.Errorf("unknown trigger %q, want %q or %q", s, TriggerMaster, TriggerPullRequest)
	}
}

// Stage names, in pipeline order.
const (
	StageSource        = "Source"
	StageBuild         = "Build"
	StageDeployStaging = "Deploy-Staging"
	StageDeployProd    = "Deploy-Prod"
)

// StageOrder is the fixed stage sequence of every pipeline.
func StageOrder() []string {
	return []string{StageSource, StageBuild, StageDeployStaging, StageDeployProd}
}

type ActionKind string

const (
	KindSource    ActionKind = "Source"
	KindCodeBuild ActionKind = "CodeBuild"
	KindS3Deploy  ActionKind = "S3Deploy"
	KindApproval  ActionKind = "ManualApproval"
)

// Topology is the desired stage graph of one pipeline.
type Topology struct {
	PipelineName string  `json:"pipelineName" yaml:"pipelineName"`
	ServiceName  string  `json:"serviceName" yaml:"serviceName"`
	Trigger      Trigger `json:"trigger" yaml:"trigger"`
	Stages       []Stage `json:"stages" yaml:"stages"`
	// AccessPermissions are attached to the pipeline's execution role.
	AccessPermissions []service.PermissionGrant `json:"accessPermissions,omitempty" yaml:"accessPermissions,omitempty"`
	Alert             *FailureAlert             `json:"alert,omitempty" yaml:"alert,omitempty"`
}

// Stage returns the stage called name.
func (t Topology) Stage(name string) (Stage, bool) {
	for _, s := range t.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Actions returns every action of the pipeline in stage order.
func (t Topology) Actions() []Action {
	var out []Action
	for _, s := range t.Stages {
		out = append(out, s.Actions...)
	}
	return out
}

type Stage struct {
	Name    string   `json:"name" yaml:"name"`
	Actions []Action `json:"actions" yaml:"actions"`
}

// Action describes one pipeline action. Exactly one of Source, Build, Deploy
// and Approval is set, matching Kind. The first input is the primary input.
type Action struct {
	Name           string     `json:"name" yaml:"name"`
	Kind           ActionKind `json:"kind" yaml:"kind"`
	RunOrder       int        `json:"runOrder" yaml:"runOrder"`
	Inputs         []string   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs        []string   `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	AssumedRoleArn string     `json:"assumedRoleArn,omitempty" yaml:"assumedRoleArn,omitempty"`

	Source   *SourceAction   `json:"source,omitempty" yaml:"source,omitempty"`
	Build    *BuildAction    `json:"build,omitempty" yaml:"build,omitempty"`
	Deploy   *DeployAction   `json:"deploy,omitempty" yaml:"deploy,omitempty"`
	Approval *ApprovalAction `json:"approval,omitempty" yaml:"approval,omitempty"`
}

type SourceAction struct {
	Owner  string `json:"owner" yaml:"owner"`
	Repo   string `json:"repo" yaml:"repo"`
	Branch string `json:"branch" yaml:"branch"`
	// CredentialRef names the secret holding the source control token.
	CredentialRef string `json:"credentialRef" yaml:"credentialRef"`
}

type BuildAction struct {
	ProjectName string `json:"projectName" yaml:"projectName"`
	BuildSpec   string `json:"buildSpec" yaml:"buildSpec"`
	DeployStage string `json:"deployStage" yaml:"deployStage"`
}

// DeployAction copies an artifact into object storage.
type DeployAction struct {
	Locator   string `json:"locator" yaml:"locator"`
	BucketArn string `json:"bucketArn" yaml:"bucketArn"`
	KeyPrefix string `json:"keyPrefix,omitempty" yaml:"keyPrefix,omitempty"`
	Extract   bool   `json:"extract" yaml:"extract"`
}

type ApprovalAction struct {
	AdditionalInformation string `json:"additionalInformation" yaml:"additionalInformation"`
	NotificationTopic     string `json:"notificationTopic,omitempty" yaml:"notificationTopic,omitempty"`
}

// NotificationTarget is an opaque topic locator for failure alerts.
type NotificationTarget struct {
	Topic string `json:"topic" yaml:"topic"`
}

// FailureAlert binds the pipeline's FAILED executions to a topic.
type FailureAlert struct {
	RuleName string       `json:"ruleName" yaml:"ruleName"`
	Topic    string       `json:"topic" yaml:"topic"`
	Pattern  EventPattern `json:"pattern" yaml:"pattern"`
}

// EventPattern is the EventBridge filter of a FailureAlert.
type EventPattern struct {
	Source     []string            `json:"source" yaml:"source"`
	DetailType []string            `json:"detail-type" yaml:"detail-type"`
	Detail     map[string][]string `json:"detail" yaml:"detail"`
}
