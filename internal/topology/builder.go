// Package topology derives the stage graph of a service pipeline:
// Source → Build → Deploy-Staging (+ manual approval) → Deploy-Prod.
//
// Everything here is a pure function of its inputs. Building twice from the
// same inputs yields identical topologies.
package topology

import (
	"fmt"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/naming"
	"github.com/30Piraten/service-cicd/internal/service"
)

const (
	pipelineEventSource = "aws.codepipeline"
	executionStateEvent = "CodePipeline Pipeline Execution State Change"
	stateFailed         = "FAILED"
)

// source is one repository of a service together with the names derived
// from it.
type source struct {
	key     string // artifact prefix, e.g. "Services"
	project string // project name fragment, e.g. "services"
	repo    string
	storage string // deploy target locators; empty deploys through CodeBuild
	prod    string
}

func (s source) sourceArtifact() string  { return s.key + "Source" }
func (s source) stagingArtifact() string { return s.key + "StagingPackage" }
func (s source) prodArtifact() string    { return s.key + "ProdPackage" }

// roles holds the deployer role ARN per deployer stage.
type roles map[string]string

// Build derives the pipeline topology of v for trigger. alerting may be nil.
// Every referenced account is resolved before any stage is produced.
func Build(v service.Valid, trigger Trigger, accounts service.StageAccounts, alerting *NotificationTarget) (Topology, error) {
	if v.IsZero() {
		return Topology{}, cicderrors.Configuration("", "descriptor", "descriptor has not been validated")
	}
	if _, err := ParseTrigger(string(trigger)); err != nil {
		return Topology{}, &cicderrors.ConfigurationError{Service: v.ServiceName(), Field: "trigger", Err: err}
	}
	if alerting != nil && alerting.Topic == "" {
		return Topology{}, cicderrors.Configuration(v.ServiceName(), "alerting.topic", "notification target has no topic")
	}

	d := v.Descriptor()
	rr, err := resolveRoles(d.ServiceName, accounts)
	if err != nil {
		return Topology{}, err
	}
	sources, err := sourcesOf(d)
	if err != nil {
		return Topology{}, err
	}

	pipelineName := fmt.Sprintf("%s_%s", d.ServiceName, trigger)

	t := Topology{
		PipelineName: pipelineName,
		ServiceName:  d.ServiceName,
		Trigger:      trigger,
		Stages: []Stage{
			sourceStage(v, trigger, sources, d.SecretReference),
			buildStage(pipelineName, sources, rr),
			stagingStage(pipelineName, sources, rr, alerting),
			prodStage(pipelineName, sources, rr),
		},
		AccessPermissions: d.AccessPermissions,
	}

	if alerting != nil {
		t.Alert = &FailureAlert{
			RuleName: pipelineName + "_pipeline_failed_rule",
			Topic:    alerting.Topic,
			Pattern: EventPattern{
				Source:     []string{pipelineEventSource},
				DetailType: []string{executionStateEvent},
				Detail: map[string][]string{
					"pipeline": {pipelineName},
					"state":    {stateFailed},
				},
			},
		}
	}

	return t, nil
}

// BuildAll derives one topology per service and trigger, services in input
// order. Duplicate service names are rejected before anything is built.
func BuildAll(services []service.Valid, triggers []Trigger, accounts service.StageAccounts, alerting *NotificationTarget) ([]Topology, error) {
	seen := make(map[string]struct{}, len(services))
	for _, v := range services {
		if _, ok := seen[v.ServiceName()]; ok {
			return nil, cicderrors.Configuration(v.ServiceName(), "serviceName", "duplicate service name")
		}
		seen[v.ServiceName()] = struct{}{}
	}

	out := make([]Topology, 0, len(services)*len(triggers))
	for _, v := range services {
		for _, trigger := range triggers {
			t, err := Build(v, trigger, accounts, alerting)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Plan validates descriptors and then builds every topology. Nothing is built
// unless every descriptor is valid.
func Plan(descriptors []service.Descriptor, triggers []Trigger, accounts service.StageAccounts, alerting *NotificationTarget) ([]service.Valid, []Topology, error) {
	valid, err := service.ValidateAll(descriptors, accounts)
	if err != nil {
		return nil, nil, err
	}
	topologies, err := BuildAll(valid, triggers, accounts, alerting)
	if err != nil {
		return nil, nil, err
	}
	return valid, topologies, nil
}

func resolveRoles(serviceName string, accounts service.StageAccounts) (roles, error) {
	rr := roles{}
	for _, s := range service.DeployerStages() {
		accountID, err := accounts.Account(s.Account)
		if err != nil {
			if cfgErr, ok := err.(*cicderrors.ConfigurationError); ok {
				cfgErr.Service = serviceName
			}
			return nil, err
		}
		roleArn, err := naming.RoleArn(serviceName, s.Stage, accountID)
		if err != nil {
			return nil, &cicderrors.ConfigurationError{Service: serviceName, Field: "serviceName", Err: err}
		}
		rr[s.Stage] = roleArn
	}
	return rr, nil
}

func sourcesOf(d service.Descriptor) ([]source, error) {
	sources := []source{{
		key:     "Services",
		project: "services",
		repo:    d.Sources.RepoService,
	}}
	if d.Sources.RepoMVP == "" {
		return sources, nil
	}

	for _, locator := range []string{d.TargetStorage.Staging, d.TargetStorage.Prod} {
		if _, err := service.ParseStorageLocator(locator); err != nil {
			return nil, &cicderrors.ConfigurationError{Service: d.ServiceName, Field: "targetStorage", Err: err}
		}
	}
	return append(sources, source{
		key:     "MVP",
		project: "mvp",
		repo:    d.Sources.RepoMVP,
		storage: d.TargetStorage.Staging,
		prod:    d.TargetStorage.Prod,
	}), nil
}

func sourceActionPrefix(trigger Trigger) string {
	if trigger == TriggerPullRequest {
		return "GitHub_SubmitPR"
	}
	return "GitHub_PushToMaster"
}

func sourceStage(v service.Valid, trigger Trigger, sources []source, credentialRef string) Stage {
	owner := v.Sources().Owner
	actions := make([]Action, 0, len(sources))
	for i, src := range sources {
		actions = append(actions, Action{
			Name:     sourceActionPrefix(trigger) + "_" + src.key,
			Kind:     KindSource,
			RunOrder: i + 1,
			Outputs:  []string{src.sourceArtifact()},
			Source: &SourceAction{
				Owner:         owner,
				Repo:          src.repo,
				Branch:        v.Branch(),
				CredentialRef: credentialRef,
			},
		})
	}
	return Stage{Name: StageSource, Actions: actions}
}

func buildStage(pipelineName string, sources []source, rr roles) Stage {
	actions := make([]Action, 0, len(sources))
	for i, src := range sources {
		actions = append(actions, Action{
			Name:           "Build_Packages_For_Deploy_" + src.key,
			Kind:           KindCodeBuild,
			RunOrder:       i + 1,
			Inputs:         []string{src.sourceArtifact()},
			Outputs:        []string{src.stagingArtifact(), src.prodArtifact()},
			AssumedRoleArn: rr[service.StageDev],
			Build: &BuildAction{
				ProjectName: fmt.Sprintf("%s_%s_build", pipelineName, src.project),
				BuildSpec:   "buildspec.tools.yml",
				DeployStage: service.StageDev,
			},
		})
	}
	return Stage{Name: StageBuild, Actions: actions}
}

func stagingStage(pipelineName string, sources []source, rr roles, alerting *NotificationTarget) Stage {
	actions := deployActions(pipelineName, sources, rr, service.StageStaging)

	last := 0
	for _, a := range actions {
		last = max(last, a.RunOrder)
	}
	approval := &ApprovalAction{
		AdditionalInformation: fmt.Sprintf("Approve promotion of %s to prod", pipelineName),
	}
	if alerting != nil {
		approval.NotificationTopic = alerting.Topic
	}
	actions = append(actions, Action{
		Name:     "Approve_PROD_Promotion",
		Kind:     KindApproval,
		RunOrder: last + 1,
		Approval: approval,
	})

	return Stage{Name: StageDeployStaging, Actions: actions}
}

func prodStage(pipelineName string, sources []source, rr roles) Stage {
	return Stage{Name: StageDeployProd, Actions: deployActions(pipelineName, sources, rr, service.StageProd)}
}

// deployActions emits one deploy action per source for stage. Sources with a
// storage target are copied to the bucket, the rest run the stage build spec.
func deployActions(pipelineName string, sources []source, rr roles, stage string) []Action {
	label := "STAGING"
	if stage == service.StageProd {
		label = "PROD"
	}

	actions := make([]Action, 0, len(sources))
	for i, src := range sources {
		artifact, locator := src.stagingArtifact(), src.storage
		if stage == service.StageProd {
			artifact, locator = src.prodArtifact(), src.prod
		}

		a := Action{
			Name:           fmt.Sprintf("Deploy_%s_%s", label, src.key),
			RunOrder:       i + 1,
			AssumedRoleArn: rr[stage],
		}
		if locator == "" {
			a.Kind = KindCodeBuild
			a.Inputs = []string{src.sourceArtifact(), artifact}
			a.Build = &BuildAction{
				ProjectName: fmt.Sprintf("%s_%s_%s", pipelineName, src.project, stage),
				BuildSpec:   fmt.Sprintf("buildspec.%s.yml", stage),
				DeployStage: stage,
			}
		} else {
			// locators were parsed in sourcesOf
			l, _ := service.ParseStorageLocator(locator)
			a.Kind = KindS3Deploy
			a.Inputs = []string{artifact}
			a.Deploy = &DeployAction{
				Locator:   locator,
				BucketArn: l.BucketArn(),
				KeyPrefix: l.KeyPrefix,
				Extract:   true,
			}
		}
		actions = append(actions, a)
	}
	return actions
}
