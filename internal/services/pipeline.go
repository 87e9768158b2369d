package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
)

// CodePipelineAPI is the subset of the CodePipeline client used here.
type CodePipelineAPI interface {
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
	PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error)
}

type PipelineService struct {
	client CodePipelineAPI
}

func NewPipelineService(client CodePipelineAPI) *PipelineService {
	return &PipelineService{client: client}
}

func NewPipelineServiceFromConfig(cfg aws.Config) *PipelineService {
	return NewPipelineService(codepipeline.NewFromConfig(cfg))
}

// StageStatus is the latest execution state of one pipeline stage.
type StageStatus struct {
	Name    string         `json:"name" yaml:"name"`
	Status  string         `json:"status,omitempty" yaml:"status,omitempty"`
	Actions []ActionStatus `json:"actions" yaml:"actions"`
}

type ActionStatus struct {
	Name       string     `json:"name" yaml:"name"`
	Status     string     `json:"status,omitempty" yaml:"status,omitempty"`
	Summary    string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	LastChange *time.Time `json:"lastChange,omitempty" yaml:"lastChange,omitempty"`

	token string
}

// Pending reports whether the action is waiting for a manual approval.
func (a ActionStatus) Pending() bool {
	return a.token != "" && a.Status == string(types.ActionExecutionStatusInProgress)
}

// State returns the latest state of every stage of pipelineName.
func (s *PipelineService) State(ctx context.Context, pipelineName string) ([]StageStatus, error) {
	out, err := s.client.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		return nil, cicderrors.External("GetPipelineState", pipelineName, err)
	}

	stages := make([]StageStatus, 0, len(out.StageStates))
	for _, ss := range out.StageStates {
		stage := StageStatus{Name: aws.ToString(ss.StageName)}
		if ss.LatestExecution != nil {
			stage.Status = string(ss.LatestExecution.Status)
		}
		for _, as := range ss.ActionStates {
			action := ActionStatus{Name: aws.ToString(as.ActionName)}
			if e := as.LatestExecution; e != nil {
				action.Status = string(e.Status)
				action.Summary = aws.ToString(e.Summary)
				action.LastChange = e.LastStatusChange
				action.token = aws.ToString(e.Token)
			}
			stage.Actions = append(stage.Actions, action)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// Decide approves or rejects the pending approval action of stageName.
// It fails when no approval is waiting.
func (s *PipelineService) Decide(ctx context.Context, pipelineName, stageName, actionName string, approve bool, summary string) error {
	stages, err := s.State(ctx, pipelineName)
	if err != nil {
		return err
	}

	var pending *ActionStatus
	for _, stage := range stages {
		if stage.Name != stageName {
			continue
		}
		for i := range stage.Actions {
			if stage.Actions[i].Name == actionName && stage.Actions[i].Pending() {
				pending = &stage.Actions[i]
			}
		}
	}
	if pending == nil {
		return fmt.Errorf("no pending approval %s in stage %s of pipeline %s", actionName, stageName, pipelineName)
	}

	status := types.ApprovalStatusApproved
	if !approve {
		status = types.ApprovalStatusRejected
	}
	if summary == "" {
		summary = string(status) + " from cicdctl"
	}

	_, err = s.client.PutApprovalResult(ctx, &codepipeline.PutApprovalResultInput{
		PipelineName: aws.String(pipelineName),
		StageName:    aws.String(stageName),
		ActionName:   aws.String(actionName),
		Token:        aws.String(pending.token),
		Result: &types.ApprovalResult{
			Status:  status,
			Summary: aws.String(summary),
		},
	})
	if err != nil {
		return cicderrors.External("PutApprovalResult", pipelineName, err)
	}
	return nil
}
