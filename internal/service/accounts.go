package service

import (
	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/naming"
)

// Account keys of the StageAccounts map.
const (
	AccountTools   = "tools"
	AccountStaging = "staging"
	AccountProd    = "prod"
)

// Deployer stages. A deployer role exists per service for each of them.
const (
	StageDev     = "dev"
	StageStaging = "staging"
	StageProd    = "prod"
)

// DeployerStage pairs a deployer role stage with the account key hosting it.
type DeployerStage struct {
	Stage   string
	Account string
}

var deployerStages = []DeployerStage{
	{Stage: StageDev, Account: AccountTools},
	{Stage: StageStaging, Account: AccountStaging},
	{Stage: StageProd, Account: AccountProd},
}

// DeployerStages returns the deployer stages in pipeline order.
func DeployerStages() []DeployerStage {
	out := make([]DeployerStage, len(deployerStages))
	copy(out, deployerStages)
	return out
}

// RequiredAccounts lists the account keys every pipeline references.
func RequiredAccounts() []string {
	return []string{AccountTools, AccountStaging, AccountProd}
}

// StageAccounts maps a stage or account key (tools, staging, prod, ...) to an
// AWS account id.
type StageAccounts map[string]string

// Account returns the account id for key.
func (a StageAccounts) Account(key string) (string, error) {
	id, ok := a[key]
	if !ok {
		return "", &cicderrors.ConfigurationError{Field: "accounts." + key, Reason: "no account configured for stage"}
	}
	if err := naming.ValidateAccountID(id); err != nil {
		return "", &cicderrors.ConfigurationError{Field: "accounts." + key, Err: err}
	}
	return id, nil
}

// Require checks keys in order and reports the first one that is missing or
// malformed.
func (a StageAccounts) Require(keys ...string) error {
	for _, key := range keys {
		if _, err := a.Account(key); err != nil {
			return err
		}
	}
	return nil
}
